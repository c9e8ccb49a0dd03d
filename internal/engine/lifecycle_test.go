package engine

import (
	"testing"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

func TestCandidateStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Status
	}{
		{"accepted", domain.StatusAccepted},
		{"stored", domain.StatusAccepted},
		{"delivered", domain.StatusDelivered},
		{"failed", domain.StatusFailed},
		{"bounced", domain.StatusBounced},
		{"Bounced", domain.StatusBounced},
		{"rejected", domain.StatusRejected},
		{"opened", domain.StatusOpened},
		{"clicked", domain.StatusClicked},
		{"unsubscribed", domain.StatusUnsubscribed},
		{"complained", domain.StatusComplained},
		{"mystery", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := CandidateStatus(tt.raw, MapEventKind(tt.raw)); got != tt.want {
				t.Errorf("CandidateStatus(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCandidateStatus_BounceOverridesFailedKind(t *testing.T) {
	kind := MapEventKind("bounced")
	if kind != domain.KindFailed {
		t.Fatalf("bounced should map to the failed kind, got %q", kind)
	}
	if got := CandidateStatus("bounced", kind); got != domain.StatusBounced {
		t.Errorf("bounced raw event must propose bounced, got %q", got)
	}
	if got := CandidateStatus("failed", kind); got != domain.StatusFailed {
		t.Errorf("failed raw event must propose failed, got %q", got)
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name      string
		current   domain.Status
		candidate domain.Status
		want      domain.Status
		applied   bool
	}{
		{"forward", domain.StatusAttempted, domain.StatusDelivered, domain.StatusDelivered, true},
		{"regress", domain.StatusOpened, domain.StatusDelivered, domain.StatusOpened, false},
		{"same", domain.StatusDelivered, domain.StatusDelivered, domain.StatusDelivered, false},
		{"empty candidate", domain.StatusAccepted, "", domain.StatusAccepted, false},
		{"failure after accepted", domain.StatusAccepted, domain.StatusFailed, domain.StatusFailed, true},
		{"accepted after failure", domain.StatusFailed, domain.StatusAccepted, domain.StatusFailed, false},
		{"bounce after delivered", domain.StatusDelivered, domain.StatusBounced, domain.StatusBounced, true},
		{"bounce after opened", domain.StatusOpened, domain.StatusBounced, domain.StatusBounced, true},
		{"bounce after complained", domain.StatusComplained, domain.StatusBounced, domain.StatusBounced, true},
		{"click after bounce", domain.StatusBounced, domain.StatusClicked, domain.StatusBounced, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := tt.current.Advance(tt.candidate)
			if got != tt.want || applied != tt.applied {
				t.Errorf("Advance(%q, %q) = (%q, %v), want (%q, %v)",
					tt.current, tt.candidate, got, applied, tt.want, tt.applied)
			}
		})
	}
}

// Any arrival order of the same events must end at the highest priority.
func TestAdvance_OrderIndependent(t *testing.T) {
	events := []domain.Status{
		domain.StatusAccepted,
		domain.StatusDelivered,
		domain.StatusOpened,
		domain.StatusClicked,
		domain.StatusBounced,
	}

	want := domain.StatusAttempted
	for _, s := range events {
		if s.Priority() > want.Priority() {
			want = s
		}
	}

	permute(events, func(order []domain.Status) {
		status := domain.StatusAttempted
		for _, s := range order {
			status, _ = status.Advance(s)
		}
		if status != want {
			t.Errorf("order %v ended at %q, want %q", order, status, want)
		}
	})
}

func TestStatusPriorities_DistinctAndOrdered(t *testing.T) {
	all := domain.AllStatuses()
	seen := map[int]domain.Status{}
	for i, s := range all {
		p := s.Priority()
		if other, dup := seen[p]; dup {
			t.Errorf("%q and %q share priority %d", s, other, p)
		}
		seen[p] = s
		if i > 0 && p <= all[i-1].Priority() {
			t.Errorf("%q (%d) should outrank %q (%d)", s, p, all[i-1], all[i-1].Priority())
		}
	}
}

func permute(items []domain.Status, fn func([]domain.Status)) {
	var rec func(int)
	rec = func(k int) {
		if k == len(items) {
			fn(append([]domain.Status(nil), items...))
			return
		}
		for i := k; i < len(items); i++ {
			items[k], items[i] = items[i], items[k]
			rec(k + 1)
			items[k], items[i] = items[i], items[k]
		}
	}
	rec(0)
}

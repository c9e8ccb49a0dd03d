package engine

import (
	"testing"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

func TestMapEventKind(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.EventKind
	}{
		{"accepted", domain.KindAccepted},
		{"delivered", domain.KindDelivered},
		{"failed", domain.KindFailed},
		{"bounced", domain.KindFailed},
		{"rejected", domain.KindRejected},
		{"opened", domain.KindOpened},
		{"clicked", domain.KindClicked},
		{"unsubscribed", domain.KindUnsubscribed},
		{"complained", domain.KindComplained},
		{"stored", domain.KindStored},
		{"  Delivered ", domain.KindDelivered},
		{"OPENED", domain.KindOpened},
		{"list_member_uploaded", domain.KindUnknown},
		{"", domain.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := MapEventKind(tt.raw); got != tt.want {
				t.Errorf("MapEventKind(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMapEventKind_UnknownIsNotKnown(t *testing.T) {
	if MapEventKind("something-new").Known() {
		t.Error("unrecognised event should map to an unknown kind")
	}
}

package engine

import (
	"strings"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

// eventKinds maps normalized ESP event names to canonical kinds. "bounced"
// is a Failed event; its distinct status is decided by the lifecycle.
var eventKinds = map[string]domain.EventKind{
	"accepted":     domain.KindAccepted,
	"delivered":    domain.KindDelivered,
	"failed":       domain.KindFailed,
	"bounced":      domain.KindFailed,
	"rejected":     domain.KindRejected,
	"opened":       domain.KindOpened,
	"clicked":      domain.KindClicked,
	"unsubscribed": domain.KindUnsubscribed,
	"complained":   domain.KindComplained,
	"stored":       domain.KindStored,
}

func normalizeEvent(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// MapEventKind returns the canonical kind for a raw ESP event name, or
// domain.KindUnknown if the name is not recognised.
func MapEventKind(raw string) domain.EventKind {
	return eventKinds[normalizeEvent(raw)]
}

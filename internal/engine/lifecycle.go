package engine

import "github.com/Priya8975/email-event-ingestion/internal/domain"

var kindStatus = map[domain.EventKind]domain.Status{
	domain.KindAccepted:     domain.StatusAccepted,
	domain.KindStored:       domain.StatusAccepted,
	domain.KindDelivered:    domain.StatusDelivered,
	domain.KindFailed:       domain.StatusFailed,
	domain.KindRejected:     domain.StatusRejected,
	domain.KindOpened:       domain.StatusOpened,
	domain.KindClicked:      domain.StatusClicked,
	domain.KindUnsubscribed: domain.StatusUnsubscribed,
	domain.KindComplained:   domain.StatusComplained,
}

// CandidateStatus returns the status an event proposes for its message.
// A raw "bounced" event always proposes Bounced rather than the Failed
// status of its kind. Unknown kinds propose nothing ("").
func CandidateStatus(rawEvent string, kind domain.EventKind) domain.Status {
	if normalizeEvent(rawEvent) == "bounced" {
		return domain.StatusBounced
	}
	return kindStatus[kind]
}

package domain

import "testing"

func TestStatus_Unknown(t *testing.T) {
	s := Status("mystery")
	if s.Valid() {
		t.Error("unknown status should not be valid")
	}
	if s.Priority() >= StatusAttempted.Priority() {
		t.Error("unknown status should sort below attempted")
	}
}

func TestDeliveryEvent_Resolved(t *testing.T) {
	e := &DeliveryEvent{}
	if e.Resolved() {
		t.Error("event without message id should be unresolved")
	}
	id := "m1"
	e.MessageID = &id
	if !e.Resolved() {
		t.Error("event with message id should be resolved")
	}
}

package models

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AccountStatus
		allowed  bool
	}{
		{StatusActive, StatusActive, true},
		{StatusActive, StatusPendingCancel, true},
		{StatusActive, StatusCancelled, true},
		{StatusPendingCancel, StatusCancelled, true},
		{StatusPendingCancel, StatusPendingCancel, true},
		{StatusPendingCancel, StatusActive, false},
		{StatusCancelled, StatusActive, false},
		{StatusCancelled, StatusPendingCancel, false},
		{StatusCancelled, StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []AccountStatus{StatusActive, StatusPendingCancel, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if AccountStatus("frozen").Valid() {
		t.Error("unknown status should be invalid")
	}
}

package offer

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusApproved},
		{StatusPending, StatusRejected},
		{StatusApproved, StatusScheduled},
		{StatusApproved, StatusPublished},
		{StatusApproved, StatusRejectedNoChannel},
		{StatusScheduled, StatusPublished},
		{StatusScheduled, StatusRejectedDataError},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusApproved, StatusPending},   // no backward transitions
		{StatusPublished, StatusApproved}, // published is terminal
		{StatusPublished, StatusPending},
		{StatusRejected, StatusApproved}, // rejected is terminal
		{StatusPending, StatusPublished}, // cannot skip approval
		{StatusPending, StatusScheduled},
		{StatusScheduled, StatusApproved},
	}
	for _, c := range forbidden {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be forbidden", c.from, c.to)
		}
	}
}

func TestStatusIsOpen(t *testing.T) {
	for _, s := range OpenStatuses {
		if !s.IsOpen() {
			t.Errorf("expected %s to be open", s)
		}
	}
	for _, s := range ClosedStatuses {
		if s.IsOpen() {
			t.Errorf("expected %s to be closed", s)
		}
	}
}

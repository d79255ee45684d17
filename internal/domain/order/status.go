package order

import (
	"slices"
	"strings"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusPreparing Status = "Preparing"
	StatusShipping  Status = "Shipping"
	StatusDelivered Status = "Delivered"
	StatusReceived  Status = "Received"
	StatusCancelled Status = "Cancelled"
	StatusRejected  Status = "Rejected"
)

var allStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusShipping,
	StatusDelivered,
	StatusReceived,
	StatusCancelled,
	StatusRejected,
}

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusCancelled, StatusRejected},
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusShipping, StatusCancelled},
	StatusShipping:  {StatusDelivered},
	StatusDelivered: {StatusReceived},
	StatusReceived:  {}, // terminal state
	StatusCancelled: {}, // terminal state
	StatusRejected:  {}, // terminal state
}

// IsValidTransition reports whether an order may move from current to requested.
// It has no side effects.
func IsValidTransition(current, requested Status) bool {
	return slices.Contains(validTransitions[current], requested)
}

// AllowedTransitions returns a copy of the statuses reachable from the given
// status, in transition table order. Terminal statuses yield an empty slice.
func AllowedTransitions(from Status) []Status {
	return slices.Clone(validTransitions[from])
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// progress ranks the happy path. Failure states rank zero.
func (s Status) progress() int {
	switch s {
	case StatusPending:
		return 1
	case StatusAccepted:
		return 2
	case StatusPreparing:
		return 3
	case StatusShipping:
		return 4
	case StatusDelivered:
		return 5
	case StatusReceived:
		return 6
	}
	return 0
}

// pastPreparing reports whether the order has gone beyond the Preparing state.
func (s Status) pastPreparing() bool {
	return s.progress() > StatusPreparing.progress()
}

// ParseStatus maps user input to a Status, ignoring case.
func ParseStatus(raw string) (Status, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range allStatuses {
		if strings.EqualFold(string(s), raw) {
			return s, true
		}
	}
	return "", false
}

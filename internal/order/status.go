package order

import "errors"

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("order: status transition not allowed")

// Status is the processing stage of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWashing   Status = "washing"
	StatusDrying    Status = "drying"
	StatusFolding   Status = "folding"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0 || s == StatusCancelled
}

// Open reports whether the order is still being processed.
func (s Status) Open() bool {
	return s != StatusCompleted && s != StatusCancelled && s.Valid()
}

// Editable reports whether the priced inputs may still change. Once the
// laundry is folded the price is settled.
func (s Status) Editable() bool {
	r := s.rank()
	return r >= 0 && r < StatusFolding.rank()
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusWashing:
		return 1
	case StatusDrying:
		return 2
	case StatusFolding:
		return 3
	case StatusReady:
		return 4
	case StatusCompleted:
		return 5
	default:
		return -1
	}
}

// CanTransition reports whether an order may move from one status to
// another. The pipeline only moves forward; open orders may be cancelled.
func CanTransition(from, to Status) bool {
	if !from.Open() || !to.Valid() || from == to {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return from.rank() < to.rank()
}

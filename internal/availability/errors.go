package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrCartNotFound is returned when the cart id references no known cart.
	ErrCartNotFound = errors.New("cart not found")

	// ErrInvalidInterval is returned when an interval does not end strictly
	// after it starts.
	ErrInvalidInterval = errors.New("end time must be after start time")

	// ErrInvalidQuantity is returned when a requested quantity is not a
	// positive integer.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidRecurrence is returned when a recurrence rule's weekday,
	// time-of-day window, or end date cannot be interpreted.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")
)

// CapacityError rejects a reservation request that does not fit. Remaining is
// the number of units still available over the requested interval, for the
// caller to show to the user.
type CapacityError struct {
	Requested int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("requested %d units but only %d available", e.Requested, e.Remaining)
}

package entities

import "time"

// AvailabilityResponse reports how many units of a cart are free over every
// instant of the requested window.
type AvailabilityResponse struct {
	CartID             int       `json:"cart_id"`
	RequestedStartTime time.Time `json:"requested_start_time"`
	RequestedEndTime   time.Time `json:"requested_end_time"`
	AvailableCount     int       `json:"available_count"`
}

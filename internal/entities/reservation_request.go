package entities

import "time"

type ReservationRequest struct {
	CartID    int       `json:"cart_id"`
	Quantity  int       `json:"quantity"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Room      string    `json:"room"`
}

// RecurrenceRequest registers a weekly standing reservation. StartTime and
// EndTime are times of day in "15:04" format; Until is the last date
// ("2006-01-02") on which the rule applies.
type RecurrenceRequest struct {
	CartID    int    `json:"cart_id"`
	Quantity  int    `json:"quantity"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Until     string `json:"until"`
	Room      string `json:"room"`
}

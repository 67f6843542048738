package entities

import "time"

type ReservationResponse struct {
	Code         string    `json:"code"`
	CartID       int       `json:"cart_id"`
	Quantity     int       `json:"quantity"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Room         string    `json:"room"`
	Status       string    `json:"status"`
	RecurrenceID *string   `json:"recurrence_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminReservation is the admin listing row, joined with cart and user names.
type AdminReservation struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Quantity    int       `json:"quantity"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Room        string    `json:"room"`
	Status      string    `json:"status"`
	CompletedBy string    `json:"completed_by,omitempty"`
	CartName    string    `json:"cart_name"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
}

type RecurrenceResponse struct {
	ID        int       `json:"id"`
	GroupID   string    `json:"group_id"`
	CartID    int       `json:"cart_id"`
	Quantity  int       `json:"quantity"`
	Weekday   int       `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Until     string    `json:"until"`
	Room      string    `json:"room"`
	CreatedAt time.Time `json:"created_at"`
}

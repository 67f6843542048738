package db

import "time"

// Reservation statuses. Only active reservations count against cart capacity.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// User roles, in increasing order of privilege.
const (
	RoleProfessor   = "professor"
	RoleOperational = "operational"
	RoleAdmin       = "admin"
)

type Cart struct {
	ID       int
	Name     string
	Location string
	Capacity int
}

type User struct {
	ID           int
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
}

type Reservation struct {
	ID           int
	Code         string
	CartID       int
	UserID       int
	Quantity     int
	StartTime    time.Time
	EndTime      time.Time
	Room         string
	Status       string
	RecurrenceID *string
	CompletedBy  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecurrenceRule is a weekly-repeating standing reservation. Its occurrences
// are virtual: the availability engine counts them at evaluation time, they
// never exist as reservation rows.
type RecurrenceRule struct {
	ID          int
	GroupID     string
	CartID      int
	UserID      int
	Quantity    int
	Weekday     int
	StartMinute int
	EndMinute   int
	Until       time.Time
	Room        string
	CreatedAt   time.Time
}

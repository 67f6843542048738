package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"cartbooking/internal/availability"
	"cartbooking/internal/db"
	"cartbooking/internal/entities"
	"cartbooking/internal/repository"
)

// ErrNotOwner rejects an attempt to touch a reservation or recurrence rule
// belonging to someone else.
var ErrNotOwner = errors.New("reservation does not belong to this user")

// ReservationStore is what the service needs from the repository. The
// repository's ReservationRepository satisfies it; tests substitute fakes.
type ReservationStore interface {
	availability.Store
	WithCartLock(ctx context.Context, cartID int, fn func(store availability.Store, insert repository.InsertFunc, insertRule repository.InsertRuleFunc) error) error
	ListCarts(ctx context.Context) ([]db.Cart, error)
	GetReservationByCode(ctx context.Context, code string) (*db.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID int) ([]db.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int, fromStatus, toStatus, completedBy string) error
	GetRecurrenceRule(ctx context.Context, id int) (*db.RecurrenceRule, error)
	DeleteRecurrenceRule(ctx context.Context, id int) error
}

type ReservationService struct {
	store  ReservationStore
	users  repository.UserRepository
	sender *SenderService
	engine *availability.Engine
}

func NewReservationService(store ReservationStore, users repository.UserRepository, sender *SenderService) *ReservationService {
	return &ReservationService{
		store:  store,
		users:  users,
		sender: sender,
		engine: availability.NewEngine(store),
	}
}

func (s *ReservationService) ListCarts(ctx context.Context) ([]db.Cart, error) {
	return s.store.ListCarts(ctx)
}

// CheckAvailability reports the free unit count over [start, end) without
// side effects.
func (s *ReservationService) CheckAvailability(ctx context.Context, cartID int, start, end time.Time) (*entities.AvailabilityResponse, error) {
	remaining, err := s.engine.ComputeAvailability(ctx, cartID, start, end)
	if err != nil {
		return nil, err
	}
	return &entities.AvailabilityResponse{
		CartID:             cartID,
		RequestedStartTime: start,
		RequestedEndTime:   end,
		AvailableCount:     remaining,
	}, nil
}

// CreateReservation inserts an active reservation if the requested quantity
// fits. The availability re-check and the insert run inside one transaction
// holding the cart row lock, so two concurrent requests against the same cart
// can never jointly exceed capacity.
func (s *ReservationService) CreateReservation(ctx context.Context, userID int, req *entities.ReservationRequest) (*entities.ReservationResponse, error) {
	if req.Quantity <= 0 {
		return nil, availability.ErrInvalidQuantity
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, availability.ErrInvalidInterval
	}

	now := time.Now().UTC()
	reservation := &db.Reservation{
		Code:      uuid.NewString(),
		CartID:    req.CartID,
		UserID:    userID,
		Quantity:  req.Quantity,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Room:      req.Room,
		Status:    db.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithCartLock(ctx, req.CartID, func(store availability.Store, insert repository.InsertFunc, _ repository.InsertRuleFunc) error {
		remaining, err := availability.NewEngine(store).ComputeAvailability(ctx, req.CartID, reservation.StartTime, reservation.EndTime)
		if err != nil {
			return err
		}
		if req.Quantity > remaining {
			return &availability.CapacityError{Requested: req.Quantity, Remaining: remaining}
		}
		return insert(reservation)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, reservation, "confirmed")
	resp := toReservationResponse(reservation)
	return &resp, nil
}

// RegisterRecurrence stores a weekly rule after verifying that every future
// occurrence up to the end date fits within capacity. Occurrences stay
// virtual: the engine counts them at evaluation time, no reservation rows are
// written.
func (s *ReservationService) RegisterRecurrence(ctx context.Context, userID int, req *entities.RecurrenceRequest) (*entities.RecurrenceResponse, error) {
	if req.Quantity <= 0 {
		return nil, availability.ErrInvalidQuantity
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		return nil, fmt.Errorf("weekday must be between 0 and 6: %w", availability.ErrInvalidRecurrence)
	}
	startMinute, err := parseMinuteOfDay(req.StartTime)
	if err != nil {
		return nil, err
	}
	endMinute, err := parseMinuteOfDay(req.EndTime)
	if err != nil {
		return nil, err
	}
	if endMinute <= startMinute {
		return nil, availability.ErrInvalidInterval
	}
	until, err := time.ParseInLocation("2006-01-02", req.Until, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid until date %q: %w", req.Until, availability.ErrInvalidRecurrence)
	}

	rule := &db.RecurrenceRule{
		GroupID:     uuid.NewString(),
		CartID:      req.CartID,
		UserID:      userID,
		Quantity:    req.Quantity,
		Weekday:     req.Weekday,
		StartMinute: startMinute,
		EndMinute:   endMinute,
		Until:       until,
		Room:        req.Room,
		CreatedAt:   time.Now().UTC(),
	}

	occurrences := upcomingOccurrences(rule, time.Now().UTC())
	if len(occurrences) == 0 {
		return nil, fmt.Errorf("end date leaves no future occurrences: %w", availability.ErrInvalidRecurrence)
	}

	err = s.store.WithCartLock(ctx, req.CartID, func(store availability.Store, _ repository.InsertFunc, insertRule repository.InsertRuleFunc) error {
		engine := availability.NewEngine(store)
		for _, occ := range occurrences {
			remaining, err := engine.ComputeAvailability(ctx, req.CartID, occ.Start, occ.End)
			if err != nil {
				return err
			}
			if req.Quantity > remaining {
				return &availability.CapacityError{Requested: req.Quantity, Remaining: remaining}
			}
		}
		return insertRule(rule)
	})
	if err != nil {
		return nil, err
	}

	return &entities.RecurrenceResponse{
		ID:        rule.ID,
		GroupID:   rule.GroupID,
		CartID:    rule.CartID,
		Quantity:  rule.Quantity,
		Weekday:   rule.Weekday,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Until:     req.Until,
		Room:      rule.Room,
		CreatedAt: rule.CreatedAt,
	}, nil
}

// CancelRecurrence removes a rule; its future virtual occurrences stop
// counting immediately.
func (s *ReservationService) CancelRecurrence(ctx context.Context, userID int, isManager bool, ruleID int) error {
	rule, err := s.store.GetRecurrenceRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.UserID != userID && !isManager {
		return ErrNotOwner
	}
	return s.store.DeleteRecurrenceRule(ctx, ruleID)
}

func (s *ReservationService) GetReservation(ctx context.Context, userID int, isManager bool, code string) (*entities.ReservationResponse, error) {
	reservation, err := s.store.GetReservationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if reservation.UserID != userID && !isManager {
		return nil, ErrNotOwner
	}
	resp := toReservationResponse(reservation)
	return &resp, nil
}

func (s *ReservationService) ListUserReservations(ctx context.Context, userID int) ([]entities.ReservationResponse, error) {
	reservations, err := s.store.ListReservationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, toReservationResponse(&reservations[i]))
	}
	return out, nil
}

// CancelReservation moves an active reservation to cancelled. Owners may
// cancel their own; managers may cancel any.
func (s *ReservationService) CancelReservation(ctx context.Context, userID int, isManager bool, code string) error {
	reservation, err := s.store.GetReservationByCode(ctx, code)
	if err != nil {
		return err
	}
	if reservation.UserID != userID && !isManager {
		return ErrNotOwner
	}
	if err := s.store.UpdateReservationStatus(ctx, reservation.ID, db.StatusActive, db.StatusCancelled, ""); err != nil {
		return err
	}
	s.notify(ctx, reservation, "cancelled")
	return nil
}

// CompleteReservation closes out an active reservation, recording the
// operator who did it. Terminal states never transition again.
func (s *ReservationService) CompleteReservation(ctx context.Context, reservationID int, completedBy string) error {
	return s.store.UpdateReservationStatus(ctx, reservationID, db.StatusActive, db.StatusCompleted, completedBy)
}

func (s *ReservationService) notify(ctx context.Context, reservation *db.Reservation, status string) {
	if s.sender == nil || s.users == nil {
		return
	}
	user, err := s.users.GetByID(ctx, reservation.UserID)
	if err != nil || user == nil {
		log.Printf("Could not load user %d for reservation %s notification: %v", reservation.UserID, reservation.Code, err)
		return
	}
	var cartName string
	if carts, err := s.store.ListCarts(ctx); err == nil {
		for _, c := range carts {
			if c.ID == reservation.CartID {
				cartName = c.Name
				break
			}
		}
	}
	s.sender.SendReservationEmail(user, reservation, cartName, status)
	if user.Phone != "" {
		s.sender.SendReservationSMS(user, reservation, status)
	}
}

func toReservationResponse(res *db.Reservation) entities.ReservationResponse {
	return entities.ReservationResponse{
		Code:         res.Code,
		CartID:       res.CartID,
		Quantity:     res.Quantity,
		StartTime:    res.StartTime,
		EndTime:      res.EndTime,
		Room:         res.Room,
		Status:       res.Status,
		RecurrenceID: res.RecurrenceID,
		CreatedAt:    res.CreatedAt,
		UpdatedAt:    res.UpdatedAt,
	}
}

func parseMinuteOfDay(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", value, availability.ErrInvalidRecurrence)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// upcomingOccurrences lists the concrete intervals the rule will occupy from
// now through its end date.
func upcomingOccurrences(rule *db.RecurrenceRule, now time.Time) []availability.Booking {
	var out []availability.Booking
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(rule.Until.Year(), rule.Until.Month(), rule.Until.Day(), 0, 0, 0, 0, time.UTC)
	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		if int(day.Weekday()) != rule.Weekday {
			continue
		}
		occ := availability.Booking{
			Quantity: rule.Quantity,
			Start:    day.Add(time.Duration(rule.StartMinute) * time.Minute),
			End:      day.Add(time.Duration(rule.EndMinute) * time.Minute),
		}
		if occ.End.Before(now) {
			continue
		}
		out = append(out, occ)
	}
	return out
}

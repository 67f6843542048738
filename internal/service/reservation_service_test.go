package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartbooking/internal/availability"
	"cartbooking/internal/db"
	"cartbooking/internal/entities"
	"cartbooking/internal/repository"
)

type fakeStore struct {
	capacity     map[int]int
	reservations []*db.Reservation
	rules        []*db.RecurrenceRule
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{capacity: make(map[int]int)}
}

func (f *fakeStore) CartCapacity(_ context.Context, cartID int) (int, error) {
	c, ok := f.capacity[cartID]
	if !ok {
		return 0, availability.ErrCartNotFound
	}
	return c, nil
}

func (f *fakeStore) ActiveBookings(_ context.Context, cartID int) ([]availability.Booking, error) {
	var bookings []availability.Booking
	for _, r := range f.reservations {
		if r.CartID == cartID && r.Status == db.StatusActive {
			bookings = append(bookings, availability.Booking{Quantity: r.Quantity, Start: r.StartTime, End: r.EndTime})
		}
	}
	return bookings, nil
}

func (f *fakeStore) RecurrenceRules(_ context.Context, cartID int) ([]availability.Rule, error) {
	var rules []availability.Rule
	for _, r := range f.rules {
		if r.CartID == cartID {
			rules = append(rules, availability.Rule{
				Quantity:    r.Quantity,
				Weekday:     time.Weekday(r.Weekday),
				StartMinute: r.StartMinute,
				EndMinute:   r.EndMinute,
				Until:       r.Until,
			})
		}
	}
	return rules, nil
}

func (f *fakeStore) WithCartLock(ctx context.Context, cartID int, fn func(store availability.Store, insert repository.InsertFunc, insertRule repository.InsertRuleFunc) error) error {
	if _, ok := f.capacity[cartID]; !ok {
		return availability.ErrCartNotFound
	}
	insert := func(res *db.Reservation) error {
		f.nextID++
		res.ID = f.nextID
		f.reservations = append(f.reservations, res)
		return nil
	}
	insertRule := func(rule *db.RecurrenceRule) error {
		f.nextID++
		rule.ID = f.nextID
		f.rules = append(f.rules, rule)
		return nil
	}
	return fn(f, insert, insertRule)
}

func (f *fakeStore) ListCarts(_ context.Context) ([]db.Cart, error) {
	var carts []db.Cart
	for id, capacity := range f.capacity {
		carts = append(carts, db.Cart{ID: id, Name: fmt.Sprintf("Cart %d", id), Capacity: capacity})
	}
	return carts, nil
}

func (f *fakeStore) GetReservationByCode(_ context.Context, code string) (*db.Reservation, error) {
	for _, r := range f.reservations {
		if r.Code == code {
			return r, nil
		}
	}
	return nil, fmt.Errorf("reservation with code '%s' not found", code)
}

func (f *fakeStore) ListReservationsByUser(_ context.Context, userID int) ([]db.Reservation, error) {
	var out []db.Reservation
	for _, r := range f.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateReservationStatus(_ context.Context, id int, fromStatus, toStatus, completedBy string) error {
	for _, r := range f.reservations {
		if r.ID == id {
			if r.Status != fromStatus {
				return fmt.Errorf("reservation %d is not %s", id, fromStatus)
			}
			r.Status = toStatus
			r.CompletedBy = completedBy
			return nil
		}
	}
	return fmt.Errorf("reservation %d not found", id)
}

func (f *fakeStore) GetRecurrenceRule(_ context.Context, id int) (*db.RecurrenceRule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("recurrence rule %d not found", id)
}

func (f *fakeStore) DeleteRecurrenceRule(_ context.Context, id int) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("recurrence rule %d not found", id)
}

// nextWeekday returns the next future occurrence of the given weekday at
// midnight UTC, at least a full week out to keep test intervals in the future.
func nextWeekday(weekday time.Weekday) time.Time {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7)
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func newTestService(store *fakeStore) *ReservationService {
	return NewReservationService(store, nil, nil)
}

func TestCreateReservationSuccess(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	resp, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID:    1,
		Quantity:  20,
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(10 * time.Hour),
		Room:      "B-204",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Code)
	assert.Equal(t, db.StatusActive, resp.Status)
	require.Len(t, store.reservations, 1)
	assert.Equal(t, 7, store.reservations[0].UserID)
}

func TestCreateReservationCapacityExceeded(t *testing.T) {
	// Capacity 35 with 20 already held 09:00-10:00: 16 more units in the
	// overlap must be rejected, reporting 15 available, without inserting.
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	_, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 20, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.CreateReservation(context.Background(), 8, &entities.ReservationRequest{
		CartID: 1, Quantity: 16, StartTime: day.Add(9*time.Hour + 30*time.Minute), EndTime: day.Add(9*time.Hour + 45*time.Minute),
	})
	var capErr *availability.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 15, capErr.Remaining)
	assert.Len(t, store.reservations, 1)
}

func TestCreateReservationExactFitAccepted(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	_, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 20, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	// 15 units fill the cart exactly; that satisfies capacity, not exceeds it.
	_, err = svc.CreateReservation(context.Background(), 8, &entities.ReservationRequest{
		CartID: 1, Quantity: 15, StartTime: day.Add(9*time.Hour + 30*time.Minute), EndTime: day.Add(9*time.Hour + 45*time.Minute),
	})
	require.NoError(t, err)

	// The cart is now full for that window.
	_, err = svc.CreateReservation(context.Background(), 9, &entities.ReservationRequest{
		CartID: 1, Quantity: 1, StartTime: day.Add(9*time.Hour + 30*time.Minute), EndTime: day.Add(9*time.Hour + 45*time.Minute),
	})
	var capErr *availability.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 0, capErr.Remaining)
}

func TestCreateReservationAdjacentToExisting(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	_, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 35, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	// Back-to-back with the full booking: half-open intervals do not overlap.
	_, err = svc.CreateReservation(context.Background(), 8, &entities.ReservationRequest{
		CartID: 1, Quantity: 35, StartTime: day.Add(10 * time.Hour), EndTime: day.Add(11 * time.Hour),
	})
	assert.NoError(t, err)
}

func TestCreateReservationValidation(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)

	_, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 0, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	assert.ErrorIs(t, err, availability.ErrInvalidQuantity)

	_, err = svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 5, StartTime: day.Add(10 * time.Hour), EndTime: day.Add(9 * time.Hour),
	})
	assert.ErrorIs(t, err, availability.ErrInvalidInterval)

	_, err = svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 42, Quantity: 5, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	assert.ErrorIs(t, err, availability.ErrCartNotFound)
}

func TestCancelReservationOwnership(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	resp, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 5, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	// Another professor cannot cancel it.
	err = svc.CancelReservation(context.Background(), 8, false, resp.Code)
	assert.ErrorIs(t, err, ErrNotOwner)

	// A manager can.
	err = svc.CancelReservation(context.Background(), 8, true, resp.Code)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, store.reservations[0].Status)

	// Cancelled is terminal.
	err = svc.CancelReservation(context.Background(), 7, false, resp.Code)
	assert.Error(t, err)
}

func TestCancelledReservationFreesCapacity(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	resp, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 35, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelReservation(context.Background(), 7, false, resp.Code))

	avail, err := svc.CheckAvailability(context.Background(), 1, day.Add(9*time.Hour), day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 35, avail.AvailableCount)
}

func TestCompleteReservation(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Monday)
	_, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 5, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.CompleteReservation(context.Background(), store.reservations[0].ID, "ops@school.example"))
	assert.Equal(t, db.StatusCompleted, store.reservations[0].Status)
	assert.Equal(t, "ops@school.example", store.reservations[0].CompletedBy)

	// No transition out of completed.
	assert.Error(t, svc.CompleteReservation(context.Background(), store.reservations[0].ID, "again"))
}

func TestRegisterRecurrenceStoresVirtualRule(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	monday := nextWeekday(time.Monday)
	until := monday.AddDate(0, 0, 21)
	resp, err := svc.RegisterRecurrence(context.Background(), 7, &entities.RecurrenceRequest{
		CartID:    1,
		Quantity:  10,
		Weekday:   int(time.Monday),
		StartTime: "08:00",
		EndTime:   "09:00",
		Until:     until.Format("2006-01-02"),
		Room:      "Lab 2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.GroupID)
	require.Len(t, store.rules, 1)
	// No reservation rows were materialized.
	assert.Empty(t, store.reservations)

	// The rule's units count on a matching Monday...
	avail, err := svc.CheckAvailability(context.Background(), 1, monday.Add(8*time.Hour+30*time.Minute), monday.Add(8*time.Hour+45*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 25, avail.AvailableCount)

	// ...but not on a Tuesday at the same time.
	tuesday := monday.AddDate(0, 0, 1)
	avail, err = svc.CheckAvailability(context.Background(), 1, tuesday.Add(8*time.Hour+30*time.Minute), tuesday.Add(8*time.Hour+45*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 35, avail.AvailableCount)
}

func TestRegisterRecurrenceRejectsConflict(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	monday := nextWeekday(time.Monday)
	_, err := svc.CreateReservation(context.Background(), 7, &entities.ReservationRequest{
		CartID: 1, Quantity: 30, StartTime: monday.Add(8 * time.Hour), EndTime: monday.Add(9 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.RegisterRecurrence(context.Background(), 8, &entities.RecurrenceRequest{
		CartID:    1,
		Quantity:  10,
		Weekday:   int(time.Monday),
		StartTime: "08:00",
		EndTime:   "09:00",
		Until:     monday.AddDate(0, 0, 21).Format("2006-01-02"),
	})
	var capErr *availability.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 5, capErr.Remaining)
	assert.Empty(t, store.rules)
}

func TestRegisterRecurrenceValidation(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)
	until := nextWeekday(time.Monday).AddDate(0, 0, 21).Format("2006-01-02")

	cases := []struct {
		name string
		req  entities.RecurrenceRequest
	}{
		{"bad weekday", entities.RecurrenceRequest{CartID: 1, Quantity: 5, Weekday: 7, StartTime: "08:00", EndTime: "09:00", Until: until}},
		{"bad start time", entities.RecurrenceRequest{CartID: 1, Quantity: 5, Weekday: 1, StartTime: "8am", EndTime: "09:00", Until: until}},
		{"window inverted", entities.RecurrenceRequest{CartID: 1, Quantity: 5, Weekday: 1, StartTime: "09:00", EndTime: "08:00", Until: until}},
		{"bad until", entities.RecurrenceRequest{CartID: 1, Quantity: 5, Weekday: 1, StartTime: "08:00", EndTime: "09:00", Until: "someday"}},
		{"until in the past", entities.RecurrenceRequest{CartID: 1, Quantity: 5, Weekday: 1, StartTime: "08:00", EndTime: "09:00", Until: "2001-01-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RegisterRecurrence(context.Background(), 7, &tc.req)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, store.rules)
}

func TestCancelRecurrenceOwnership(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	monday := nextWeekday(time.Monday)
	resp, err := svc.RegisterRecurrence(context.Background(), 7, &entities.RecurrenceRequest{
		CartID:    1,
		Quantity:  10,
		Weekday:   int(time.Monday),
		StartTime: "08:00",
		EndTime:   "09:00",
		Until:     monday.AddDate(0, 0, 21).Format("2006-01-02"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.CancelRecurrence(context.Background(), 8, false, resp.ID), ErrNotOwner)
	require.NoError(t, svc.CancelRecurrence(context.Background(), 7, false, resp.ID))
	assert.Empty(t, store.rules)

	// With the rule gone its units are free again.
	avail, err := svc.CheckAvailability(context.Background(), 1, monday.Add(8*time.Hour), monday.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 35, avail.AvailableCount)
}

func TestSequentialReservesNeverExceedCapacity(t *testing.T) {
	store := newFakeStore()
	store.capacity[1] = 35
	svc := newTestService(store)

	day := nextWeekday(time.Wednesday)
	accepted := 0
	for i := 0; i < 10; i++ {
		_, err := svc.CreateReservation(context.Background(), i+1, &entities.ReservationRequest{
			CartID: 1, Quantity: 6, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour),
		})
		if err == nil {
			accepted++
		} else {
			var capErr *availability.CapacityError
			require.ErrorAs(t, err, &capErr)
		}
	}
	// 5 x 6 = 30 fits, the sixth would reach 36.
	assert.Equal(t, 5, accepted)

	total := 0
	for _, r := range store.reservations {
		total += r.Quantity
	}
	assert.LessOrEqual(t, total, 35)
}

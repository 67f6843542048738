// Package availability decides whether reservation requests fit within a
// cart's capacity. All intervals are half-open [start, end): a reservation
// ending at the instant another starts does not overlap it.
package availability

import (
	"context"
	"sort"
	"time"
)

// Booking is one active reservation as the engine sees it: a quantity of
// units held over a half-open interval.
type Booking struct {
	Quantity int
	Start    time.Time
	End      time.Time
}

// Rule is a weekly-repeating booking: Quantity units every Weekday between
// StartMinute and EndMinute (minutes since midnight, half-open), on every
// calendar date up to and including the date of Until.
type Rule struct {
	Quantity    int
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Until       time.Time
}

// Store is the engine's read boundary. Implementations must return
// ErrCartNotFound from CartCapacity for unknown carts and only bookings that
// currently count against capacity (status active).
type Store interface {
	CartCapacity(ctx context.Context, cartID int) (int, error)
	ActiveBookings(ctx context.Context, cartID int) ([]Booking, error)
	RecurrenceRules(ctx context.Context, cartID int) ([]Rule, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ComputeAvailability returns how many units of the cart are free over every
// instant of [start, end). The result is never negative: an already
// overbooked window reports 0.
func (e *Engine) ComputeAvailability(ctx context.Context, cartID int, start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, ErrInvalidInterval
	}
	capacity, err := e.store.CartCapacity(ctx, cartID)
	if err != nil {
		return 0, err
	}
	bookings, err := e.store.ActiveBookings(ctx, cartID)
	if err != nil {
		return 0, err
	}
	rules, err := e.store.RecurrenceRules(ctx, cartID)
	if err != nil {
		return 0, err
	}

	remaining := capacity - PeakUsage(bookings, rules, start, end)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// PeakUsage computes the maximum number of units simultaneously in use at any
// instant of [start, end), counting one-off bookings and every occurrence the
// rules produce inside the window.
//
// It sweeps over interval breakpoints instead of ticking through the window
// minute by minute: each overlapping booking contributes a +quantity event at
// the instant it begins holding units inside the window and a -quantity event
// when it releases them, and the running sum over the sorted events is the
// usage curve.
func PeakUsage(bookings []Booking, rules []Rule, start, end time.Time) int {
	occ := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Quantity > 0 && b.Start.Before(end) && b.End.After(start) {
			occ = append(occ, b)
		}
	}
	for _, r := range rules {
		occ = appendRuleOccurrences(occ, r, start, end)
	}
	if len(occ) == 0 {
		return 0
	}

	type event struct {
		at    time.Time
		delta int
	}
	events := make([]event, 0, 2*len(occ))
	for _, b := range occ {
		from, to := b.Start, b.End
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		events = append(events, event{at: from, delta: b.Quantity})
		events = append(events, event{at: to, delta: -b.Quantity})
	}
	// Releases sort before acquisitions at the same instant so that
	// back-to-back intervals never stack.
	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	var usage, peak int
	for _, ev := range events {
		usage += ev.delta
		if usage > peak {
			peak = usage
		}
	}
	return peak
}

// appendRuleOccurrences expands a weekly rule into the concrete bookings it
// implies within [start, end) and appends them to occ.
func appendRuleOccurrences(occ []Booking, r Rule, start, end time.Time) []Booking {
	if r.Quantity <= 0 || r.EndMinute <= r.StartMinute {
		return occ
	}
	day := startOfDay(start)
	for ; day.Before(end); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != r.Weekday || !onOrBeforeDate(day, r.Until) {
			continue
		}
		b := Booking{
			Quantity: r.Quantity,
			Start:    day.Add(time.Duration(r.StartMinute) * time.Minute),
			End:      day.Add(time.Duration(r.EndMinute) * time.Minute),
		}
		if b.Start.Before(end) && b.End.After(start) {
			occ = append(occ, b)
		}
	}
	return occ
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// onOrBeforeDate compares calendar dates only, ignoring time of day.
func onOrBeforeDate(day, limit time.Time) bool {
	y1, m1, d1 := day.Date()
	y2, m2, d2 := limit.Date()
	if y1 != y2 {
		return y1 < y2
	}
	if m1 != m2 {
		return m1 < m2
	}
	return d1 <= d2
}

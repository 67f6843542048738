package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cartbooking/internal/availability"
	"cartbooking/internal/db"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the availability reads
// can run against the pool or inside the reservation transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// pgStore implements availability.Store on top of a querier.
type pgStore struct {
	q querier
}

func (s pgStore) CartCapacity(ctx context.Context, cartID int) (int, error) {
	var capacity int
	err := s.q.QueryRowContext(ctx, `SELECT capacity FROM carts WHERE id = $1`, cartID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, availability.ErrCartNotFound
		}
		return 0, fmt.Errorf("error querying cart capacity: %w", err)
	}
	return capacity, nil
}

func (s pgStore) ActiveBookings(ctx context.Context, cartID int) ([]availability.Booking, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT quantity, start_time, end_time FROM reservations WHERE cart_id = $1 AND status = $2`,
		cartID, db.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("error querying active reservations: %w", err)
	}
	defer rows.Close()

	var bookings []availability.Booking
	for rows.Next() {
		var b availability.Booking
		if err := rows.Scan(&b.Quantity, &b.Start, &b.End); err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating reservations: %w", err)
	}
	return bookings, nil
}

func (s pgStore) RecurrenceRules(ctx context.Context, cartID int) ([]availability.Rule, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT quantity, weekday, start_minute, end_minute, until
		 FROM recurrence_rules WHERE cart_id = $1 AND until >= CURRENT_DATE`,
		cartID)
	if err != nil {
		return nil, fmt.Errorf("error querying recurrence rules: %w", err)
	}
	defer rows.Close()

	var rules []availability.Rule
	for rows.Next() {
		var r availability.Rule
		var weekday int
		if err := rows.Scan(&r.Quantity, &weekday, &r.StartMinute, &r.EndMinute, &r.Until); err != nil {
			return nil, fmt.Errorf("error scanning recurrence rule: %w", err)
		}
		r.Weekday = time.Weekday(weekday)
		rules = append(rules, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating recurrence rules: %w", err)
	}
	return rules, nil
}

type ReservationRepository struct {
	DB *sql.DB
	pgStore
}

func NewReservationRepository(database *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: database, pgStore: pgStore{q: database}}
}

// InsertFunc persists a new reservation inside the locked transaction.
type InsertFunc func(res *db.Reservation) error

// InsertRuleFunc persists a new recurrence rule inside the locked transaction.
type InsertRuleFunc func(rule *db.RecurrenceRule) error

// WithCartLock runs fn inside a transaction that holds the cart's row lock,
// serializing concurrent reservations against the same cart. The availability
// re-check and the insert both happen under the lock, which closes the
// check-then-insert race. fn receives a transaction-scoped store plus insert
// callbacks; returning an error rolls everything back.
func (r *ReservationRepository) WithCartLock(ctx context.Context, cartID int, fn func(store availability.Store, insert InsertFunc, insertRule InsertRuleFunc) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int
	err = tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return availability.ErrCartNotFound
		}
		return fmt.Errorf("error locking cart row: %w", err)
	}

	insert := func(res *db.Reservation) error {
		return insertReservation(ctx, tx, res)
	}
	insertRule := func(rule *db.RecurrenceRule) error {
		return insertRecurrenceRule(ctx, tx, rule)
	}
	if err := fn(pgStore{q: tx}, insert, insertRule); err != nil {
		return err
	}
	return tx.Commit()
}

func insertReservation(ctx context.Context, q querier, res *db.Reservation) error {
	query := `
		INSERT INTO reservations
		(code, cart_id, user_id, quantity, start_time, end_time, room, status, recurrence_id, completed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	return q.QueryRowContext(ctx, query,
		res.Code,
		res.CartID,
		res.UserID,
		res.Quantity,
		res.StartTime,
		res.EndTime,
		res.Room,
		res.Status,
		res.RecurrenceID,
		res.CompletedBy,
		res.CreatedAt,
		res.UpdatedAt,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
}

func insertRecurrenceRule(ctx context.Context, q querier, rule *db.RecurrenceRule) error {
	query := `
		INSERT INTO recurrence_rules
		(group_id, cart_id, user_id, quantity, weekday, start_minute, end_minute, until, room, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	return q.QueryRowContext(ctx, query,
		rule.GroupID,
		rule.CartID,
		rule.UserID,
		rule.Quantity,
		rule.Weekday,
		rule.StartMinute,
		rule.EndMinute,
		rule.Until,
		rule.Room,
		rule.CreatedAt,
	).Scan(&rule.ID, &rule.CreatedAt)
}

func (r *ReservationRepository) ListCarts(ctx context.Context) ([]db.Cart, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, location, capacity FROM carts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying carts: %w", err)
	}
	defer rows.Close()

	var carts []db.Cart
	for rows.Next() {
		var c db.Cart
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.Capacity); err != nil {
			return nil, fmt.Errorf("error scanning cart: %w", err)
		}
		carts = append(carts, c)
	}
	return carts, rows.Err()
}

func (r *ReservationRepository) GetReservationByCode(ctx context.Context, code string) (*db.Reservation, error) {
	var res db.Reservation
	query := `
		SELECT id, code, cart_id, user_id, quantity, start_time, end_time, room, status, recurrence_id, completed_by, created_at, updated_at
		FROM reservations WHERE code = $1`
	err := r.DB.QueryRowContext(ctx, query, code).Scan(
		&res.ID, &res.Code, &res.CartID, &res.UserID, &res.Quantity, &res.StartTime, &res.EndTime,
		&res.Room, &res.Status, &res.RecurrenceID, &res.CompletedBy, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation with code '%s' not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying reservation: %w", err)
	}
	return &res, nil
}

func (r *ReservationRepository) ListReservationsByUser(ctx context.Context, userID int) ([]db.Reservation, error) {
	query := `
		SELECT id, code, cart_id, user_id, quantity, start_time, end_time, room, status, recurrence_id, completed_by, created_at, updated_at
		FROM reservations WHERE user_id = $1 ORDER BY start_time DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying user reservations: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		var res db.Reservation
		if err := rows.Scan(
			&res.ID, &res.Code, &res.CartID, &res.UserID, &res.Quantity, &res.StartTime, &res.EndTime,
			&res.Room, &res.Status, &res.RecurrenceID, &res.CompletedBy, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// UpdateReservationStatus moves a reservation to a new status. It only
// touches rows still in the expected current status, so terminal states can
// never be overwritten.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id int, fromStatus, toStatus, completedBy string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET status = $1, completed_by = $2, updated_at = NOW() WHERE id = $3 AND status = $4`,
		toStatus, completedBy, id, fromStatus)
	if err != nil {
		return fmt.Errorf("error updating reservation status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation %d is not %s", id, fromStatus)
	}
	return nil
}

func (r *ReservationRepository) GetRecurrenceRule(ctx context.Context, id int) (*db.RecurrenceRule, error) {
	var rule db.RecurrenceRule
	query := `
		SELECT id, group_id, cart_id, user_id, quantity, weekday, start_minute, end_minute, until, room, created_at
		FROM recurrence_rules WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&rule.ID, &rule.GroupID, &rule.CartID, &rule.UserID, &rule.Quantity,
		&rule.Weekday, &rule.StartMinute, &rule.EndMinute, &rule.Until, &rule.Room, &rule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recurrence rule %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying recurrence rule: %w", err)
	}
	return &rule, nil
}

func (r *ReservationRepository) DeleteRecurrenceRule(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting recurrence rule: %w", err)
	}
	return nil
}

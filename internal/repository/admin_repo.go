package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"cartbooking/internal/db"
	"cartbooking/internal/entities"
)

type AdminRepository struct {
	DB *sql.DB
}

func NewAdminRepository(database *sql.DB) *AdminRepository {
	return &AdminRepository{DB: database}
}

// ListReservations returns reservations joined with cart and user names for
// the admin view. Filters are optional; empty strings mean "all".
func (r *AdminRepository) ListReservations(ctx context.Context, date, cartName, status string) ([]entities.AdminReservation, error) {
	query := `
	SELECT
		r.id, r.code, r.quantity, r.start_time, r.end_time, r.room, r.status, r.completed_by,
		c.name AS cart_name, u.name AS user_name, u.email AS user_email
	FROM reservations r
	JOIN carts c ON c.id = r.cart_id
	JOIN users u ON u.id = r.user_id
	WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += " AND DATE(r.start_time) = $" + strconv.Itoa(idx)
		args = append(args, date)
		idx++
	}
	if cartName != "" {
		query += " AND c.name = $" + strconv.Itoa(idx)
		args = append(args, cartName)
		idx++
	}
	if status != "" {
		query += " AND r.status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	query += " ORDER BY r.start_time ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying admin reservations: %w", err)
	}
	defer rows.Close()

	var reservations []entities.AdminReservation
	for rows.Next() {
		var res entities.AdminReservation
		if err := rows.Scan(
			&res.ID, &res.Code, &res.Quantity, &res.StartTime, &res.EndTime, &res.Room,
			&res.Status, &res.CompletedBy, &res.CartName, &res.UserName, &res.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("error scanning admin reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *AdminRepository) ListUsers(ctx context.Context) ([]db.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, email, phone, role FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *AdminRepository) SetUserRole(ctx context.Context, userID int, role string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
	if err != nil {
		return fmt.Errorf("error updating user role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

func (r *AdminRepository) DeleteUser(ctx context.Context, userID int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetCart(ctx context.Context, cartID int) (*db.Cart, error) {
	var c db.Cart
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, location, capacity FROM carts WHERE id = $1`, cartID).
		Scan(&c.ID, &c.Name, &c.Location, &c.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart %d not found: %w", cartID, err)
		}
		return nil, fmt.Errorf("error querying cart: %w", err)
	}
	return &c, nil
}

func (r *AdminRepository) UpdateCart(ctx context.Context, cartID int, location string, capacity int) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE carts SET location = $1, capacity = $2 WHERE id = $3`,
		location, capacity, cartID)
	if err != nil {
		return fmt.Errorf("error updating cart: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("cart %d not found", cartID)
	}
	return nil
}

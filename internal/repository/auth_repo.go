package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"cartbooking/internal/db"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByID(ctx context.Context, id int) (*db.User, error)
	CreateUser(ctx context.Context, name, email, phone, password, role string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(database *sql.DB) UserRepository {
	return &userRepository{db: database}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, password_hash, role FROM users WHERE email = $1`, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*db.User, error) {
	var user db.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, password_hash, role FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, name, email, phone, password, role string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, password_hash, role) VALUES ($1, $2, $3, $4, $5)`,
		name, email, phone, hashedPassword, role)
	if err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

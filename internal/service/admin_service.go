package service

import (
	"context"
	"errors"
	"fmt"

	"cartbooking/internal/db"
	"cartbooking/internal/entities"
	"cartbooking/internal/repository"
)

var (
	ErrSelfRoleChange = errors.New("you cannot change your own role")
	ErrSelfDelete     = errors.New("you cannot delete yourself")
)

type AdminService struct {
	adminRepo *repository.AdminRepository
}

func NewAdminService(adminRepo *repository.AdminRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo}
}

func (s *AdminService) ListReservations(ctx context.Context, date, cartName, status string) ([]entities.AdminReservation, error) {
	return s.adminRepo.ListReservations(ctx, date, cartName, status)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]db.User, error) {
	return s.adminRepo.ListUsers(ctx)
}

// SetUserRole changes another user's role. Admins cannot demote themselves,
// matching the self-service guard in the admin UI rules.
func (s *AdminService) SetUserRole(ctx context.Context, actingUserID, targetUserID int, role string) error {
	if actingUserID == targetUserID {
		return ErrSelfRoleChange
	}
	switch role {
	case db.RoleProfessor, db.RoleOperational, db.RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q", role)
	}
	return s.adminRepo.SetUserRole(ctx, targetUserID, role)
}

func (s *AdminService) DeleteUser(ctx context.Context, actingUserID, targetUserID int) error {
	if actingUserID == targetUserID {
		return ErrSelfDelete
	}
	return s.adminRepo.DeleteUser(ctx, targetUserID)
}

func (s *AdminService) UpdateCart(ctx context.Context, cartID int, location string, capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("capacity must be a positive integer")
	}
	return s.adminRepo.UpdateCart(ctx, cartID, location, capacity)
}

func (s *AdminService) GetCart(ctx context.Context, cartID int) (*db.Cart, error) {
	return s.adminRepo.GetCart(ctx, cartID)
}

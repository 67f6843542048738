package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cartbooking/internal/auth"
	"cartbooking/internal/db"
	"cartbooking/internal/entities"
	"cartbooking/internal/service"
)

// AdminService is the surface the admin handlers depend on.
type AdminService interface {
	ListReservations(ctx context.Context, date, cartName, status string) ([]entities.AdminReservation, error)
	ListUsers(ctx context.Context) ([]db.User, error)
	SetUserRole(ctx context.Context, actingUserID, targetUserID int, role string) error
	DeleteUser(ctx context.Context, actingUserID, targetUserID int) error
	UpdateCart(ctx context.Context, cartID int, location string, capacity int) error
}

// ReservationCompleter closes out active reservations.
type ReservationCompleter interface {
	CompleteReservation(ctx context.Context, reservationID int, completedBy string) error
}

type AdminHandler struct {
	Service      AdminService
	Reservations ReservationCompleter
	Auth         service.AuthService
}

func NewAdminHandler(svc AdminService, reservations ReservationCompleter, authSvc service.AuthService) *AdminHandler {
	return &AdminHandler{Service: svc, Reservations: reservations, Auth: authSvc}
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	cartName := r.URL.Query().Get("cart")
	status := r.URL.Query().Get("status")
	if status == "" {
		status = db.StatusActive
	}
	reservations, err := h.Service.ListReservations(r.Context(), date, cartName, status)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *AdminHandler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Reservations.CompleteReservation(r.Context(), id, claims.Email); err != nil {
		http.Error(w, "Could not complete reservation", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reservation completed"})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Auth.CreateUser(r.Context(), req.Name, req.Email, req.Phone, req.Password, req.Role); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created"})
}

func (h *AdminHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Service.SetUserRole(r.Context(), claims.UserID, id, req.Role); err != nil {
		if errors.Is(err, service.ErrSelfRoleChange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Could not update role", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Service.DeleteUser(r.Context(), claims.UserID, id); err != nil {
		if errors.Is(err, service.ErrSelfDelete) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Could not delete user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (h *AdminHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req UpdateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Service.UpdateCart(r.Context(), id, req.Location, req.Capacity); err != nil {
		http.Error(w, "Could not update cart", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart updated"})
}

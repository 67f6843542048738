package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cartbooking/internal/auth"
	"cartbooking/internal/availability"
	"cartbooking/internal/db"
	"cartbooking/internal/entities"
	httperrors "cartbooking/internal/errors"
	"cartbooking/internal/service"
)

// ReservationService is the surface the user-facing handlers depend on.
type ReservationService interface {
	ListCarts(ctx context.Context) ([]db.Cart, error)
	CheckAvailability(ctx context.Context, cartID int, start, end time.Time) (*entities.AvailabilityResponse, error)
	CreateReservation(ctx context.Context, userID int, req *entities.ReservationRequest) (*entities.ReservationResponse, error)
	GetReservation(ctx context.Context, userID int, isManager bool, code string) (*entities.ReservationResponse, error)
	ListUserReservations(ctx context.Context, userID int) ([]entities.ReservationResponse, error)
	CancelReservation(ctx context.Context, userID int, isManager bool, code string) error
	RegisterRecurrence(ctx context.Context, userID int, req *entities.RecurrenceRequest) (*entities.RecurrenceResponse, error)
	CancelRecurrence(ctx context.Context, userID int, isManager bool, ruleID int) error
}

type UserReservationHandler struct {
	Service ReservationService
}

func NewUserReservationHandler(svc ReservationService) *UserReservationHandler {
	return &UserReservationHandler{Service: svc}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *UserReservationHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.Service.ListCarts(r.Context())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	out := make([]CartResponse, 0, len(carts))
	for _, c := range carts {
		out = append(out, CartResponse{ID: c.ID, Name: c.Name, Location: c.Location, Capacity: c.Capacity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UserReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	cartID, err := strconv.Atoi(query.Get("cart_id"))
	if err != nil {
		http.Error(w, "Missing or invalid cart_id", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, query.Get("start_time"))
	if err != nil {
		http.Error(w, "Invalid start_time", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, query.Get("end_time"))
	if err != nil {
		http.Error(w, "Invalid end_time", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.CheckAvailability(r.Context(), cartID, start, end)
	if err != nil {
		httpErr := httperrors.FromAvailability(err)
		http.Error(w, httpErr.Message, httpErr.Code)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req entities.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.CreateReservation(r.Context(), claims.UserID, &req)
	if err != nil {
		var capErr *availability.CapacityError
		if errors.As(err, &capErr) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":           capErr.Error(),
				"available_count": capErr.Remaining,
			})
			return
		}
		httpErr := httperrors.FromAvailability(err)
		http.Error(w, httpErr.Message, httpErr.Code)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *UserReservationHandler) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	reservations, err := h.Service.ListUserReservations(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *UserReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	code := mux.Vars(r)["code"]
	res, err := h.Service.GetReservation(r.Context(), claims.UserID, claims.IsManager(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotOwner) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	code := mux.Vars(r)["code"]
	if err := h.Service.CancelReservation(r.Context(), claims.UserID, claims.IsManager(), code); err != nil {
		if errors.Is(err, service.ErrNotOwner) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "Could not cancel reservation", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reservation cancelled"})
}

func (h *UserReservationHandler) CreateRecurrence(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.RecurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.RegisterRecurrence(r.Context(), claims.UserID, &req)
	if err != nil {
		var capErr *availability.CapacityError
		if errors.As(err, &capErr) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":           capErr.Error(),
				"available_count": capErr.Remaining,
			})
			return
		}
		httpErr := httperrors.FromAvailability(err)
		http.Error(w, httpErr.Message, httpErr.Code)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *UserReservationHandler) CancelRecurrence(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Service.CancelRecurrence(r.Context(), claims.UserID, claims.IsManager(), id); err != nil {
		if errors.Is(err, service.ErrNotOwner) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "Could not cancel recurrence", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Recurrence cancelled"})
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"cartbooking/internal/api"
	"cartbooking/internal/auth"
	"cartbooking/internal/repository"
	"cartbooking/internal/service"
)

func main() {
	godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	reservationRepo := repository.NewReservationRepository(db)
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	jobRepo := repository.NewJobRepository(db)

	sender := service.NewSenderService()
	reservationSvc := service.NewReservationService(reservationRepo, userRepo, sender)
	adminSvc := service.NewAdminService(adminRepo)
	authSvc := service.NewAuthService(userRepo)
	jobSvc := service.NewJobService(jobRepo)

	userHandler := api.NewUserReservationHandler(reservationSvc)
	adminHandler := api.NewAdminHandler(adminSvc, reservationSvc, authSvc)
	authHandler := api.NewAuthHandler(authSvc)

	r := mux.NewRouter()

	// Public endpoint
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Authenticated user endpoints
	user := r.PathPrefix("/api").Subrouter()
	user.Use(auth.Middleware)
	user.HandleFunc("/carts", userHandler.ListCarts).Methods("GET")
	user.HandleFunc("/availability", userHandler.CheckAvailability).Methods("GET")
	user.HandleFunc("/reservations", userHandler.CreateReservation).Methods("POST")
	user.HandleFunc("/reservations", userHandler.ListMyReservations).Methods("GET")
	user.HandleFunc("/reservations/{code}", userHandler.GetReservation).Methods("GET")
	user.HandleFunc("/reservations/{code}", userHandler.CancelReservation).Methods("DELETE")
	user.HandleFunc("/recurrences", userHandler.CreateRecurrence).Methods("POST")
	user.HandleFunc("/recurrences/{id}", userHandler.CancelRecurrence).Methods("DELETE")

	// Manager endpoints (operational + admin); user and cart management is
	// gated down to admins per route.
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware, auth.RequireManager)
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/reservations/{id}/complete", adminHandler.CompleteReservation).Methods("POST")
	admin.Handle("/users", auth.RequireAdmin(http.HandlerFunc(adminHandler.ListUsers))).Methods("GET")
	admin.Handle("/users", auth.RequireAdmin(http.HandlerFunc(adminHandler.CreateUser))).Methods("POST")
	admin.Handle("/users/{id}/role", auth.RequireAdmin(http.HandlerFunc(adminHandler.SetUserRole))).Methods("PUT")
	admin.Handle("/users/{id}", auth.RequireAdmin(http.HandlerFunc(adminHandler.DeleteUser))).Methods("DELETE")
	admin.Handle("/carts/{id}", auth.RequireAdmin(http.HandlerFunc(adminHandler.UpdateCart))).Methods("PUT")

	c := cron.New()
	c.AddFunc("@every 10m", func() {
		if err := jobSvc.CompleteOverdueReservations(context.Background()); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	})
	c.AddFunc("@daily", func() {
		if err := jobSvc.CleanupExpiredRecurrences(context.Background()); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	})
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}

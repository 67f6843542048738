// Command setup creates the schema, seeds the device carts, and ensures the
// initial admin user exists. Safe to run repeatedly.
package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'professor'
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		location TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id SERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		cart_id INTEGER NOT NULL REFERENCES carts(id),
		user_id INTEGER NOT NULL REFERENCES users(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		room TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		recurrence_id UUID,
		completed_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_cart_status ON reservations (cart_id, status)`,
	`CREATE TABLE IF NOT EXISTS recurrence_rules (
		id SERIAL PRIMARY KEY,
		group_id UUID NOT NULL,
		cart_id INTEGER NOT NULL REFERENCES carts(id),
		user_id INTEGER NOT NULL REFERENCES users(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		start_minute INTEGER NOT NULL CHECK (start_minute BETWEEN 0 AND 1439),
		end_minute INTEGER NOT NULL CHECK (end_minute > start_minute AND end_minute <= 1440),
		until DATE NOT NULL,
		room TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

type seedCart struct {
	name     string
	location string
	capacity int
}

var carts = []seedCart{
	{"Cart 1", "Block A - 1st floor", 35},
	{"Cart 2", "Block A - 2nd floor", 35},
	{"Cart 3", "Block A - 3rd floor", 34},
	{"Cart 4", "Block C corridor", 35},
	{"Cart 5", "Maker room, Block E", 35},
}

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
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
	}
	log.Println("Schema created/verified.")

	for _, c := range carts {
		_, err := db.Exec(
			`INSERT INTO carts (name, location, capacity) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			c.name, c.location, c.capacity)
		if err != nil {
			log.Fatalf("Failed to seed cart %q: %v", c.name, err)
		}
	}
	log.Println("Carts seeded/verified.")

	adminEmail := os.Getenv("INITIAL_ADMIN_EMAIL")
	if adminEmail == "" {
		log.Fatal("INITIAL_ADMIN_EMAIL not set")
	}
	adminPassword := os.Getenv("INITIAL_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("INITIAL_ADMIN_PASSWORD not set")
	}

	var exists bool
	if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, adminEmail).Scan(&exists); err != nil {
		log.Fatalf("Failed to look up admin user: %v", err)
	}

	if exists {
		if _, err := db.Exec(`UPDATE users SET role = 'admin' WHERE email = $1`, adminEmail); err != nil {
			log.Fatalf("Failed to promote admin user: %v", err)
		}
		log.Printf("User %s verified and set as admin.", adminEmail)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, 'admin')`,
		"Default Administrator", adminEmail, hash)
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Default admin user (%s) created.", adminEmail)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/budtender/budtender-backend/internal/auth"
	"github.com/budtender/budtender-backend/internal/config"
	"github.com/budtender/budtender-backend/internal/database"
)

func main() {
	var (
		email    = flag.String("email", "", "Admin email (required)")
		password = flag.String("password", "", "Admin password (required)")
		userID   = flag.String("id", "", "User id (defaults to a generated one)")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("Both -email and -password are required")
	}
	if err := auth.ValidatePassword(*password); err != nil {
		log.Fatal("Weak password: ", err)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := sqlx.Connect("postgres", database.GetDSN(cfg.Database))
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	id := *userID
	if id == "" {
		id = "admin_" + uuid.New().String()
	}

	query := `
		INSERT INTO users (user_id, user_email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, 'admin', $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			user_email = EXCLUDED.user_email,
			password_hash = EXCLUDED.password_hash,
			role = 'admin',
			updated_at = EXCLUDED.updated_at`

	if _, err := db.ExecContext(context.Background(), query, id, *email, hash, time.Now()); err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	fmt.Printf("Admin account ready:\n")
	fmt.Printf("   Email: %s\n", *email)
	fmt.Printf("   ID: %s\n", id)
	fmt.Printf("\nLog in via POST /api/auth/login\n")
}

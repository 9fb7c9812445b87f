// seed inserts an initial admin employee for local testing. Idempotent:
// skips the insert when the admin employee id already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"token-authority/internal/config"
	"token-authority/internal/db"
	"token-authority/internal/security"
	"token-authority/internal/user/domain"
	userrepo "token-authority/internal/user/repository"
)

const (
	adminEmployeeID = "A000"
	adminPassword   = "admin-password-123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.New(ctx, db.Config{URL: cfg.DatabaseURL, QueryTimeout: 10 * time.Second})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	repo := userrepo.NewPostgresRepository(pool)

	existing, err := repo.FindByEmployeeID(ctx, adminEmployeeID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", adminEmployeeID)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(adminPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &domain.Employee{
		ID:           uuid.New().String(),
		EmployeeID:   adminEmployeeID,
		PasswordHash: hash,
		Name:         "Bootstrap Admin",
		Email:        "admin@example.com",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    "seed",
		UpdatedBy:    "seed",
	}
	if err := repo.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Admin login: %s / %s\n", adminEmployeeID, adminPassword)
}

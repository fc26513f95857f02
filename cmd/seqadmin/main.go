// Command seqadmin seeds an administrator account so a fresh deployment has
// someone who can manage roles. The email comes from a flag or ADMIN_EMAIL;
// the password from ADMIN_PASSWORD or an interactive prompt.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/config"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/repomanager"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	var email, name string
	flag.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "admin account email")
	flag.StringVar(&name, "name", "Administrator", "admin display name")
	flag.Parse()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("missing admin email: pass -email or set ADMIN_EMAIL")
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		fmt.Print("Admin password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("password prompt failed: %w", err)
		}
		password = string(raw)
	}
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	hasher := auth.NewPasswordHasher(auth.PasswordParams{
		MemoryKiB:   cfg.PasswordMemoryKiB,
		Time:        cfg.PasswordTime,
		Parallelism: cfg.PasswordParallelism,
	})
	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := &models.User{
		ID:            uuid.NewString(),
		Email:         email,
		Name:          name,
		EmailVerified: true,
		Role:          models.RoleAdmin,
	}
	if _, err := rm.Users(db).Create(ctx, user, hash); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			fmt.Println("Admin user already exists:", email)
			return nil
		}
		return fmt.Errorf("seed admin failed: %w", err)
	}

	fmt.Println("Admin user seeded:", email)
	return nil
}

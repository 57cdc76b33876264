// seed-user creates an operator account that can call the protected
// monitor endpoints (sync trigger, validation run, health refresh).
package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
)

const minPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

func main() {
	name := flag.String("name", "", "Full name of the operator (required)")
	email := flag.String("email", "", "Email address (required)")
	password := flag.String("password", "", "Password (required, min 8 chars)")
	flag.Parse()

	logger.Init("info", true)

	if err := validateInputs(*name, *email, *password); err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid input")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to ping database")
	}

	userID, err := createOperator(ctx, pool, *name, *email, *password)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to create operator account")
	}

	logger.Logger.Info().
		Str("user_id", userID).
		Str("email", strings.ToLower(strings.TrimSpace(*email))).
		Msg("operator account created")
}

func validateInputs(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	hasLetter := regexp.MustCompile(`[a-zA-Z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`[0-9]`).MatchString(password)
	if !hasLetter || !hasNumber {
		return fmt.Errorf("password must contain at least one letter and one number")
	}
	return nil
}

func createOperator(ctx context.Context, pool *pgxpool.Pool, name, email, password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var id string
	err = pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, hashed_password) VALUES ($1, $2, $3, $4) RETURNING id`,
		uuid.New().String(), name, strings.ToLower(strings.TrimSpace(email)), string(hashed),
	).Scan(&id)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return "", fmt.Errorf("operator with email %s already exists", email)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

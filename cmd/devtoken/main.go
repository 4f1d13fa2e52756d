// Command devtoken mints an access token for an existing user. Identity is
// owned by an upstream provider in production; this is for local use and
// smoke tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/config"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/postgresql"
	authService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/auth"
	"github.com/spf13/pflag"
)

func main() {
	userID, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(2)
	}

	if err := run(userID); err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
}

// parseFlags returns the --user value. It is required.
func parseFlags(args []string) (string, error) {
	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	userID := flagSet.StringP("user", "u", "", "user id to mint a token for")
	if err := flagSet.Parse(args); err != nil {
		return "", err
	}
	if *userID == "" {
		return "", errors.New("--user is required")
	}
	return *userID, nil
}

func run(userID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.New(logger.Options{App: cfg.App.Name, Version: cfg.App.Version, Env: cfg.App.Env, Level: "warn"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var users user.UserRepository
	switch cfg.Database.Driver {
	case config.DriverMemory:
		if cfg.Database.SeedFile == "" {
			return fmt.Errorf("MEMORY_SEED_FILE is required with the memory driver")
		}
		store := memory.NewStore()
		if _, err := store.SeedUsersFromFile(ctx, cfg.Database.SeedFile); err != nil {
			return err
		}
		users = store.Users()
	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		users = postgresql.NewUserRepository(db)
	}

	// Revocations live in the server; a fresh token is never revoked.
	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, jwt.NewMemoryRevocationStore())
	if err != nil {
		return err
	}

	token, err := authService.NewAuthService(users, JWTService).IssueToken(ctx, auth.IssueTokenRequest{UserID: userID})
	if err != nil {
		return err
	}

	fmt.Println(token.AccessToken)
	fmt.Fprintln(os.Stderr, "expires at", time.Unix(token.AccessTokenExpiresAt, 0).In(cfg.Location()).Format(time.RFC3339))
	return nil
}

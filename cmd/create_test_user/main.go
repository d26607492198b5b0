package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"task_manager/internal/config"
	"task_manager/internal/db"
	"task_manager/internal/logger"
	"task_manager/internal/repository"
	"task_manager/internal/service"

	"golang.org/x/crypto/bcrypt"
)

// create_test_user registers a seed user (or reuses an existing one) and
// prints a bearer token for it.
func main() {
	name := flag.String("name", "Tester", "display name")
	email := flag.String("email", "tester@example.com", "login email")
	password := flag.String("password", "secret123", "login password")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	handle, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer handle.Close()

	if err := handle.Migrate(ctx); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}

	tokens, err := service.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("invalid JWT configuration", "error", err)
	}

	users, _ := repository.New(handle)
	auth := service.NewAuthService(users, service.NewPasswordHasher(bcrypt.DefaultCost), tokens)

	u, err := auth.Register(ctx, service.RegisterInput{Name: *name, Email: *email, Password: *password})
	switch {
	case err == nil:
		logger.Info("user created", "id", u.ID, "email", u.Email)
	case errors.Is(err, service.ErrDuplicateIdentity):
		logger.Info("user already exists", "email", *email)
	default:
		logger.Fatal("create user failed", "error", err)
	}

	res, err := auth.Login(ctx, *email, *password)
	if err != nil {
		logger.Fatal("login failed", "error", err)
	}
	logger.Info("fetched user", "id", res.User.ID, "name", res.User.Name, "email", res.User.Email)

	fmt.Printf("token=%s\n", res.Token)
}

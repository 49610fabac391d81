package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go-pen-inventory/internal/config"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/pkg/database"
	"go-pen-inventory/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	email := flag.String("email", "admin@example.com", "user whose password is reset")
	password := flag.String("password", "admin123", "new password")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	// 2. Setup Database
	db, err := database.ConnectDB(database.Options{
		DSN:             cfg.Database.DSN(),
		MaxIdleConns:    1,
		MaxOpenConns:    2,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepo(db)

	// 3. Find user
	user, err := userRepo.FindByEmail(ctx, *email)
	if err != nil {
		log.WithError(err).Fatalf("User %s not found in database", *email)
	}

	// 4. Hash new password
	if err := user.SetPassword(*password); err != nil {
		log.WithError(err).Fatal("Failed to hash password")
	}

	// 5. Update, and drop any live session
	if err := userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		log.WithError(err).Fatal("Failed to update password in DB")
	}
	if err := userRepo.RecordLogin(ctx, user.ID, uuid.New().String(), time.Now()); err != nil {
		log.WithError(err).Warn("Failed to revoke existing sessions")
	}

	log.WithField("email", *email).Info("Password has been reset")
}

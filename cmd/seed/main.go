package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"tanrid/internal/auth"
	"tanrid/internal/config"
	apperrors "tanrid/internal/errors"
	"tanrid/internal/logging"
	"tanrid/internal/model"
	"tanrid/internal/repository"
	"tanrid/internal/service"
)

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	Name     string `json:"name" validate:"max=255"`
}

var (
	seedFile = pflag.StringP("file", "f", "seed/users.json", "JSON array of {email,password,name} to create")
	dryRun   = pflag.Bool("dry-run", false, "validate the seed file without writing users")
)

func main() {
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	fs := afero.NewOsFs()
	seedUsers, err := loadSeedUsers(fs, *seedFile)
	if err != nil {
		logger.Fatal("load seed file", zap.String("file", *seedFile), zap.Error(err))
	}
	logger.Info("loaded seed file", zap.String("file", *seedFile), zap.Int("users", len(seedUsers)))
	if *dryRun {
		return
	}

	users, err := repository.Open(cfg, fs)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}

	created, skipped, err := seedAccounts(context.Background(), users, auth.NewBcryptHasher(cfg.BcryptCost), seedUsers)
	if err != nil {
		logger.Fatal("seed users", zap.Error(err))
	}

	logger.Info("seed completed",
		zap.Int("created", created),
		zap.Int("skipped_existing", skipped),
		zap.Int("total", created+skipped),
	)
}

// loadSeedUsers reads and validates the seed file.
func loadSeedUsers(fs afero.Fs, path string) ([]SeedUser, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seedUsers []SeedUser
	if err := json.Unmarshal(data, &seedUsers); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	validate := service.NewValidator()
	for i, u := range seedUsers {
		u.Email = model.NormalizeEmail(u.Email)
		if err := validate.Struct(u); err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, u.Email, err)
		}
		seedUsers[i] = u
	}
	return seedUsers, nil
}

// seedAccounts creates every user whose email is not registered yet.
func seedAccounts(ctx context.Context, users repository.UserRepository, hasher auth.PasswordHasher, seedUsers []SeedUser) (created int, skipped int, err error) {
	for _, su := range seedUsers {
		hash, err := hasher.Hash(su.Password)
		if err != nil {
			return created, skipped, fmt.Errorf("hash password for %s: %w", su.Email, err)
		}

		_, err = users.Create(ctx, &model.User{Email: su.Email, PasswordHash: hash, Name: su.Name})
		if errors.Is(err, apperrors.ErrEmailAlreadyRegistered) {
			skipped++
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("create %s: %w", su.Email, err)
		}
		created++
	}
	return created, skipped, nil
}

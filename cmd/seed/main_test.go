package main

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tanrid/internal/auth"
	"tanrid/internal/repository"
)

func TestLoadSeedUsers(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "users.json", []byte(`[
		{"email": " Alice@Example.com", "password": "password123", "name": "Alice"},
		{"email": "bob@example.com", "password": "password456"}
	]`), 0o600))

	users, err := loadSeedUsers(fs, "users.json")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice@example.com", users[0].Email)
}

func TestLoadSeedUsers_RejectsInvalidEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "users.json", []byte(`[{"email":"alice@example.com","password":"short"}]`), 0o600))

	_, err := loadSeedUsers(fs, "users.json")
	assert.ErrorContains(t, err, "seed entry 0")
}

func TestLoadSeedUsers_RejectsPasswordOverBcryptLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	entry := `[{"email":"alice@example.com","password":"` + strings.Repeat("p", 80) + `"}]`
	require.NoError(t, afero.WriteFile(fs, "users.json", []byte(entry), 0o600))

	_, err := loadSeedUsers(fs, "users.json")
	assert.ErrorContains(t, err, "maxbytes")
}

func TestSeedAccounts_SkipsExisting(t *testing.T) {
	users := repository.NewJSONUserRepository(afero.NewMemMapFs(), "/data")
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	seed := []SeedUser{
		{Email: "alice@example.com", Password: "password123"},
		{Email: "bob@example.com", Password: "password456"},
	}

	created, skipped, err := seedAccounts(context.Background(), users, hasher, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)

	created, skipped, err = seedAccounts(context.Background(), users, hasher, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)

	alice, err := users.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(alice.PasswordHash, "password123"))
}

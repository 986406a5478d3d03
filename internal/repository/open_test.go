package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanrid/internal/config"
	"tanrid/internal/model"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"json", &config.Config{StorageDriver: "json", DataDir: "/data"}},
		{"sqlite", &config.Config{StorageDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "users.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := Open(tt.cfg, afero.NewMemMapFs())
			require.NoError(t, err)

			created, err := repo.Create(context.Background(), &model.User{Email: "a@b.com", PasswordHash: "h"})
			require.NoError(t, err)
			found, err := repo.FindByEmail(context.Background(), "a@b.com")
			require.NoError(t, err)
			assert.Equal(t, created.ID, found.ID)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{StorageDriver: "mongo"}, afero.NewMemMapFs())
	assert.Error(t, err)
}

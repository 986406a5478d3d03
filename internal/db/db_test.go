package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	gormDB, err := Open("sqlite", filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		forceSSL string
		want     string
	}{
		{"untouched by default", "postgres://u:p@db:5432/app", "", "postgres://u:p@db:5432/app"},
		{"disable appends sslmode", "postgres://u:p@db:5432/app", "false", "postgres://u:p@db:5432/app?sslmode=disable"},
		{"existing sslmode kept", "postgres://db/app?sslmode=require", "false", "postgres://db/app?sslmode=require"},
		{"keyword form", "host=db user=u dbname=app", "false", "host=db user=u dbname=app sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PostgresDSN(tt.url, tt.forceSSL))
		})
	}
}

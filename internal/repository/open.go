package repository

import (
	"github.com/spf13/afero"

	"tanrid/internal/config"
	"tanrid/internal/db"
)

// Open returns the user store selected by STORAGE_DRIVER. The JSON store lives on fs;
// relational drivers connect through db.Open.
func Open(cfg *config.Config, fs afero.Fs) (UserRepository, error) {
	if cfg.StorageDriver == "json" {
		return NewJSONUserRepository(fs, cfg.DataDir), nil
	}

	dsn := cfg.DSN()
	if cfg.StorageDriver == "postgres" {
		dsn = db.PostgresDSN(dsn, cfg.ForceDBSSL)
	}
	gormDB, err := db.Open(cfg.StorageDriver, dsn)
	if err != nil {
		return nil, err
	}
	return NewGormUserRepository(gormDB), nil
}

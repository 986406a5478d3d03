package db

import (
	"fmt"
	"net/url"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a connected GORM DB instance for driver (mysql, postgres or sqlite).
// Driver errors are translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// PostgresDSN applies FORCE_DB_SSL to a postgres URL. "false" disables TLS
// unless the URL already names an sslmode.
func PostgresDSN(databaseURL, forceSSL string) string {
	if !strings.EqualFold(forceSSL, "false") || strings.Contains(databaseURL, "sslmode=") {
		return databaseURL
	}
	u, err := url.Parse(databaseURL)
	if err != nil || u.Scheme == "" {
		return strings.TrimSpace(databaseURL + " sslmode=disable")
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

package config

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewDatabase opens the store selected by STORE_DRIVER.
func NewDatabase(cfg *Config) (*sql.DB, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return NewPostgres(cfg)
	case "sqlite":
		return NewSQLite(cfg)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func NewPostgres(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

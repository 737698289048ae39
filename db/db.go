package db

import (
	"database/sql"
	"fmt"
	"go-bank-ledger/config"
	"go-bank-ledger/logger"

	_ "github.com/lib/pq"
)

// DSN builds the lib/pq connection string. lock_timeout is sent as a runtime
// parameter so every session gives up on a contended row lock instead of waiting forever.
func DSN(withPassword bool) string {
	cfg := config.AppConfig.Database
	password := ""
	if withPassword {
		password = fmt.Sprintf(" password=%s", cfg.Password)
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, password, cfg.Name, cfg.SSLMode)
	if cfg.LockTimeout > 0 {
		connStr += fmt.Sprintf(" lock_timeout=%d", cfg.LockTimeout.Milliseconds())
	}
	return connStr
}

func Connect() (*sql.DB, error) {
	cfg := config.AppConfig.Database

	logger.Log.WithField("connection", DSN(false)).Info("Attempting to connect to the database")

	db, err := sql.Open("postgres", DSN(true))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err = db.Ping(); err != nil {
		logger.Log.WithError(err).Error("Failed to ping database")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established successfully")
	return db, nil
}

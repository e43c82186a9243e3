package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"mediachat/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite3/*.sql migrations/mysql/*.sql
var embedMigrations embed.FS

// driverName maps a configured database type to its sql driver.
func driverName(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "mysql":
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported driver: %s", dbType)
}

// Open connects to the configured database; sqlite3 is the default driver.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}
	dsn, err := buildDSN(driver, dbCfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite3" {
		// every new connection to :memory: would see an empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func buildDSN(driver string, dbCfg config.DatabaseConfig) (string, error) {
	if driver == "sqlite3" {
		if dbCfg.DSN == "" {
			return "", fmt.Errorf("sqlite dsn must be provided")
		}
		if dbCfg.DSN != ":memory:" && !strings.HasPrefix(dbCfg.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(dbCfg.DSN), 0o755); err != nil {
				return "", fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return dbCfg.DSN, nil
	}

	if dbCfg.DSN != "" {
		return dbCfg.DSN, nil
	}
	params, err := url.ParseQuery(dbCfg.Params)
	if err != nil {
		return "", fmt.Errorf("mysql params: %w", err)
	}
	// DATETIME columns are scanned into time.Time
	if params.Get("parseTime") == "" {
		params.Set("parseTime", "true")
	}
	if params.Get("loc") == "" {
		params.Set("loc", "UTC")
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.Username, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.DBName, params.Encode()), nil
}

// Migrate applies the embedded goose migrations for the driver.
func Migrate(db *sql.DB, dbType string) error {
	driver, err := driverName(dbType)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations/"+driver); err != nil {
		return fmt.Errorf("migrate (%s): %w", driver, err)
	}
	return nil
}

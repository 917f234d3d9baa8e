package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/psycacid/musichub/config"
	"github.com/psycacid/musichub/logger"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// Open connects to the catalog database selected by cfg.DBDriver and pings it.
func Open(cfg *config.Config) (*sql.DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.DBDriver {
	case config.DriverSQLite:
		conn, err = OpenSQLite(cfg.DBPath)
	case config.DriverMySQL:
		conn, err = openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns > 0 && cfg.DBPath != MemoryPath {
		conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}

	logger.Info("Successfully connected to the database.", logger.String("driver", cfg.DBDriver))
	return conn, nil
}

// OpenSQLite opens a SQLite database file. Writers wait on a busy database
// instead of failing immediately.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != MemoryPath {
		q := url.Values{}
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "journal_mode(WAL)")
		dsn = "file:" + path + "?" + q.Encode()
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

func openMySQL(cfg *config.Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	// UPDATE reports matched rows, not changed rows, the same way SQLite does.
	mc.ClientFoundRows = true

	conn, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	conn.SetConnMaxLifetime(time.Hour)

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// InitDB creates the catalog tables if they don't exist and seeds the admin user.
func InitDB(ctx context.Context, conn *sql.DB, driver, adminPassword string) error {
	stmts, err := schemaFor(driver)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.table, err)
		}
		logger.Debug("Table initialized successfully (or already exists).", logger.String("table", stmt.table))
	}

	if err := seedAdmin(ctx, conn, adminPassword); err != nil {
		return err
	}

	logger.Info("Database initialization completed.")
	return nil
}

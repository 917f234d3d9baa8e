package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/psycacid/musichub/config"
	"github.com/psycacid/musichub/core/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBCreatesTablesAndAdmin(t *testing.T) {
	conn, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, InitDB(ctx, conn, config.DriverSQLite, "secret"))

	var hash, role string
	err = conn.QueryRow(`SELECT password, role FROM users WHERE username = 'admin'`).Scan(&hash, &role)
	require.NoError(t, err)
	assert.Equal(t, "admin", role)
	assert.True(t, auth.CheckPasswordHash("secret", hash))

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestInitDBIsIdempotent(t *testing.T) {
	conn, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, InitDB(ctx, conn, config.DriverSQLite, "first"))
	require.NoError(t, InitDB(ctx, conn, config.DriverSQLite, "second"))

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInitDBUnknownDriver(t *testing.T) {
	conn, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	defer conn.Close()

	assert.Error(t, InitDB(context.Background(), conn, "postgres", "x"))
}

func TestOpenSQLiteFile(t *testing.T) {
	cfg := &config.Config{
		DBDriver:       config.DriverSQLite,
		DBPath:         filepath.Join(t.TempDir(), "catalog.db"),
		DBMaxOpenConns: 4,
	}
	conn, err := Open(cfg)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, InitDB(context.Background(), conn, cfg.DBDriver, "admin"))
	_, err = conn.Exec(`INSERT INTO songs (title, artist, file_path) VALUES ('t', 'a', 'audio/x.mp3')`)
	assert.NoError(t, err)
}

func TestInitDBRejectsEmptyAdminPassword(t *testing.T) {
	conn, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	defer conn.Close()

	err = InitDB(context.Background(), conn, config.DriverSQLite, "")
	assert.ErrorIs(t, err, auth.ErrEmptyPassword)
}

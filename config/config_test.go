package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		// Setenv registers the restore on cleanup.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "SERVER_ADDR", "DB_DRIVER", "DB_PATH", "STORAGE_BACKEND", "UPLOAD_DIR", "SONG_CACHE_TTL", "MAX_UPLOAD_MB")

	cfg := Load()

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, BackendLocal, cfg.StorageBackend)
	assert.Equal(t, ":3000", cfg.ServerAddr)
	assert.Equal(t, "music_database.db", cfg.DBPath)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, 10*time.Minute, cfg.SongCacheTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SONG_CACHE_TTL", "30s")
	t.Setenv("IMPORT_WORKERS", "not-a-number")

	cfg := Load()

	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, BackendMinio, cfg.StorageBackend)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.SongCacheTTL)
	assert.Equal(t, 4, cfg.ImportWorkers)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "postgres" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "s3" }, wantErr: true},
		{name: "zero upload size", mutate: func(c *Config) { c.MaxUploadMB = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{DBDriver: DriverSQLite, StorageBackend: BackendLocal, MaxUploadMB: 1}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateClampsImportWorkers(t *testing.T) {
	cfg := &Config{DBDriver: DriverSQLite, StorageBackend: BackendLocal, MaxUploadMB: 1, ImportWorkers: 0}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.ImportWorkers)
}

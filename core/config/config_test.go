package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Warehouse.Driver)
	assert.Equal(t, 3306, cfg.Warehouse.Port)
	assert.Equal(t, "mlwarehouse", cfg.Warehouse.Name)
	assert.Equal(t, "api", cfg.Target.Driver)
	assert.Equal(t, 200, cfg.Target.API.PageSize)
	assert.True(t, cfg.Target.Postgres.Migrate)
	assert.Equal(t, "reports", cfg.Storage.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 200, cfg.Sync.LookupBatchSize)
	assert.Equal(t, uint64(4), cfg.Sync.Retry.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.Retry.Base)
	assert.Equal(t, 5*time.Second, cfg.Sync.Retry.Max)
	assert.Empty(t, cfg.Sync.Studies)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("WAREHOUSE_HOST", "mlwh-db.internal")
	t.Setenv("TARGET_DRIVER", "postgres")
	t.Setenv("TARGET_POSTGRES_MAX_CONNS", "3")
	t.Setenv("SYNC_STUDIES", "5901,6771")
	t.Setenv("SYNC_RETRY_BASE", "1s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "mlwh-db.internal", cfg.Warehouse.Host)
	assert.Equal(t, "postgres", cfg.Target.Driver)
	assert.Equal(t, int32(3), cfg.Target.Postgres.MaxConns)
	assert.Equal(t, []string{"5901", "6771"}, cfg.Sync.Studies)
	assert.Equal(t, time.Second, cfg.Sync.Retry.Base)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TARGET_API_TOKEN=from-dotenv\nSERVER_PORT=9090\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("TARGET_API_TOKEN")
		_ = os.Unsetenv("SERVER_PORT")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Target.API.Token)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestSyncConfig_Options(t *testing.T) {
	s := SyncConfig{Studies: []string{"5901"}, DryRun: true, BatchSize: 7, Concurrency: 2}
	opts := s.Options()
	assert.Equal(t, []string{"5901"}, opts.Studies)
	assert.True(t, opts.DryRun)
	assert.Equal(t, 7, opts.BatchSize)
	assert.Equal(t, 2, opts.Concurrency)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.False(t, cfg.Settlement.DevMintEnabled)
}

func TestYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
database:
  driver: sqlite
  dsn: "file:paygate.db"
settlement:
  initializer_allowlist:
    - 4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T
  dev_mint_enabled: true
`), 0o644))

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"}, cfg.Settlement.InitializerAllowlist)
	assert.True(t, cfg.Settlement.DevMintEnabled)
	assert.Equal(t, 30, cfg.Database.AuditRetentionDays)
}

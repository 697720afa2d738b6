package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/placement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  host: 127.0.0.1\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Inventory.Columns)
	assert.Equal(t, 6, cfg.Inventory.Rows)
	assert.Equal(t, 75.0, cfg.Inventory.SlotSize)
	assert.Equal(t, "partial", cfg.Inventory.RootLoadPolicy)
	assert.Equal(t, "all_or_nothing", cfg.Inventory.ContainerLoadPolicy)
	assert.True(t, cfg.Inventory.RequiresOpen())
	assert.Equal(t, "gridinv:", cfg.Redis.KeyPrefix)
	assert.False(t, cfg.JWT.Enabled)
}

func TestParseInventorySection(t *testing.T) {
	data := []byte(`
inventory:
  columns: 8
  rows: 5
  slot_size: 64
  root_load_policy: all_or_nothing
  container_load_policy: partial
  restore_positions: true
  sticky_pickup: true
  handoff_requires_open: false
  catalog_path: ./items.yaml
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	inv := cfg.Inventory
	assert.Equal(t, 8, inv.Columns)
	assert.Equal(t, 5, inv.Rows)
	assert.Equal(t, 64.0, inv.SlotSize)
	assert.Equal(t, "all_or_nothing", inv.RootLoadPolicy)
	assert.Equal(t, "partial", inv.ContainerLoadPolicy)
	assert.True(t, inv.RestorePositions)
	assert.True(t, inv.StickyPickup)
	assert.False(t, inv.RequiresOpen())
	assert.Equal(t, "./items.yaml", inv.CatalogPath)
}

func TestParseRejectsNegativeSizes(t *testing.T) {
	_, err := Parse([]byte("inventory:\n  columns: -1\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_PUBLIC_KEY_FILE", "/keys/jwt.pem")

	cfg, err := Parse([]byte("redis:\n  address: localhost:6379\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.JWT.Enabled)
	assert.Equal(t, "/keys/jwt.pem", cfg.JWT.PublicKeyFile)

	t.Setenv("SERVER_PORT", "eighty")
	_, err = Parse(nil)
	assert.Error(t, err)
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestServiceConfig(t *testing.T) {
	cfg, err := Parse([]byte("inventory:\n  root_load_policy: all_or_nothing\n  sticky_pickup: true\n"))
	require.NoError(t, err)

	svc, err := cfg.Inventory.ServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, placement.PolicyAllOrNothing, svc.RootPolicy)
	assert.Equal(t, placement.PolicyAllOrNothing, svc.ContainerPolicy)
	assert.Equal(t, geom.Vec{75, 75}, svc.SlotSize)
	assert.True(t, svc.StickyPickup)
	assert.True(t, svc.HandoffRequiresOpen)

	cfg.Inventory.ContainerLoadPolicy = "whatever"
	_, err = cfg.Inventory.ServiceConfig()
	assert.Error(t, err)
}

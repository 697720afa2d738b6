package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Inventory InventoryConfig `yaml:"inventory"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// LayoutTimeoutMs bounds how long a session waits for a client layout pass
	LayoutTimeoutMs int `yaml:"layout_timeout_ms"`
	// SaveIntervalSec is how often open sessions persist their inventory
	SaveIntervalSec int `yaml:"save_interval_seconds"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyFile       string `yaml:"public_key_file"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings. An empty address keeps
// inventories in memory.
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	KeyPrefix       string `yaml:"key_prefix"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// InventoryConfig holds the grid and placement settings
type InventoryConfig struct {
	Columns             int     `yaml:"columns"`
	Rows                int     `yaml:"rows"`
	SlotSize            float64 `yaml:"slot_size"`
	RootLoadPolicy      string  `yaml:"root_load_policy"`      // partial | all_or_nothing
	ContainerLoadPolicy string  `yaml:"container_load_policy"` // partial | all_or_nothing
	RestorePositions    bool    `yaml:"restore_positions"`
	StickyPickup        bool    `yaml:"sticky_pickup"`
	HandoffRequiresOpen *bool   `yaml:"handoff_requires_open"`
	CatalogPath         string  `yaml:"catalog_path"`
}

// RequiresOpen reports whether hand-offs need an open container view.
func (c InventoryConfig) RequiresOpen() bool {
	return c.HandoffRequiresOpen == nil || *c.HandoffRequiresOpen
}

// Load reads configuration from a YAML file. Variables from a .env file next
// to the working directory are loaded first and override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and fills
// in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Set defaults if not provided
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LayoutTimeoutMs == 0 {
		cfg.Server.LayoutTimeoutMs = 2000
	}
	if cfg.Server.SaveIntervalSec == 0 {
		cfg.Server.SaveIntervalSec = 30
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "gridinv:"
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "jwt:blacklist:"
	}
	if cfg.Inventory.Columns == 0 {
		cfg.Inventory.Columns = 10
	}
	if cfg.Inventory.Rows == 0 {
		cfg.Inventory.Rows = 6
	}
	if cfg.Inventory.SlotSize == 0 {
		cfg.Inventory.SlotSize = 75
	}
	if cfg.Inventory.RootLoadPolicy == "" {
		cfg.Inventory.RootLoadPolicy = "partial"
	}
	if cfg.Inventory.ContainerLoadPolicy == "" {
		cfg.Inventory.ContainerLoadPolicy = "all_or_nothing"
	}

	if cfg.Inventory.Columns < 0 || cfg.Inventory.Rows < 0 || cfg.Inventory.SlotSize < 0 {
		return nil, fmt.Errorf("invalid inventory size %dx%d slot %.1f",
			cfg.Inventory.Columns, cfg.Inventory.Rows, cfg.Inventory.SlotSize)
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() error {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_PUBLIC_KEY_URL"); v != "" {
		cfg.JWT.PublicKeyURL = v
		cfg.JWT.Enabled = true
	}
	if v := os.Getenv("JWT_PUBLIC_KEY_FILE"); v != "" {
		cfg.JWT.PublicKeyFile = v
		cfg.JWT.Enabled = true
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Inventory.CatalogPath = v
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-redis/redis/v8"
	"github.com/gravitas-games/gridinv/internal/config"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/store"
	"github.com/gravitas-games/gridinv/internal/tui"
)

func main() {
	// The terminal belongs to the UI; log lines go to a file instead
	logFile, err := tea.LogToFile("gridinv-tui.log", "gridinv")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	catalog := item.SampleCatalog()
	if path := cfg.Inventory.CatalogPath; path != "" {
		if catalog, err = item.LoadCatalog(path); err != nil {
			log.Fatalf("Failed to load item catalog: %v", err)
		}
	}

	invCfg, err := cfg.Inventory.ServiceConfig()
	if err != nil {
		log.Fatalf("Invalid inventory configuration: %v", err)
	}
	invCfg.Owner = os.Getenv("GRIDINV_PLAYER")
	if invCfg.Owner == "" {
		invCfg.Owner = "local"
	}

	ctx := context.Background()
	st, closeStore := openStore(ctx, cfg)
	defer closeStore()

	snap, err := st.Load(ctx, invCfg.Owner)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Fatalf("Failed to load inventory: %v", err)
	}

	m, err := tui.New(ctx, invCfg, catalog, snap)
	if err != nil {
		log.Fatalf("Failed to start inventory: %v", err)
	}
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run(); err != nil {
		log.Fatalf("Inventory UI failed: %v", err)
	}

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := st.Save(saveCtx, invCfg.Owner, m.Service().Snapshot()); err != nil {
		log.Printf("Failed to save inventory: %v", err)
	}
}

// openStore uses Redis when configured so the terminal and websocket hosts
// share inventories.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func()) {
	if cfg.Redis.Address == "" {
		log.Println("No Redis address configured, inventory is not persisted")
		return store.NewMemoryStore(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	return store.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { client.Close() }
}

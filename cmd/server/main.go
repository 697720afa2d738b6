package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/gridinv/internal/config"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/server"
)

func main() {
	log.Println("Starting inventory server...")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded from %s", configPath)
	log.Printf("Server will run on %s:%d", cfg.Server.Host, cfg.Server.Port)

	catalog := item.SampleCatalog()
	if path := cfg.Inventory.CatalogPath; path != "" {
		catalog, err = item.LoadCatalog(path)
		if err != nil {
			log.Fatalf("Failed to load item catalog: %v", err)
		}
		log.Printf("Loaded %d item definitions from %s", catalog.Len(), path)
	}

	// Create and initialize server
	srv, err := server.New(cfg, catalog)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

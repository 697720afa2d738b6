package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/gravitas-games/gridinv/internal/config"
	"github.com/gravitas-games/gridinv/internal/inventory"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/store"
	"github.com/gravitas-games/gridinv/pkg/models"
)

// Server hosts one inventory per connected player
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	router       *mux.Router
	jwtValidator *JWTValidator
	redis        *redis.Client

	catalog         *item.Catalog
	store           store.Store
	bus             *inventory.SimpleEventBus
	inventoryConfig inventory.Config

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex
	wg          sync.WaitGroup

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance. Inventories are kept in Redis when an
// address is configured and in memory otherwise.
func New(cfg *config.Config, catalog *item.Catalog) (*Server, error) {
	log.Println("Initializing server...")

	invCfg, err := cfg.Inventory.ServiceConfig()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:          cfg,
		catalog:         catalog,
		bus:             inventory.NewSimpleEventBus(),
		inventoryConfig: invCfg,
		session:         NewSession("main"),
		connections:     make(map[*Connection]bool),
		ctx:             ctx,
		cancel:          cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"access_token"},
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Add proper origin checking in production
				return true
			},
		},
	}

	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Test Redis connection
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Println("Connected to Redis")
		srv.redis = redisClient
		srv.store = store.NewRedisStore(redisClient, cfg.Redis.KeyPrefix)
	} else {
		log.Println("No Redis address configured, inventories are kept in memory")
		srv.store = store.NewMemoryStore()
	}

	if cfg.JWT.Enabled {
		jwtValidator, err := NewJWTValidator(ctx, cfg, srv.redis)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
		srv.jwtValidator = jwtValidator
	} else {
		log.Println("JWT disabled, accepting guest connections")
	}

	srv.router = srv.routes()

	log.Println("Server initialized successfully")
	return srv, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog", s.handleCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/inventory/{player}", s.handleInventory).Methods(http.MethodGet)
	return r
}

// Router returns the HTTP handler serving every endpoint
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	log.Printf("Starting WebSocket server on %s", addr)

	// Create HTTP server
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	log.Printf("WebSocket endpoint: ws://%s/ws", addr)
	log.Printf("Health endpoint: http://%s/health", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully stops the server. Open inventories are saved before
// the store connection is closed.
func (s *Server) Shutdown() error {
	log.Println("Shutting down server...")

	// Shutdown HTTP server with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	// Close all WebSocket connections
	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	saved := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(saved)
	}()
	select {
	case <-saved:
	case <-ctx.Done():
		log.Printf("Timed out waiting for inventories to save")
	}

	// Cancel context to signal shutdown
	s.cancel()

	// Close Redis connection
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// authenticate resolves the player behind a request. Without JWT every
// request is a guest, named by the player query parameter when present.
func (s *Server) authenticate(r *http.Request) (*models.Player, error) {
	if s.jwtValidator == nil {
		id := r.URL.Query().Get("player")
		if id == "" {
			id = uuid.NewString()
		}
		return models.NewGuest(id), nil
	}

	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		return nil, errors.New("missing authentication token")
	}
	return s.jwtValidator.ValidateToken(tokenString)
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log.Printf("New WebSocket connection request from %s", r.RemoteAddr)

	player, err := s.authenticate(r)
	if err != nil {
		log.Printf("Rejected connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
		return
	}

	log.Printf("Authenticated user: %s (%s) from %s", player.Username, player.ID, r.RemoteAddr)

	// Upgrade HTTP connection to WebSocket
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Create connection with authenticated player
	conn := NewConnection(ws, s)
	conn.player = player
	conn.authenticated = true

	// Register connection
	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.Printf("WebSocket connection established: %s (%s)", player.Username, r.RemoteAddr)

	// Handle connection (blocking)
	conn.Handle()

	// Unregister connection when done
	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	log.Printf("WebSocket connection closed: %s (%s)", player.Username, r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"session": s.session.GetStatus(),
	})
}

// handleCatalog lists every item definition
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Export())
}

// handleInventory returns the stored inventory of a player. With JWT
// enabled a player may only read their own.
func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["player"]
	owner := models.NewGuest(playerID).InventoryOwner()

	if s.jwtValidator != nil {
		player, err := s.authenticate(r)
		if err != nil {
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}
		if player.ID != playerID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		owner = player.InventoryOwner()
	}

	snap, err := s.store.Load(r.Context(), owner)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Inventory not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to load inventory for %s: %v", owner, err)
		http.Error(w, "Failed to load inventory", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

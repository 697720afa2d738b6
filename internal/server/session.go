package server

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/gridinv/pkg/models"
)

var ErrAlreadyConnected = errors.New("player already has an open inventory session")

// Session tracks the players that currently have an inventory open. A player
// may hold only one connection so two inventories never write the same
// stored state.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Player management
	players     map[string]*models.Player // playerID -> Player
	connections map[string]*Connection    // playerID -> Connection
	mu          sync.RWMutex
}

// SessionStatus represents the current state of the session
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	Uptime      int64  `json:"uptime"` // seconds
}

// NewSession creates a new session
func NewSession(id string) *Session {
	log.Printf("Creating session: %s", id)
	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]*Connection),
	}
}

// AddPlayer registers a player and its connection
func (s *Session) AddPlayer(player *models.Player, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; exists {
		return ErrAlreadyConnected
	}
	s.players[player.ID] = player
	s.connections[player.ID] = conn

	log.Printf("Player %s (%s) joined session %s", player.Username, player.ID, s.ID)
	return nil
}

// RemovePlayer removes a player if conn is the connection it joined with
func (s *Session) RemovePlayer(playerID string, conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[playerID] != conn {
		return
	}
	if player, exists := s.players[playerID]; exists {
		log.Printf("Player %s (%s) left session %s", player.Username, playerID, s.ID)
		delete(s.players, playerID)
		delete(s.connections, playerID)
	}
}

// GetPlayer retrieves a player by ID
func (s *Session) GetPlayer(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

// GetPlayers returns all players in the session
func (s *Session) GetPlayers() []*models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*models.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, player)
	}
	return players
}

// GetStatus returns the current session status
func (s *Session) GetStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionStatus{
		State:       "running",
		PlayerCount: len(s.players),
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}

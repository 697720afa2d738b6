package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gravitas-games/gridinv/internal/config"
	"github.com/gravitas-games/gridinv/pkg/models"
)

// JWTValidator handles JWT token validation
type JWTValidator struct {
	config    *config.Config
	publicKey *ecdsa.PublicKey
	keyMu     sync.RWMutex
	redis     *redis.Client
	ctx       context.Context
}

// Claims represents JWT token claims issued by the login server
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	UserType    string `json:"user_type"`
	AuthMethod  string `json:"auth_method"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator creates a new JWT validator. The public key is read from
// a PEM file or fetched from the login server; a fetched key is refreshed
// until ctx is cancelled. redisClient may be nil, which disables the
// blacklist check.
func NewJWTValidator(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*JWTValidator, error) {
	validator := &JWTValidator{
		config: cfg,
		redis:  redisClient,
		ctx:    ctx,
	}

	if err := validator.RefreshPublicKey(); err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}

	if cfg.JWT.PublicKeyFile == "" {
		go validator.periodicKeyRefresh()
	}

	log.Println("JWT validator initialized")
	return validator, nil
}

// RefreshPublicKey reloads the public key from its configured source
func (v *JWTValidator) RefreshPublicKey() error {
	var (
		keyData []byte
		err     error
	)
	if path := v.config.JWT.PublicKeyFile; path != "" {
		log.Printf("Reading public key from %s", path)
		keyData, err = os.ReadFile(path)
	} else {
		keyData, err = v.fetchPublicKey()
	}
	if err != nil {
		return err
	}

	ecdsaKey, err := parsePublicKey(keyData)
	if err != nil {
		return err
	}

	// Store public key
	v.keyMu.Lock()
	v.publicKey = ecdsaKey
	v.keyMu.Unlock()

	log.Println("Public key refreshed successfully")
	return nil
}

func (v *JWTValidator) fetchPublicKey() ([]byte, error) {
	url := v.config.JWT.PublicKeyURL
	if url == "" {
		return nil, errors.New("no public key source configured")
	}
	log.Printf("Fetching public key from %s", url)

	req, err := http.NewRequestWithContext(v.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build public key request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return keyData, nil
}

func parsePublicKey(keyData []byte) (*ecdsa.PublicKey, error) {
	// Parse PEM-encoded public key
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

// periodicKeyRefresh refreshes the public key periodically
func (v *JWTValidator) periodicKeyRefresh() {
	refreshInterval := time.Duration(v.config.JWT.PublicKeyRefreshHrs) * time.Hour

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := v.RefreshPublicKey(); err != nil {
				log.Printf("Failed to refresh public key: %v", err)
			}
		case <-v.ctx.Done():
			return
		}
	}
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		return v.publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Issuer != v.config.JWT.Issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", v.config.JWT.Issuer, claims.Issuer)
	}

	if claims.Activated == 0 {
		return nil, fmt.Errorf("user not activated")
	}

	if claims.Activated == -1 {
		return nil, fmt.Errorf("user is banned")
	}

	userIDStr := strconv.FormatInt(claims.UserID, 10)
	if v.redis != nil {
		blacklistKey := v.config.Redis.BlacklistPrefix + userIDStr
		isBlacklisted, err := v.redis.Exists(v.ctx, blacklistKey).Result()
		if err != nil {
			log.Printf("Warning: Failed to check blacklist: %v", err)
			// Continue anyway - don't fail authentication if Redis is down
		} else if isBlacklisted > 0 {
			return nil, fmt.Errorf("token is blacklisted")
		}
	}

	player := &models.Player{
		ID:          userIDStr,
		Username:    claims.Username,
		Email:       claims.Email,
		UserType:    claims.UserType,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
		AuthMethod:  claims.AuthMethod,
	}

	return player, nil
}

// extractTokenFromHeader extracts JWT token from WebSocket connection header
func extractTokenFromHeader(r *http.Request) string {
	// Try Sec-WebSocket-Protocol header first (recommended)
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		// Format: "access_token, <token>"
		parts := splitAndTrim(protocols, ",")
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}

	// Try query parameter (less secure, but supported)
	return r.URL.Query().Get("token")
}

// splitAndTrim splits a string and drops empty parts
func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

package settings

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// Snapshot is the full settings record as served by GET /ai-settings
// and persisted to disk.
type Snapshot struct {
	GatewayURL      string `json:"gateway_url" yaml:"gateway_url"`
	RealmsURL       string `json:"keycloak_realms_url" yaml:"keycloak_realms_url"`
	ClientID        string `json:"keycloak_client_id" yaml:"keycloak_client_id"`
	ClientSecret    string `json:"keycloak_client_secret" yaml:"keycloak_client_secret"`
	TokenTTLSeconds int    `json:"keycloak_token_expiration_time" yaml:"keycloak_token_expiration_time"`
	DomainID        string `json:"domain_id" yaml:"domain_id"`
}

// Patch carries a partial settings update. Nil fields are left
// untouched.
type Patch struct {
	GatewayURL      *string `json:"gateway_url"`
	RealmsURL       *string `json:"keycloak_realms_url"`
	ClientID        *string `json:"keycloak_client_id"`
	ClientSecret    *string `json:"keycloak_client_secret"`
	TokenTTLSeconds *int    `json:"keycloak_token_expiration_time"`
	DomainID        *string `json:"domain_id"`
}

// Store holds the mutable runtime settings. Reads vastly outnumber
// writes, so a plain RWMutex is enough.
type Store struct {
	log  *logger.Logger
	path string

	mu      sync.RWMutex
	current Snapshot
}

// NewStore seeds the store with defaults, then overlays a persisted
// snapshot from path if one exists. An empty path disables
// persistence.
func NewStore(log *logger.Logger, path string, defaults Snapshot) *Store {
	if defaults.TokenTTLSeconds <= 0 {
		defaults.TokenTTLSeconds = int(gateway.DefaultTokenTTL / time.Second)
	}
	if defaults.DomainID == "" {
		defaults.DomainID = "cms"
	}
	s := &Store{
		log:     log.With("service", "SettingsStore"),
		path:    path,
		current: defaults,
	}
	if path != "" {
		if err := s.loadFile(); err != nil && !os.IsNotExist(err) {
			s.log.Warn("settings file unreadable, using defaults", "path", path, "error", err)
		}
	}
	return s
}

func (s *Store) loadFile() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = merge(s.current, snap)
	return nil
}

// merge overlays non-zero fields of over onto base.
func merge(base, over Snapshot) Snapshot {
	if over.GatewayURL != "" {
		base.GatewayURL = over.GatewayURL
	}
	if over.RealmsURL != "" {
		base.RealmsURL = over.RealmsURL
	}
	if over.ClientID != "" {
		base.ClientID = over.ClientID
	}
	if over.ClientSecret != "" {
		base.ClientSecret = over.ClientSecret
	}
	if over.TokenTTLSeconds > 0 {
		base.TokenTTLSeconds = over.TokenTTLSeconds
	}
	if over.DomainID != "" {
		base.DomainID = over.DomainID
	}
	return base
}

// Snapshot returns the current settings.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply updates the store with the non-nil patch fields and persists
// the result. It returns the new snapshot so the caller can respond
// with fresh values.
func (s *Store) Apply(patch Patch) (Snapshot, error) {
	s.mu.Lock()
	next := s.current
	if patch.GatewayURL != nil {
		next.GatewayURL = *patch.GatewayURL
	}
	if patch.RealmsURL != nil {
		next.RealmsURL = *patch.RealmsURL
	}
	if patch.ClientID != nil {
		next.ClientID = *patch.ClientID
	}
	if patch.ClientSecret != nil {
		next.ClientSecret = *patch.ClientSecret
	}
	if patch.TokenTTLSeconds != nil {
		if *patch.TokenTTLSeconds <= 0 {
			s.mu.Unlock()
			return Snapshot{}, apierr.Validation("keycloak_token_expiration_time must be a positive integer")
		}
		next.TokenTTLSeconds = *patch.TokenTTLSeconds
	}
	if patch.DomainID != nil {
		next.DomainID = *patch.DomainID
	}
	s.current = next
	s.mu.Unlock()

	if s.path != "" {
		if err := s.persist(next); err != nil {
			s.log.Warn("settings persist failed", "path", s.path, "error", err)
		}
	}
	return next, nil
}

func (s *Store) persist(snap Snapshot) error {
	raw, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Provider adapts the store to the gateway client's configuration
// hook. Read per call, so a PATCH takes effect immediately.
func (s *Store) Provider() gateway.ConfigProvider {
	return func() gateway.Config {
		snap := s.Snapshot()
		return gateway.Config{
			GatewayURL:   snap.GatewayURL,
			RealmsURL:    snap.RealmsURL,
			ClientID:     snap.ClientID,
			ClientSecret: snap.ClientSecret,
			DomainID:     snap.DomainID,
			TokenTTL:     time.Duration(snap.TokenTTLSeconds) * time.Second,
		}
	}
}

package app

import (
	"strings"

	"github.com/interaktiv/kyra-assist/internal/platform/envutil"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
	"github.com/interaktiv/kyra-assist/internal/settings"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	JWTSecret   string
	RedisAddr   string
	CORSOrigins []string

	// SettingsPath is where runtime settings are persisted. Empty
	// disables persistence (settings live in memory only).
	SettingsPath string
	// ContentPath seeds the in-memory content store.
	ContentPath string

	Defaults settings.Snapshot
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:         envutil.Str("PORT", "8080"),
		Environment:  envutil.Str("APP_ENV", "development"),
		Version:      envutil.Str("APP_VERSION", "dev"),
		JWTSecret:    envutil.Str("AUTH_JWT_SECRET", "defaultsecret"),
		RedisAddr:    envutil.Str("REDIS_ADDR", ""),
		SettingsPath: envutil.Str("SETTINGS_PATH", ""),
		ContentPath:  envutil.Str("CONTENT_PATH", ""),
		Defaults: settings.Snapshot{
			GatewayURL:      envutil.Str("GATEWAY_URL", ""),
			RealmsURL:       envutil.Str("KEYCLOAK_REALMS_URL", ""),
			ClientID:        envutil.Str("KEYCLOAK_CLIENT_ID", ""),
			ClientSecret:    envutil.Str("KEYCLOAK_CLIENT_SECRET", ""),
			TokenTTLSeconds: envutil.Int("KEYCLOAK_TOKEN_TTL", 0),
			DomainID:        envutil.Str("DOMAIN_ID", ""),
		},
	}
	if raw := envutil.Str("CORS_ORIGINS", ""); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	if cfg.JWTSecret == "defaultsecret" {
		log.Warn("AUTH_JWT_SECRET not set, using default secret")
	}
	return cfg
}

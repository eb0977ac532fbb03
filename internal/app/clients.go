package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/interaktiv/kyra-assist/internal/actions"
	"github.com/interaktiv/kyra-assist/internal/cache"
	"github.com/interaktiv/kyra-assist/internal/chat"
	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/platform/envutil"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
	"github.com/interaktiv/kyra-assist/internal/settings"
)

type Clients struct {
	Cache         cache.SharedCache
	Settings      *settings.Store
	Gateway       *gateway.Client
	ChatPrompt    *gateway.PromptEnsurer
	PlannerPrompt *gateway.PromptEnsurer
	Store         *content.MemStore

	redis *cache.Redis
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	var shared cache.SharedCache
	var redisCache *cache.Redis
	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(log, cfg.RedisAddr, envutil.Str("REDIS_PASSWORD", ""), envutil.Int("REDIS_DB", 0))
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		shared = r
		redisCache = r
	} else {
		shared = cache.NewMemory()
	}

	settingsStore := settings.NewStore(log, cfg.SettingsPath, cfg.Defaults)
	client := gateway.NewClient(log, shared, settingsStore.Provider())

	store, err := loadContent(cfg.ContentPath)
	if err != nil {
		return Clients{}, fmt.Errorf("load content: %w", err)
	}

	return Clients{
		Cache:         shared,
		Settings:      settingsStore,
		Gateway:       client,
		ChatPrompt:    gateway.NewPromptEnsurer(log, shared, client, chat.ChatPromptCacheKey, chat.ChatPromptPayload),
		PlannerPrompt: gateway.NewPromptEnsurer(log, shared, client, actions.PlannerPromptCacheKey, actions.PlannerPromptPayload),
		Store:         store,
		redis:         redisCache,
	}, nil
}

func (c Clients) Close() {
	if c.redis != nil {
		c.redis.Close()
	}
}

// contentSeed is the on-disk shape of the dev/test content store.
type contentSeed struct {
	Root  *content.Object   `yaml:"root"`
	Pages []*content.Object `yaml:"pages"`
}

// loadContent seeds the in-memory content store from a YAML file, or
// builds a bare single-root site when no path is configured.
func loadContent(path string) (*content.MemStore, error) {
	if path == "" {
		return content.NewMemStore(&content.Object{
			UID:   "site-root",
			Title: "Site",
		}), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed contentSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, err
	}
	if seed.Root == nil {
		return nil, fmt.Errorf("content file %s has no root object", path)
	}
	store := content.NewMemStore(seed.Root)
	for _, page := range seed.Pages {
		store.Add(page)
	}
	return store, nil
}

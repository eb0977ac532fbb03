package gateway

import (
	"context"
	"strings"

	"github.com/interaktiv/kyra-assist/internal/cache"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// PromptEnsurer lazily creates a dedicated gateway prompt and caches
// its id in the shared cache. Two of these exist: the chat repair
// prompt and the action planner prompt.
//
// The cached id may be stale (prompt deleted upstream, or written by
// a racing request); Apply therefore treats not-found and invalid-UUID
// failures as a signal to invalidate and retry exactly once with a
// freshly created prompt.
type PromptEnsurer struct {
	log      *logger.Logger
	cache    cache.SharedCache
	client   *Client
	cacheKey string
	payload  func() map[string]any
}

func NewPromptEnsurer(log *logger.Logger, sharedCache cache.SharedCache, client *Client, cacheKey string, payload func() map[string]any) *PromptEnsurer {
	return &PromptEnsurer{
		log:      log.With("component", "PromptEnsurer", "cache_key", cacheKey),
		cache:    sharedCache,
		client:   client,
		cacheKey: cacheKey,
		payload:  payload,
	}
}

// EnsureID returns the cached prompt id, creating the prompt upstream
// on a cache miss. An empty return means the gateway refused the
// create.
func (e *PromptEnsurer) EnsureID(ctx context.Context) string {
	if id, ok := e.cache.Get(e.cacheKey); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return e.create(ctx)
}

func (e *PromptEnsurer) create(ctx context.Context) string {
	created := e.client.CreatePrompt(ctx, e.payload())
	if created.Failed() {
		e.log.Warn("prompt create failed", "error", created.Err)
		return ""
	}
	id := created.ID()
	if id == "" {
		e.log.Warn("prompt create returned no id")
		return ""
	}
	e.cache.Set(e.cacheKey, id, 0)
	return id
}

// Invalidate drops the cached id.
func (e *PromptEnsurer) Invalidate() {
	e.cache.Invalidate(e.cacheKey)
}

// Apply runs prompt-apply through the cached prompt, recreating the
// prompt and retrying once when the id turns out to be stale.
func (e *PromptEnsurer) Apply(ctx context.Context, payload ApplyPayload) Result {
	promptID := e.EnsureID(ctx)
	if promptID == "" {
		return Errf("Unable to create prompt")
	}
	result := e.client.ApplyPrompt(ctx, promptID, payload)
	if result.Failed() && result.Recoverable() {
		e.Invalidate()
		promptID = e.create(ctx)
		if promptID == "" {
			return result
		}
		result = e.client.ApplyPrompt(ctx, promptID, payload)
	}
	return result
}

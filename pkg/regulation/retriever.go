// Package regulation resolves the regulation snippets relevant to a
// (service, action) pair. The vector-search backend is an external
// collaborator; this package carries the contract and a cache layer.
package regulation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Retriever resolves regulation snippets for a service and action.
type Retriever interface {
	Retrieve(ctx context.Context, service, action string) ([]contracts.RegulationSnippet, error)
}

// StaticRetriever serves a fixed snippet set, keyed by "service/action".
// Used in development and tests.
type StaticRetriever struct {
	Snippets map[string][]contracts.RegulationSnippet
}

// Retrieve returns the configured snippets for the pair.
func (s *StaticRetriever) Retrieve(_ context.Context, service, action string) ([]contracts.RegulationSnippet, error) {
	return s.Snippets[service+"/"+action], nil
}

// Cache is a cache-aside decorator over any Retriever, storing resolved
// snippet lists in Redis with a TTL. A cache failure falls through to the
// underlying retriever; the cache can only speed things up, never break
// them.
type Cache struct {
	next   Retriever
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps next with a Redis cache.
func NewCache(next Retriever, client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{next: next, client: client, ttl: ttl}
}

// Retrieve serves from cache when possible and populates it on a miss.
func (c *Cache) Retrieve(ctx context.Context, service, action string) ([]contracts.RegulationSnippet, error) {
	key := fmt.Sprintf("regulation:%s:%s", service, action)

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var snippets []contracts.RegulationSnippet
		if err := json.Unmarshal(cached, &snippets); err == nil {
			return snippets, nil
		}
	}

	snippets, err := c.next.Retrieve(ctx, service, action)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snippets); err == nil {
		// Best effort; a failed SET is invisible to the caller.
		c.client.Set(ctx, key, data, c.ttl)
	}
	return snippets, nil
}

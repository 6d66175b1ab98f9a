// Package redis persists the provider catalog in Redis for deployments that
// share one catalog across resolver instances. Each provider lives at its
// own key as JSON; a set per tier indexes membership.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"trustgrid/internal/registry"
	"trustgrid/internal/resolution/models"
	"trustgrid/pkg/platform/sentinel"
)

const (
	providerKeyPrefix = "registry:provider:"
	tierKeyPrefix     = "registry:tier:"
)

// Store is a Redis-backed provider registry.
type Store struct {
	client *redis.Client
}

// New constructs a Store over a connected client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Snapshot loads the full catalog into an immutable snapshot.
func (s *Store) Snapshot(ctx context.Context) (*registry.Snapshot, error) {
	providers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return registry.NewSnapshot(providers), nil
}

// Publish inserts or wholesale-replaces a provider descriptor.
func (s *Store) Publish(ctx context.Context, p models.ProviderDescriptor) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal provider: %w", err)
	}

	// Remove any stale tier membership first: a republish may move tiers.
	prev, err := s.client.Get(ctx, providerKeyPrefix+p.ProviderID).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load previous provider: %w", err)
	}

	pipe := s.client.TxPipeline()
	if len(prev) > 0 {
		var old models.ProviderDescriptor
		if err := json.Unmarshal(prev, &old); err == nil && old.Tier != p.Tier {
			pipe.SRem(ctx, tierKeyPrefix+old.Tier.String(), p.ProviderID)
		}
	}
	pipe.Set(ctx, providerKeyPrefix+p.ProviderID, payload, 0)
	pipe.SAdd(ctx, tierKeyPrefix+p.Tier.String(), p.ProviderID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish provider: %w", err)
	}
	return nil
}

// Unpublish removes a provider by ID.
func (s *Store) Unpublish(ctx context.Context, providerID string) error {
	raw, err := s.client.Get(ctx, providerKeyPrefix+providerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load provider: %w", err)
	}

	var p models.ProviderDescriptor
	pipe := s.client.TxPipeline()
	if err := json.Unmarshal(raw, &p); err == nil {
		pipe.SRem(ctx, tierKeyPrefix+p.Tier.String(), providerID)
	}
	pipe.Del(ctx, providerKeyPrefix+providerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("unpublish provider: %w", err)
	}
	return nil
}

// List returns every descriptor ordered by provider ID. Set members come
// back in arbitrary order, so the result is sorted before returning.
func (s *Store) List(ctx context.Context) ([]models.ProviderDescriptor, error) {
	var out []models.ProviderDescriptor
	for _, tier := range models.TierLadder() {
		ids, err := s.client.SMembers(ctx, tierKeyPrefix+tier.String()).Result()
		if err != nil {
			return nil, fmt.Errorf("list tier %s: %w", tier, err)
		}
		for _, id := range ids {
			raw, err := s.client.Get(ctx, providerKeyPrefix+id).Bytes()
			if errors.Is(err, redis.Nil) {
				continue // index points at a deleted provider
			}
			if err != nil {
				return nil, fmt.Errorf("load provider %s: %w", id, err)
			}
			var p models.ProviderDescriptor
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("unmarshal provider %s: %w", id, err)
			}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

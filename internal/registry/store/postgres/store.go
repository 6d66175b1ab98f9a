// Package postgres persists the provider catalog in PostgreSQL. The store
// serves the same immutable-snapshot contract as the in-memory registry:
// Snapshot loads the whole catalog in one query so readers get a consistent
// view.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"trustgrid/internal/registry"
	"trustgrid/internal/resolution/models"
	"trustgrid/pkg/platform/sentinel"
)

// Schema is the DDL for the providers table. Applied by migrations in
// production; integration tests execute it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS providers (
	provider_id  TEXT PRIMARY KEY,
	trust_domain TEXT NOT NULL,
	tier         TEXT NOT NULL,
	capabilities TEXT[] NOT NULL DEFAULT '{}',
	adapter_ref  TEXT NOT NULL DEFAULT '',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	attributes   JSONB NOT NULL DEFAULT '{}',
	health       TEXT NOT NULL DEFAULT 'healthy'
)`

// Store is a PostgreSQL-backed provider registry.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
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
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return fmt.Errorf("marshal provider attributes: %w", err)
	}
	query := `
		INSERT INTO providers (provider_id, trust_domain, tier, capabilities, adapter_ref, tags, attributes, health)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_id) DO UPDATE SET
			trust_domain = EXCLUDED.trust_domain,
			tier = EXCLUDED.tier,
			capabilities = EXCLUDED.capabilities,
			adapter_ref = EXCLUDED.adapter_ref,
			tags = EXCLUDED.tags,
			attributes = EXCLUDED.attributes,
			health = EXCLUDED.health
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ProviderID, p.TrustDomain, p.Tier.String(),
		pq.Array(p.Capabilities), p.AdapterRef, pq.Array(p.Tags), attrs, string(p.Health))
	if err != nil {
		return fmt.Errorf("publish provider: %w", err)
	}
	return nil
}

// Unpublish removes a provider by ID.
func (s *Store) Unpublish(ctx context.Context, providerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM providers WHERE provider_id = $1`, providerID)
	if err != nil {
		return fmt.Errorf("unpublish provider: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unpublish provider: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// List returns every descriptor ordered by provider ID.
func (s *Store) List(ctx context.Context) ([]models.ProviderDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_id, trust_domain, tier, capabilities, adapter_ref, tags, attributes, health
		FROM providers
		ORDER BY provider_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []models.ProviderDescriptor
	for rows.Next() {
		var (
			p     models.ProviderDescriptor
			tier  string
			hlth  string
			attrs []byte
		)
		if err := rows.Scan(&p.ProviderID, &p.TrustDomain, &tier,
			pq.Array(&p.Capabilities), &p.AdapterRef, pq.Array(&p.Tags), &attrs, &hlth); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		p.Tier = models.ResolutionTier(tier)
		p.Health = models.HealthStatus(hlth)
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal provider attributes: %w", err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return out, nil
}

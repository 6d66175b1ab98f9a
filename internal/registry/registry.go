// Package registry holds provider descriptors and serves immutable
// snapshots to the resolver. A refresh swaps the whole snapshot; in-flight
// resolutions keep reading the one they started with.
package registry

import (
	"context"

	"trustgrid/internal/resolution/models"
)

// Registry serves read-only snapshots of the provider catalog.
type Registry interface {
	// Snapshot returns the current immutable snapshot.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Admin extends Registry with catalog mutation. Mutations never touch a
// published snapshot; they build and publish a new one.
type Admin interface {
	Registry

	// Publish inserts or wholesale-replaces a provider descriptor.
	Publish(ctx context.Context, provider models.ProviderDescriptor) error

	// Unpublish removes a provider by ID.
	Unpublish(ctx context.Context, providerID string) error

	// List returns every descriptor, ordered by provider ID.
	List(ctx context.Context) ([]models.ProviderDescriptor, error)
}

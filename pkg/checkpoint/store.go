// Package checkpoint persists the set of product IDs that have already been
// harvested, so an interrupted run resumes without re-fetching completed
// work. The checkpoint is a lagging view: IDs processed after the last save
// are re-fetched on restart, which is safe against a read-only API.
package checkpoint

import "context"

// Store loads and saves the processed-ID set.
type Store interface {
	// Load returns the previously saved set. A missing checkpoint is not
	// an error and yields an empty set.
	Load(ctx context.Context) (map[string]struct{}, error)

	// Save overwrites the checkpoint with the given set. Round-trip is
	// exact: Load after Save returns the same set.
	Save(ctx context.Context, ids map[string]struct{}) error
}

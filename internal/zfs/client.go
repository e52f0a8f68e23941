// Package zfs is the boundary to the snapshot-management subsystem.
package zfs

import "context"

// Client lists and destroys snapshots.
// Enables faking in tests to prove dry-run never destroys.
type Client interface {
	// List returns the snapshot names under pool in the order zfs reports them.
	List(ctx context.Context, pool string) ([]string, error)
	// Destroy removes every named snapshot. It returns only after the
	// underlying call has finished.
	Destroy(ctx context.Context, names []string) error
}

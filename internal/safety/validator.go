package safety

import (
	"errors"
	"fmt"
	"strings"

	"snapshot-sweeper/internal/snapshot"
)

var (
	ErrNotSnapshot      = errors.New("target is not a snapshot")
	ErrOutsidePool      = errors.New("target outside configured pool")
	ErrProtectedDataset = errors.New("protected dataset")
)

// Violation names the snapshot that broke the safety contract.
type Violation struct {
	Name string
	Err  error
}

func (v *Violation) Error() string {
	return fmt.Sprintf("refusing to destroy %s: %v", v.Name, v.Err)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// Validator enforces the safety contract for all destroy operations
type Validator struct {
	Pool              string
	ProtectedDatasets []string
}

// NewValidator creates a validator for one pool with optional protected datasets
func NewValidator(pool string, protected []string) *Validator {
	return &Validator{
		Pool:              pool,
		ProtectedDatasets: normalizeDatasets(protected),
	}
}

// ValidateDestroyTarget is the single-source-of-truth for destroy authorization
func (v *Validator) ValidateDestroyTarget(rec snapshot.Record) error {
	// 1. Never hand a bare dataset name to zfs destroy
	dataset, suffix, ok := strings.Cut(rec.FullName, "@")
	if !ok || suffix == "" || dataset != rec.Dataset {
		return &Violation{Name: rec.FullName, Err: ErrNotSnapshot}
	}

	// 2. Ensure within the configured pool
	if !IsWithinDataset(dataset, v.Pool) {
		return &Violation{Name: rec.FullName, Err: ErrOutsidePool}
	}

	// 3. Block protected datasets and their children
	if IsProtectedDataset(dataset, v.ProtectedDatasets) {
		return &Violation{Name: rec.FullName, Err: ErrProtectedDataset}
	}

	return nil
}

// ValidateAll checks every record and returns the first violation.
func (v *Validator) ValidateAll(records []snapshot.Record) error {
	for _, rec := range records {
		if err := v.ValidateDestroyTarget(rec); err != nil {
			return err
		}
	}
	return nil
}

// IsWithinDataset reports whether dataset equals root or lies below it.
func IsWithinDataset(dataset, root string) bool {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return false
	}
	return dataset == root || strings.HasPrefix(dataset, root+"/")
}

// IsProtectedDataset checks dataset against the protected list.
func IsProtectedDataset(dataset string, protected []string) bool {
	for _, p := range protected {
		if IsWithinDataset(dataset, p) {
			return true
		}
	}
	return false
}

func normalizeDatasets(datasets []string) []string {
	out := make([]string, 0, len(datasets))
	for _, d := range datasets {
		d = strings.TrimSuffix(strings.TrimSpace(d), "/")
		if d == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Package batch partitions the deletion set into bounded chunks.
//
// Large destroy calls have been seen to stall ZFS, so batches are kept small
// and submitted one at a time.
package batch

import (
	"errors"

	"snapshot-sweeper/internal/snapshot"
)

// DefaultSize is the batch size used when none is configured.
const DefaultSize = 100

var ErrInvalidBatchSize = errors.New("batch size must be a positive integer")

// Split returns ceil(len(items)/size) chunks in input order. Every chunk but
// the last holds exactly size items. Chunks share the input's backing array
// but are capacity-clipped, so appending to one never overwrites the next.
func Split[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, ErrInvalidBatchSize
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks, nil
}

// Names returns the full names of a batch, in order.
func Names(records []snapshot.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FullName
	}
	return out
}

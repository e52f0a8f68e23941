package batch

import (
	"errors"
	"testing"
	"time"

	"snapshot-sweeper/internal/snapshot"
)

func TestSplitInvariant(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 12; size++ {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}

			chunks, err := Split(items, size)
			if err != nil {
				t.Fatalf("Split(n=%d, size=%d) unexpected error: %v", n, size, err)
			}

			expectedChunks := (n + size - 1) / size
			if len(chunks) != expectedChunks {
				t.Errorf("n=%d size=%d: got %d chunks, expected %d", n, size, len(chunks), expectedChunks)
			}

			var joined []int
			for i, c := range chunks {
				if i < len(chunks)-1 && len(c) != size {
					t.Errorf("n=%d size=%d: chunk %d has %d items", n, size, i, len(c))
				}
				if len(c) == 0 || len(c) > size {
					t.Errorf("n=%d size=%d: chunk %d has invalid length %d", n, size, i, len(c))
				}
				joined = append(joined, c...)
			}
			if len(joined) != n {
				t.Fatalf("n=%d size=%d: concatenation has %d items", n, size, len(joined))
			}
			for i, v := range joined {
				if v != i {
					t.Fatalf("n=%d size=%d: order broken at %d (got %d)", n, size, i, v)
				}
			}
		}
	}
}

func TestSplitRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1, -100} {
		if _, err := Split([]int{1, 2, 3}, size); !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("Split(size=%d) error = %v, expected ErrInvalidBatchSize", size, err)
		}
	}
}

func TestSplitChunksDoNotAlias(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks, err := Split(items, 2)
	if err != nil {
		t.Fatal(err)
	}
	_ = append(chunks[0], 99)
	if chunks[1][0] != 3 {
		t.Errorf("appending to first chunk overwrote second: %v", chunks[1])
	}
}

func TestNames(t *testing.T) {
	var records []snapshot.Record
	for _, raw := range []string{"tank@2020-01-01-0000-00-A", "tank/os@2020-01-02-0000-00-B"} {
		rec, err := snapshot.ParseInLocation(raw, time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, rec)
	}
	got := Names(records)
	if len(got) != 2 || got[0] != "tank@2020-01-01-0000-00-A" || got[1] != "tank/os@2020-01-02-0000-00-B" {
		t.Errorf("Names() = %v", got)
	}
}

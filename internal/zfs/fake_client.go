package zfs

import (
	"context"
	"errors"
)

var ErrFakeDestroy = errors.New("fake destroy failure")

// FakeClient implements Client for testing.
// Records every destroy call without touching a pool.
type FakeClient struct {
	Snapshots []string
	ListErr   error
	// FailOnCall makes the Nth destroy call (1-based) fail; 0 never fails.
	FailOnCall int
	Calls      [][]string
}

func (f *FakeClient) List(ctx context.Context, pool string) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]string(nil), f.Snapshots...), nil
}

func (f *FakeClient) Destroy(ctx context.Context, names []string) error {
	f.Calls = append(f.Calls, append([]string(nil), names...))
	if f.FailOnCall > 0 && len(f.Calls) == f.FailOnCall {
		return ErrFakeDestroy
	}
	return nil
}

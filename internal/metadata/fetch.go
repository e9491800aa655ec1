package metadata

import (
	"context"
	"sync/atomic"
)

type fetchStatusKey struct{}

// fetchStatus records whether any catalog call made for a request failed.
// Degraded responses must not be cached downstream.
type fetchStatus struct {
	failed atomic.Bool
}

// Failed reports whether a fetch failed. A nil status never fails.
func (f *fetchStatus) Failed() bool {
	return f != nil && f.failed.Load()
}

func trackFetch(ctx context.Context) (context.Context, *fetchStatus) {
	status := &fetchStatus{}
	return context.WithValue(ctx, fetchStatusKey{}, status), status
}

func markFetchFailed(ctx context.Context) {
	if status, ok := ctx.Value(fetchStatusKey{}).(*fetchStatus); ok {
		status.failed.Store(true)
	}
}

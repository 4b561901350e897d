package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/wpdiag/internal/models"
)

const roundTripPrefix = "wpdiag:probe:"

// RoundTrip writes n uniquely named keys, reads them back and deletes them. The hit count
// is the number of keys that came back with the value written. Errors other than a miss
// abort the test and mark the probe failed, as does a nil or noop provider.
func RoundTrip(ctx context.Context, provider Provider, n int, ttl time.Duration) models.RoundTripResult {
	switch provider.(type) {
	case nil, NoopProvider, *NoopProvider:
		return models.RoundTripResult{Probe: models.ProbeFailure(ErrNoBackend)}
	}
	if n <= 0 {
		n = 10
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	start := time.Now()
	result := models.RoundTripResult{Attempted: n}
	keys := make([]string, 0, n)
	defer func() {
		for _, key := range keys {
			_ = provider.Del(context.WithoutCancel(ctx), key)
		}
	}()

	for i := 0; i < n; i++ {
		key := roundTripPrefix + uuid.NewString()
		value := []byte(fmt.Sprintf("probe-%d", i))
		if err := provider.Set(ctx, key, value, ttl); err != nil {
			result.Probe = models.ProbeFailure(fmt.Errorf("set %s: %w", key, err))
			return result
		}
		keys = append(keys, key)

		got, err := provider.Get(ctx, key)
		switch {
		case errors.Is(err, ErrCacheMiss):
			continue
		case err != nil:
			result.Probe = models.ProbeFailure(fmt.Errorf("get %s: %w", key, err))
			return result
		}
		if string(got) == string(value) {
			result.Hits++
		}
	}

	result.Probe = models.ProbeSucceeded(0, float64(time.Since(start).Microseconds())/1000)
	return result
}

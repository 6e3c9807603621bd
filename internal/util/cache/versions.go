package cache_utils

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

const DefaultVersionExpiry = 24 * time.Hour

// VersionCounter keeps a generation number per key. Bump it whenever the data
// behind a cached value changes; a value stored under an older generation
// must not be served. A nil *VersionCounter reports every lookup as failed.
type VersionCounter struct {
	client  valkey.Client
	prefix  string
	timeout time.Duration
	expiry  time.Duration
}

func NewVersionCounter(client valkey.Client, prefix string) *VersionCounter {
	if client == nil {
		return nil
	}

	return &VersionCounter{
		client:  client,
		prefix:  prefix,
		timeout: DefaultCacheTimeout,
		expiry:  DefaultVersionExpiry,
	}
}

// Current returns the key's generation, 0 if it was never bumped. ok is false
// when the counter could not be read.
func (v *VersionCounter) Current(key string) (version int64, ok bool) {
	if v == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	result := v.client.Do(ctx, v.client.B().Get().Key(v.prefix+key).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, true
		}

		return 0, false
	}

	version, err := result.AsInt64()
	if err != nil {
		return 0, false
	}

	return version, true
}

// Bump moves the key to a new generation.
func (v *VersionCounter) Bump(key string) error {
	if v == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	results := v.client.DoMulti(
		ctx,
		v.client.B().Incr().Key(v.prefix+key).Build(),
		v.client.B().Expire().Key(v.prefix+key).Seconds(int64(v.expiry/time.Second)).Build(),
	)

	for _, result := range results {
		if err := result.Error(); err != nil {
			return err
		}
	}

	return nil
}

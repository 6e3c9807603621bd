package cache_utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	DefaultCacheTimeout = 10 * time.Second
	DefaultCacheExpiry  = 10 * time.Minute
)

// CacheUtil stores JSON encoded values under a key prefix. A nil *CacheUtil
// (or one built with a nil client) is a valid, always-missing cache.
type CacheUtil[T any] struct {
	client  valkey.Client
	prefix  string
	timeout time.Duration
	expiry  time.Duration
}

func NewCacheUtil[T any](client valkey.Client, prefix string) *CacheUtil[T] {
	if client == nil {
		return nil
	}

	return &CacheUtil[T]{
		client:  client,
		prefix:  prefix,
		timeout: DefaultCacheTimeout,
		expiry:  DefaultCacheExpiry,
	}
}

// WithExpiry returns a copy that stores values for expiry. A non-positive
// expiry keeps the current one.
func (c *CacheUtil[T]) WithExpiry(expiry time.Duration) *CacheUtil[T] {
	if c == nil || expiry <= 0 {
		return c
	}

	copied := *c
	copied.expiry = expiry
	return &copied
}

// CheckConnection round-trips a value through the cache.
func CheckConnection(client valkey.Client) error {
	cacheUtil := NewCacheUtil[string](client, "memberledger_check:")
	if cacheUtil == nil {
		return nil
	}

	testKey := "connection_test"
	testValue := "valkey_is_working"

	cacheUtil.Set(testKey, &testValue)

	retrievedValue := cacheUtil.Get(testKey)
	if retrievedValue == nil || *retrievedValue != testValue {
		return errors.New("cache check failed: could not read back cached value")
	}

	cacheUtil.Invalidate(testKey)

	if cacheUtil.Get(testKey) != nil {
		return errors.New("cache check failed: test key was not invalidated")
	}

	return nil
}

func (c *CacheUtil[T]) Get(key string) *T {
	if c == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build())
	if result.Error() != nil {
		return nil
	}

	data, err := result.AsBytes()
	if err != nil {
		return nil
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil
	}

	return &item
}

func (c *CacheUtil[T]) Set(key string, item *T) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	data, err := json.Marshal(item)
	if err != nil {
		return
	}

	c.client.Do(ctx, c.client.B().Set().Key(c.prefix+key).Value(string(data)).Ex(c.expiry).Build())
}

func (c *CacheUtil[T]) Invalidate(key string) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build())
}

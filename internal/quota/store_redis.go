// Package quota provides a Redis-backed bucket store.
package quota

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed create_bucket.lua
var createBucketScript string

//go:embed update_bucket.lua
var updateBucketScript string

const defaultStoreOpTimeout = 500 * time.Millisecond

// RedisBucketStore implements BucketStore on a Redis hash per bucket key.
// Create-if-absent and conditional update run as server-side Lua so the
// version check and the write are atomic. Every write refreshes the bucket
// TTL; an idle row ages out and is recreated at full capacity on next use.
type RedisBucketStore struct {
	client    *redis.Client
	createSHA string
	updateSHA string
	opTimeout time.Duration
}

// NewRedisBucketStore loads the CAS scripts and verifies connectivity.
func NewRedisBucketStore(client *redis.Client, opTimeout time.Duration) (*RedisBucketStore, error) {
	if client == nil {
		return nil, ErrInvalidInput
	}
	if opTimeout <= 0 {
		opTimeout = defaultStoreOpTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, Wrap(CodeStoreUnavailable, "redis ping", err)
	}
	createSHA, err := client.ScriptLoad(ctx, createBucketScript).Result()
	if err != nil {
		return nil, Wrap(CodeStoreUnavailable, "load create script", err)
	}
	updateSHA, err := client.ScriptLoad(ctx, updateBucketScript).Result()
	if err != nil {
		return nil, Wrap(CodeStoreUnavailable, "load update script", err)
	}
	return &RedisBucketStore{
		client:    client,
		createSHA: createSHA,
		updateSHA: updateSHA,
		opTimeout: opTimeout,
	}, nil
}

// Get reads the bucket hash.
func (s *RedisBucketStore) Get(ctx context.Context, key string) (*BucketState, bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, Wrap(CodeStoreUnavailable, "redis get bucket", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	state, err := parseBucketState(key, fields)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// CreateIfAbsent writes a fresh bucket row unless the key already exists.
func (s *RedisBucketStore) CreateIfAbsent(ctx context.Context, state *BucketState) error {
	if state == nil || state.Key == "" {
		return ErrInvalidInput
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	created, err := s.client.EvalSha(ctx, s.createSHA, []string{state.Key},
		strconv.FormatInt(state.Tokens, 10),
		strconv.FormatInt(state.Capacity, 10),
		strconv.FormatFloat(state.RefillRate, 'f', -1, 64),
		strconv.FormatInt(state.LastRefillAt.Unix(), 10),
		strconv.FormatInt(state.WindowStartAt.Unix(), 10),
		strconv.FormatInt(state.Version, 10),
		strconv.FormatInt(bucketTTL.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return Wrap(CodeStoreUnavailable, "redis create bucket", err)
	}
	if created == 0 {
		return ErrBucketExists
	}
	return nil
}

// ConditionalUpdate applies the update while the stored version matches.
func (s *RedisBucketStore) ConditionalUpdate(ctx context.Context, key string, update BucketUpdate, expectedVersion int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.client.EvalSha(ctx, s.updateSHA, []string{key},
		strconv.FormatInt(update.Tokens, 10),
		strconv.FormatInt(update.LastRefillAt.Unix(), 10),
		strconv.FormatInt(update.WindowStartAt.Unix(), 10),
		strconv.FormatInt(bucketTTL.Milliseconds(), 10),
		strconv.FormatInt(expectedVersion, 10),
	).Int64()
	if err != nil {
		return Wrap(CodeStoreUnavailable, "redis update bucket", err)
	}
	switch result {
	case -1:
		return ErrBucketNotFound
	case 0:
		return ErrVersionConflict
	}
	return nil
}

// Healthy pings the server within the operation timeout.
func (s *RedisBucketStore) Healthy(ctx context.Context) bool {
	if s == nil || s.client == nil {
		return false
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

func (s *RedisBucketStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func parseBucketState(key string, fields map[string]string) (*BucketState, error) {
	tokens, err := parseIntField(fields, "tokens")
	if err != nil {
		return nil, err
	}
	capacity, err := parseIntField(fields, "capacity")
	if err != nil {
		return nil, err
	}
	version, err := parseIntField(fields, "version")
	if err != nil {
		return nil, err
	}
	lastRefill, err := parseIntField(fields, "last_refill_at")
	if err != nil {
		return nil, err
	}
	windowStart, err := parseIntField(fields, "window_start_at")
	if err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(fields["refill_rate"], 64)
	if err != nil {
		return nil, Wrap(CodeStoreUnavailable, "corrupt bucket field refill_rate", err)
	}
	return &BucketState{
		Key:           key,
		Tokens:        tokens,
		Capacity:      capacity,
		RefillRate:    rate,
		LastRefillAt:  time.Unix(lastRefill, 0),
		WindowStartAt: time.Unix(windowStart, 0),
		Version:       version,
	}, nil
}

func parseIntField(fields map[string]string, name string) (int64, error) {
	value, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return 0, Wrap(CodeStoreUnavailable, fmt.Sprintf("corrupt bucket field %s", name), err)
	}
	return value, nil
}

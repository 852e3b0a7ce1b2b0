package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"

	"github.com/redis/go-redis/v9"

	"github.com/evyataryagoni/geoip-service/internal/models"
)

const redisKeyPrefix = "geo:"

// RedisStore keeps one key per network
//
// Key Format: geo:<network>
// Example: geo:66.249.64.0/19
// Value: JSON-encoded RawLocation
//
// A lookup fetches the keys of every prefix containing the address in a
// single MGET and keeps the most specific hit.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ctx:    ctx,
	}, nil
}

func redisKey(network netip.Prefix) string {
	return redisKeyPrefix + network.String()
}

// FindByIP looks up ip with longest-prefix match
func (s *RedisStore) FindByIP(ip string) (*models.RawLocation, error) {
	prefixes, err := candidatePrefixes(ip)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(prefixes))
	for i, p := range prefixes {
		keys[i] = redisKey(p)
	}

	values, err := s.client.MGet(s.ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("Redis query failed: %w", err)
	}

	// keys are ordered most specific first
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var loc models.RawLocation
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return nil, fmt.Errorf("failed to decode location: %w", err)
		}
		return &loc, nil
	}

	return nil, ErrNotFound
}

// Set adds or replaces the record for network
func (s *RedisStore) Set(network netip.Prefix, loc models.RawLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}

	if err := s.client.Set(s.ctx, redisKey(network.Masked()), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	return nil
}

// Load writes records in one pipeline and returns how many were stored
func (s *RedisStore) Load(records []Record) (int, error) {
	pipe := s.client.Pipeline()
	for _, r := range records {
		data, err := json.Marshal(r.Location)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s: %w", r.Network, err)
		}
		pipe.Set(s.ctx, redisKey(r.Network.Masked()), data, 0)
	}

	if _, err := pipe.Exec(s.ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to load records into Redis: %w", err)
	}
	return len(records), nil
}

// IsEmpty reports whether no geolocation keys exist yet
func (s *RedisStore) IsEmpty() (bool, error) {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(s.ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check Redis keys: %w", err)
		}
		if len(keys) > 0 {
			return false, nil
		}
		if next == 0 {
			return true, nil
		}
		cursor = next
	}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

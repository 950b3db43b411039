package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/weather-alerts/internal/subscription"
)

const (
	redisSubscriberPrefix = "subscriber:"
	redisIndexKey         = "subscribers"
	redisSeqKey           = "subscribers:seq"
)

// RedisStore keeps each subscriber as a JSON string under subscriber:<email>
// and a sorted-set index scored by insertion sequence for listing order.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore backed by client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ConnectRedis parses redisURL, creates a client, and verifies connectivity with a ping.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func redisKey(email string) string {
	return redisSubscriberPrefix + email
}

// ListAll returns subscribers in insertion order. Index entries whose record
// has disappeared are skipped.
func (s *RedisStore) ListAll(ctx context.Context) ([]subscription.Subscriber, error) {
	emails, err := s.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}
	if len(emails) == 0 {
		return []subscription.Subscriber{}, nil
	}

	keys := make([]string, 0, len(emails))
	for _, e := range emails {
		keys = append(keys, redisKey(e))
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}

	subs := make([]subscription.Subscriber, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sub subscription.Subscriber
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, unavailable(fmt.Sprintf("decode subscriber %s", emails[i]), err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// FindByEmail returns the subscriber for email.
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	raw, err := s.client.Get(ctx, redisKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return subscription.Subscriber{}, subscription.ErrNotFound
		}
		return subscription.Subscriber{}, unavailable("find subscriber", err)
	}

	var sub subscription.Subscriber
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return subscription.Subscriber{}, unavailable("decode subscriber", err)
	}
	return sub, nil
}

// createScript writes the record, its sequence number and its index entry in
// one step. INCR and ZADD run before SET so a failure leaves no record behind.
// KEYS: record, index, seq. ARGV: json, email.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[2])
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// deleteScript removes the index entry before the record and returns the
// record, or nil when there is none. KEYS: record, index. ARGV: email.
var deleteScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return false
end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('DEL', KEYS[1])
return raw
`)

// Create stores sub unless a record for its email already exists.
func (s *RedisStore) Create(ctx context.Context, sub subscription.Subscriber) error {
	b, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshaling subscriber %s: %w", sub.Email, err)
	}

	keys := []string{redisKey(sub.Email), redisIndexKey, redisSeqKey}
	created, err := createScript.Run(ctx, s.client, keys, string(b), sub.Email).Int()
	if err != nil {
		return unavailable("create subscriber", err)
	}
	if created == 0 {
		return subscription.ErrDuplicateEmail
	}
	return nil
}

// DeleteByEmail removes and returns the subscriber for email.
func (s *RedisStore) DeleteByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	keys := []string{redisKey(email), redisIndexKey}
	raw, err := deleteScript.Run(ctx, s.client, keys, email).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return subscription.Subscriber{}, subscription.ErrNotFound
		}
		return subscription.Subscriber{}, unavailable("delete subscriber", err)
	}

	var sub subscription.Subscriber
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return subscription.Subscriber{}, unavailable("decode subscriber", err)
	}
	return sub, nil
}

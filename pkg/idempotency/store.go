package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// ErrInFlight is returned by Begin while another request holds the key.
var ErrInFlight = errors.New("request with this idempotency key is still in flight")

// Store dedups Kafka deliveries by topic/partition/offset and HTTP requests by
// client supplied key.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// RequestKey scopes a client idempotency key to one principal.
func RequestKey(scope, principalID, key string) string {
	return fmt.Sprintf("idem:http:%s:%s:%s", scope, principalID, key)
}

// Begin claims key. fresh is true when the caller owns the key and must later
// call Complete or Abort; otherwise result holds the value recorded by the
// first request. A key that expires between the claim and the read is
// claimed once more; if that also races, the key is reported in flight.
func (s *Store) Begin(ctx context.Context, key string) (result string, fresh bool, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, key, pending, s.ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}

		v, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if v == pending {
			return "", false, ErrInFlight
		}
		return v, false, nil
	}
	return "", false, ErrInFlight
}

func (s *Store) Complete(ctx context.Context, key, result string) error {
	return s.rdb.Set(ctx, key, result, s.ttl).Err()
}

func (s *Store) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

const maxTxAttempts = 5

// RedisStore keeps each snapshot log as a JSON array under one Redis key.
// The key expires with the retention window, refreshed on every append.
type RedisStore struct {
	client    *redis.Client
	namespace string
	locks     *keyLocks
	now       func() time.Time
}

// NewRedisStore creates a Redis-backed snapshot store
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
		locks:     newKeyLocks(),
		now:       time.Now,
	}
}

// WithClock overrides the store's time source
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func (s *RedisStore) redisKey(key Key) string {
	return fmt.Sprintf("%s:line_movement:%s", s.namespace, key)
}

// Record appends snap to the key's log. The in-process lock serializes local
// writers; WATCH guards against other engine instances.
func (s *RedisStore) Record(ctx context.Context, key Key, snap models.LineSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	rkey := s.redisKey(key)
	release := s.locks.lock(rkey)
	defer release()

	txf := func(tx *redis.Tx) error {
		log, err := readLog(ctx, tx, rkey)
		if err != nil {
			return err
		}

		log = insert(log, snap, s.now())
		data, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("marshaling snapshot log: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, data, Retention)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, rkey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("recording snapshot for %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("recording snapshot for %s: too much contention", key)
}

// History returns the key's log
func (s *RedisStore) History(ctx context.Context, key Key) ([]models.LineSnapshot, bool, error) {
	log, err := readLog(ctx, s.client, s.redisKey(key))
	if err != nil {
		return nil, false, err
	}
	if expired(log, s.now()) {
		return nil, false, nil
	}
	return log, true, nil
}

// getter is the read side shared by *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readLog(ctx context.Context, c getter, key string) ([]models.LineSnapshot, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot log: %w", err)
	}

	var log []models.LineSnapshot
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decoding snapshot log: %w", err)
	}
	return log, nil
}

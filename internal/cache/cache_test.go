package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Games []string `json:"games"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(NewRedisStore(client), Options{}), mr
}

func countingProducer(calls *atomic.Int32, value payload) Producer[payload] {
	return func(ctx context.Context) (payload, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestFetch_HitMissExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := c.OddsKey("nfl", "h2h")

	var calls atomic.Int32
	producer := countingProducer(&calls, payload{Games: []string{"KC@BUF"}})

	got, hit, err := Fetch(ctx, c, key, GameOddsTTL, producer)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"KC@BUF"}, got.Games)
	assert.Equal(t, int32(1), calls.Load())

	got, hit, err = Fetch(ctx, c, key, GameOddsTTL, producer)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"KC@BUF"}, got.Games)
	assert.Equal(t, int32(1), calls.Load(), "second call within TTL must not run the producer")

	mr.FastForward(GameOddsTTL + time.Second)

	_, hit, err = Fetch(ctx, c, key, GameOddsTTL, producer)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), calls.Load(), "call after expiry must run the producer again")

	stats := c.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Sets)
}

func TestFetch_ProducerError(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := c.PropsKey("nfl", "")

	upstream := errors.New("upstream down")
	_, _, err := Fetch(ctx, c, key, PlayerPropsTTL, func(ctx context.Context) (payload, error) {
		return payload{}, upstream
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
	assert.False(t, mr.Exists(key), "failed producer results must not be cached")
}

func TestFetch_ProducerTimeout(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := New(NewRedisStore(client), Options{ProducerTimeout: 20 * time.Millisecond})

	_, _, err = Fetch(context.Background(), c, c.Key("slow"), time.Minute, func(ctx context.Context) (payload, error) {
		<-ctx.Done()
		return payload{}, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_Disabled(t *testing.T) {
	c := New(nil, Options{})
	var calls atomic.Int32
	producer := countingProducer(&calls, payload{Games: []string{"a"}})

	for i := 0; i < 3; i++ {
		got, hit, err := Fetch(context.Background(), c, c.Key("odds", "nfl"), GameOddsTTL, producer)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, []string{"a"}, got.Games)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, c.Stats().Enabled)
}

func TestFetch_UnreachableStoreFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer client.Close()
	c := New(NewRedisStore(client), Options{})

	var calls atomic.Int32
	got, hit, err := Fetch(context.Background(), c, c.Key("odds", "nba"), GameOddsTTL, countingProducer(&calls, payload{Games: []string{"x"}}))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"x"}, got.Games)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(2), c.Stats().StoreErrors, "read and write failures are counted")
}

func TestKey_Deterministic(t *testing.T) {
	c := New(nil, Options{Namespace: "test"})

	assert.Equal(t, "test:odds:nfl:games:spreads", c.OddsKey("nfl", "spreads"))
	assert.Equal(t, "test:odds:nfl:games:all", c.OddsKey("nfl", ""))
	assert.Equal(t, c.Key("a", "b", "c"), c.Key("a", "b", "c"))
	assert.Equal(t, "test:props:nfl:patrick mahomes", c.PropsKey("nfl", "Patrick Mahomes"))
	assert.Equal(t, "test:props:nfl:all", c.PropsKey("nfl", ""))
	assert.Equal(t, "test:ml-prop:p1:player_pass_yds:275.5", c.PredictionKey("p1", "player_pass_yds", "275.5"))

	var nilCache *Cache
	assert.Equal(t, "linepointer:odds:nfl", nilCache.Key("odds", "nfl"))
}

package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

// testClient connects to TEST_REDIS_URL and flushes the database it points at.
// Use a dedicated database index.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, url)
	require.NoError(t, err)
	require.NoError(t, rdb.FlushDB(ctx).Err())
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func sampleParty(id string, updated int64) *engine.Party {
	return &engine.Party{
		ID:          id,
		HostID:      id + "h",
		HostName:    "Alice",
		State:       engine.StatePlaying,
		Players:     []engine.Player{{ID: id + "h", Name: "Alice", IsHost: true, Gift: "g1", CurrentGift: "g1"}},
		Gifts:       []engine.Gift{{ID: "g1", Name: "Mug", Opened: true, CurrentHolder: id + "h"}},
		TurnOrder:   []string{id + "h"},
		StealCount:  map[string]int{"g1": 0},
		MaxSteals:   3,
		Actions:     engine.ActionLog{engine.GameStarted{Header: engine.Header{Type: engine.ActionGameStarted, Timestamp: updated}, TurnOrder: []string{"Alice"}}},
		LastUpdated: updated,
	}
}

func TestKeysStayOutOfPartyNamespace(t *testing.T) {
	assert.Equal(t, "party:abc", partyKey("abc"))
	assert.Equal(t, "actions:abc", actionKey("abc"))
	assert.Equal(t, "lock:party:abc", lockKey("abc"))
	for _, k := range []string{actionKey("abc"), lockKey("abc")} {
		assert.False(t, strings.HasPrefix(k, partyKeyPrefix), "%s would match party scans", k)
	}
}

func TestPartyStoreRoundTrip(t *testing.T) {
	rdb := testClient(t)
	s := NewPartyStore(rdb, time.Minute)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	p := sampleParty("p1", 100)
	require.NoError(t, s.Put(ctx, p))
	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	ttl, err := rdb.TTL(ctx, partyKey("p1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestPartyStoreListDelete(t *testing.T) {
	rdb := testClient(t)
	s := NewPartyStore(rdb, 0)
	feed := NewActionFeed(rdb, 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleParty("a", 1)))
	require.NoError(t, s.Put(ctx, sampleParty("b", 2)))
	require.NoError(t, feed.PublishActions(ctx, "a", 0, sampleParty("a", 1).Actions))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	require.NoError(t, s.Delete(ctx, "a"))
	n, err := rdb.Exists(ctx, partyKey("a"), actionKey("a")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActionFeed(t *testing.T) {
	rdb := testClient(t)
	feed := NewActionFeed(rdb, time.Minute)
	ctx := context.Background()
	p := sampleParty("p", 5)

	require.NoError(t, feed.PublishActions(ctx, "p", 0, p.Actions))
	require.NoError(t, feed.PublishActions(ctx, "p", 1, engine.ActionLog{
		engine.Opened{Header: engine.Header{Type: engine.ActionOpened, Timestamp: 6}, PlayerName: "Alice", GiftName: "Mug"},
	}))
	require.NoError(t, feed.PublishActions(ctx, "p", 2, nil))

	entries, err := feed.Read(ctx, "p", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[1].ActionIndex)
	assert.JSONEq(t, `{"type":"opened","timestamp":6,"playerId":"","playerName":"Alice","giftId":"","giftName":"Mug"}`, string(entries[1].Action))

	tail, err := feed.Read(ctx, "p", 1)
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}

func TestLockerExclusive(t *testing.T) {
	rdb := testClient(t)
	l := NewLocker(rdb, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "p")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "p")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	again, err := l.Lock(ctx, "p")
	require.NoError(t, err)
	again()
}

func TestLockerLeaseExpires(t *testing.T) {
	rdb := testClient(t)
	l := NewLocker(rdb, 100*time.Millisecond)
	ctx := context.Background()

	stale, err := l.Lock(ctx, "p")
	require.NoError(t, err)

	wait, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	fresh, err := l.Lock(wait, "p")
	require.NoError(t, err, "an abandoned lock must expire with its lease")

	// Releasing the stale lock must not free the fresh holder's lock.
	stale()
	held, err := rdb.Exists(ctx, lockKey("p")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)
	fresh()
}

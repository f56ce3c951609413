package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	engine "github.com/nhiquach/white-elephant-party/engine"
)

// ActionRecord is one entry of the per-party action feed.
type ActionRecord struct {
	PartyID     string        `json:"partyId"`
	ActionIndex int           `json:"actionIndex"`
	Action      engine.Action `json:"action"`
}

// ActionFeed appends new log entries to the Redis list actions:<id>.
type ActionFeed struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewActionFeed wraps rdb; ttl matches the party retention.
func NewActionFeed(rdb redis.UniversalClient, ttl time.Duration) *ActionFeed {
	return &ActionFeed{rdb: rdb, ttl: ttl}
}

// PublishActions pushes actions, numbered from firstIndex, in one pipeline.
func (f *ActionFeed) PublishActions(ctx context.Context, partyID string, firstIndex int, actions []engine.Action) error {
	if len(actions) == 0 {
		return nil
	}
	values := make([]any, len(actions))
	for i, a := range actions {
		raw, err := json.Marshal(ActionRecord{PartyID: partyID, ActionIndex: firstIndex + i, Action: a})
		if err != nil {
			return fmt.Errorf("encode action %d: %w", firstIndex+i, err)
		}
		values[i] = raw
	}

	pipe := f.rdb.TxPipeline()
	pipe.RPush(ctx, actionKey(partyID), values...)
	if f.ttl > 0 {
		pipe.Expire(ctx, actionKey(partyID), f.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish actions for %s: %w", partyID, err)
	}
	return nil
}

// FeedEntry is an ActionRecord read back with the action left encoded.
type FeedEntry struct {
	PartyID     string          `json:"partyId"`
	ActionIndex int             `json:"actionIndex"`
	Action      json.RawMessage `json:"action"`
}

// Read returns the feed of partyID starting at index from.
func (f *ActionFeed) Read(ctx context.Context, partyID string, from int) ([]FeedEntry, error) {
	raw, err := f.rdb.LRange(ctx, actionKey(partyID), int64(from), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read actions for %s: %w", partyID, err)
	}
	out := make([]FeedEntry, 0, len(raw))
	for _, r := range raw {
		var e FeedEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode action for %s: %w", partyID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

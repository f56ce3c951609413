package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

// PartyStore keeps each party as one JSON value under party:<id>. Every Put
// refreshes the expiry, so abandoned parties disappear after ttl.
type PartyStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewPartyStore wraps rdb. A zero ttl keeps parties forever.
func NewPartyStore(rdb redis.UniversalClient, ttl time.Duration) *PartyStore {
	return &PartyStore{rdb: rdb, ttl: ttl}
}

// Get loads a party or returns store.ErrNotFound.
func (s *PartyStore) Get(ctx context.Context, id string) (*engine.Party, error) {
	raw, err := s.rdb.Get(ctx, partyKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	var p engine.Party
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode party %s: %w", id, err)
	}
	return &p, nil
}

// Put writes the whole record.
func (s *PartyStore) Put(ctx context.Context, p *engine.Party) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode party %s: %w", p.ID, err)
	}
	if err := s.rdb.Set(ctx, partyKey(p.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.ID, err)
	}
	return nil
}

// Keys returns the ids of all stored parties.
func (s *PartyStore) Keys(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, partyKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), partyKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return ids, nil
}

// List summarizes every stored party, most recently updated first. Parties
// that expire between the scan and the read are skipped.
func (s *PartyStore) List(ctx context.Context) ([]store.Summary, error) {
	ids, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.Summary, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, store.Summarize(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated > out[j].LastUpdated })
	return out, nil
}

// Delete removes a party together with its action feed.
func (s *PartyStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, partyKey(id), actionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	return nil
}

// Package database archives finished parties in Postgres so results outlive
// the short retention of the party store.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	engine "github.com/nhiquach/white-elephant-party/engine"
)

// ErrNoResults is returned when a party has no archived results.
var ErrNoResults = errors.New("no archived results")

const schema = `
CREATE TABLE IF NOT EXISTS party_results (
	party_id         TEXT PRIMARY KEY,
	host_name        TEXT NOT NULL,
	final_round_type TEXT NOT NULL,
	max_steals       INTEGER NOT NULL,
	player_count     INTEGER NOT NULL,
	results          JSONB NOT NULL,
	actions          JSONB NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL
)`

// Archive writes and reads party_results.
type Archive struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn and makes sure the schema exists.
func Connect(ctx context.Context, dsn string) (*Archive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Archive{pool: pool}, nil
}

// Close releases the pool.
func (a *Archive) Close() {
	a.pool.Close()
}

// FinalResults returns the results carried by the game_ended entry of p.
func FinalResults(p *engine.Party) ([]engine.Result, bool) {
	for i := len(p.Actions) - 1; i >= 0; i-- {
		if ended, ok := p.Actions[i].(engine.GameEnded); ok {
			return ended.Results, true
		}
	}
	return nil, false
}

// ArchiveResults upserts the outcome of a finished party.
func (a *Archive) ArchiveResults(ctx context.Context, p *engine.Party) error {
	results, ok := FinalResults(p)
	if !ok {
		return fmt.Errorf("party %s has not ended", p.ID)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	actionsJSON, err := json.Marshal(p.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO party_results
			(party_id, host_name, final_round_type, max_steals, player_count, results, actions, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (party_id) DO UPDATE SET
			results = EXCLUDED.results,
			actions = EXCLUDED.actions,
			finished_at = EXCLUDED.finished_at`,
		p.ID, p.HostName, string(p.FinalRoundType), p.MaxSteals, len(p.Players),
		resultsJSON, actionsJSON, time.UnixMilli(p.LastUpdated).UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert party_results %s: %w", p.ID, err)
	}
	return nil
}

// Results loads the archived outcome of a party.
func (a *Archive) Results(ctx context.Context, partyID string) ([]engine.Result, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx, `SELECT results FROM party_results WHERE party_id = $1`, partyID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoResults
	}
	if err != nil {
		return nil, fmt.Errorf("select party_results %s: %w", partyID, err)
	}
	var results []engine.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", partyID, err)
	}
	return results, nil
}

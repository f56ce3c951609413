// Package store defines how party records are persisted and provides the
// in-memory backend used for local development and tests.
package store

import (
	"context"
	"errors"

	engine "github.com/nhiquach/white-elephant-party/engine"
)

// ErrNotFound is returned by Get when no party is stored under the id.
var ErrNotFound = errors.New("party not found")

// Store persists whole party records. Writes are last-writer-wins; callers
// serialize read-modify-write cycles themselves.
type Store interface {
	Get(ctx context.Context, id string) (*engine.Party, error)
	Put(ctx context.Context, p *engine.Party) error
}

// Summary is one line of an admin listing.
type Summary struct {
	ID          string       `json:"id"`
	HostName    string       `json:"hostName"`
	State       engine.State `json:"state"`
	Players     int          `json:"players"`
	LastUpdated int64        `json:"lastUpdated"`
}

// Admin is the maintenance surface: listing and removing parties.
type Admin interface {
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

// Summarize reduces p to its listing line.
func Summarize(p *engine.Party) Summary {
	return Summary{
		ID:          p.ID,
		HostName:    p.HostName,
		State:       p.State,
		Players:     len(p.Players),
		LastUpdated: p.LastUpdated,
	}
}

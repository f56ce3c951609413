// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

// ActionPublisher receives every new action log entry after it is committed.
type ActionPublisher interface {
	PublishActions(ctx context.Context, partyID string, firstIndex int, actions []engine.Action) error
}

// Archiver keeps the outcome of finished parties.
type Archiver interface {
	ArchiveResults(ctx context.Context, p *engine.Party) error
}

// sideEffectTimeout bounds publishing and archiving after a commit.
const sideEffectTimeout = 2 * time.Second

// Service runs engine operations against stored parties. Each call is one
// critical section per party: lock, load, apply, save, project.
type Service struct {
	engine   *engine.Engine
	store    store.Store
	locks    Locker
	lockWait time.Duration
	feed     ActionPublisher
	archive  Archiver
	log      *logrus.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDistributedLock adds a cross-instance lock behind the local one.
func WithDistributedLock(l Locker) Option {
	return func(s *Service) { s.locks = chainLocks{s.locks, l} }
}

// WithLockWait bounds how long a request waits for a busy party.
func WithLockWait(d time.Duration) Option {
	return func(s *Service) { s.lockWait = d }
}

// WithActionFeed publishes new actions to f.
func WithActionFeed(f ActionPublisher) Option {
	return func(s *Service) { s.feed = f }
}

// WithArchive records finished parties in a.
func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// NewService wires the engine to a store.
func NewService(eng *engine.Engine, st store.Store, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		engine:   eng,
		store:    st,
		locks:    newPartyLocks(),
		lockWait: 3 * time.Second,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is returned to whoever creates or joins a party.
type Session struct {
	PartyID  string
	PlayerID string
	IsHost   bool
	View     *ClientView
}

// GiftReceipt echoes a registered gift back to the player who brought it.
type GiftReceipt struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// View returns the client projection of a party.
func (s *Service) View(ctx context.Context, partyID string) (*ClientView, error) {
	p, err := s.load(ctx, partyID)
	if err != nil {
		return nil, err
	}
	return ProjectForClient(p), nil
}

// Moves lists the moves available to playerID right now.
func (s *Service) Moves(ctx context.Context, partyID, playerID string) (engine.Moves, error) {
	p, err := s.load(ctx, partyID)
	if err != nil {
		return engine.Moves{}, err
	}
	return engine.LegalMoves(p, playerID), nil
}

// ---------------------------------------------------------------------------
// Lobby
// ---------------------------------------------------------------------------

// CreateParty starts a new party hosted by hostName.
func (s *Service) CreateParty(ctx context.Context, hostName string) (*Session, error) {
	p := s.engine.CreateParty(hostName)
	if err := s.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("save new party: %w", err)
	}
	s.log.WithFields(logrus.Fields{"party": p.ID, "host": p.HostID}).Info("party created")
	return &Session{PartyID: p.ID, PlayerID: p.HostID, IsHost: true, View: ProjectForClient(p)}, nil
}

// Join adds a player named name.
func (s *Service) Join(ctx context.Context, partyID, name string) (*Session, error) {
	var playerID string
	p, err := s.mutate(ctx, partyID, "join", func(p *engine.Party) (*engine.Party, error) {
		next, player, err := s.engine.AddPlayer(p, name)
		if err != nil {
			return nil, err
		}
		playerID = player.ID
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return &Session{PartyID: p.ID, PlayerID: playerID, View: ProjectForClient(p)}, nil
}

// BeginRegistration opens gift registration.
func (s *Service) BeginRegistration(ctx context.Context, partyID, callerID string) (*ClientView, error) {
	return s.apply(ctx, partyID, "begin_registration", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.BeginRegistration(p, callerID)
	})
}

// RegisterGift records the gift playerID brought.
func (s *Service) RegisterGift(ctx context.Context, partyID, playerID, name, description string) (*ClientView, *GiftReceipt, error) {
	var receipt GiftReceipt
	p, err := s.mutate(ctx, partyID, "register_gift", func(p *engine.Party) (*engine.Party, error) {
		next, gift, err := s.engine.RegisterGift(p, playerID, name, description)
		if err != nil {
			return nil, err
		}
		receipt = GiftReceipt{ID: gift.ID, Name: gift.Name, Description: gift.Description}
		return next, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ProjectForClient(p), &receipt, nil
}

// UpdateSettings changes pre-game options.
func (s *Service) UpdateSettings(ctx context.Context, partyID, callerID string, settings engine.Settings) (*ClientView, error) {
	return s.apply(ctx, partyID, "update_settings", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.UpdateSettings(p, callerID, settings)
	})
}

// StartGame shuffles the turn order and begins play.
func (s *Service) StartGame(ctx context.Context, partyID, callerID string) (*ClientView, error) {
	return s.apply(ctx, partyID, "start_game", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.StartGame(p, callerID)
	})
}

// ---------------------------------------------------------------------------
// Turns
// ---------------------------------------------------------------------------

// OpenGift unwraps giftID for playerID.
func (s *Service) OpenGift(ctx context.Context, partyID, playerID, giftID string) (*ClientView, error) {
	return s.apply(ctx, partyID, "open_gift", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.OpenGift(p, playerID, giftID)
	})
}

// StealGift takes giftID for playerID.
func (s *Service) StealGift(ctx context.Context, partyID, playerID, giftID string) (*ClientView, error) {
	return s.apply(ctx, partyID, "steal_gift", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.StealGift(p, playerID, giftID)
	})
}

// KeepGift ends the final round.
func (s *Service) KeepGift(ctx context.Context, partyID, playerID string) (*ClientView, error) {
	return s.apply(ctx, partyID, "keep_gift", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.KeepGift(p, playerID)
	})
}

// SwapGift performs the final swap.
func (s *Service) SwapGift(ctx context.Context, partyID, playerID, giftID string) (*ClientView, error) {
	return s.apply(ctx, partyID, "swap_gift", func(p *engine.Party) (*engine.Party, error) {
		return s.engine.SwapGift(p, playerID, giftID)
	})
}

// ---------------------------------------------------------------------------
// Plumbing
// ---------------------------------------------------------------------------

func (s *Service) load(ctx context.Context, partyID string) (*engine.Party, error) {
	p, err := s.store.Get(ctx, partyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("party %s: %w", partyID, err)
		}
		return nil, fmt.Errorf("load party %s: %w", partyID, err)
	}
	return p, nil
}

func (s *Service) apply(ctx context.Context, partyID, op string, fn func(*engine.Party) (*engine.Party, error)) (*ClientView, error) {
	p, err := s.mutate(ctx, partyID, op, fn)
	if err != nil {
		return nil, err
	}
	return ProjectForClient(p), nil
}

// mutate runs fn on the stored party inside the party's critical section and
// saves the result. Rejections leave the store untouched.
func (s *Service) mutate(ctx context.Context, partyID, op string, fn func(*engine.Party) (*engine.Party, error)) (*engine.Party, error) {
	entry := s.log.WithFields(logrus.Fields{"party": partyID, "op": op})

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	unlock, err := s.locks.Lock(lockCtx, partyID)
	cancel()
	if err != nil {
		entry.WithError(err).Warn("could not lock party")
		return nil, fmt.Errorf("lock party %s: %w", partyID, err)
	}
	defer unlock()

	cur, err := s.load(ctx, partyID)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur)
	if err != nil {
		if engine.IsRejected(err) {
			entry.WithError(err).Info("move rejected")
		}
		return nil, err
	}
	if err := s.store.Put(ctx, next); err != nil {
		entry.WithError(err).Error("save failed")
		return nil, fmt.Errorf("save party %s: %w", partyID, err)
	}
	entry.WithFields(logrus.Fields{"state": next.State, "actions": len(next.Actions)}).Debug("party updated")

	s.afterCommit(cur, next, entry)
	return next, nil
}

// afterCommit publishes new log entries and archives finished parties.
// Failures are logged; the move itself already succeeded.
func (s *Service) afterCommit(prev, next *engine.Party, entry *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if s.feed != nil && len(next.Actions) > len(prev.Actions) {
		fresh := next.Actions[len(prev.Actions):]
		if err := s.feed.PublishActions(ctx, next.ID, len(prev.Actions), fresh); err != nil {
			entry.WithError(err).Warn("failed publishing actions")
		}
	}
	if next.State == engine.StateFinished && prev.State != engine.StateFinished {
		entry.Info("game finished")
		if s.archive != nil {
			if err := s.archive.ArchiveResults(ctx, next); err != nil {
				entry.WithError(err).Warn("failed archiving results")
			}
		}
	}
}

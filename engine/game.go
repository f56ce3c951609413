// Package engine implements the white elephant gift exchange rules.
//
// Every operation takes a party and the action's arguments and returns either
// a new party or a *RejectedError. The input party is never modified, so a
// caller holding the previous snapshot can discard the result freely. The
// package has no I/O: ids, time and randomness are injected.
package engine

import (
	"math/rand/v2"
	"time"
)

// Engine applies party transitions using its injected collaborators.
type Engine struct {
	newID func() string
	now   func() int64
	rng   *rand.Rand // nil means the runtime-seeded global source
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the millisecond clock.
func WithClock(now func() int64) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand makes turn-order shuffles come from r, for reproducible games.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// New creates an Engine that allocates ids with newID.
func New(newID func() string, opts ...Option) *Engine {
	e := &Engine{
		newID: newID,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// stamp returns the timestamp for a transition of p. Stamps are strictly
// increasing per party so pollers comparing lastUpdated never miss a change.
func (e *Engine) stamp(p *Party) int64 {
	ts := e.now()
	if ts <= p.LastUpdated {
		ts = p.LastUpdated + 1
	}
	p.LastUpdated = ts
	return ts
}

// ---------------------------------------------------------------------------
// Lobby operations
// ---------------------------------------------------------------------------

// CreateParty builds a fresh party in the waiting state with hostName as its
// only player.
func (e *Engine) CreateParty(hostName string) *Party {
	hostID := e.newID()
	p := &Party{
		ID:       e.newID(),
		HostID:   hostID,
		HostName: hostName,
		State:    StateWaiting,
		Players: []Player{{
			ID:     hostID,
			Name:   hostName,
			IsHost: true,
		}},
		Gifts:          []Gift{},
		TurnOrder:      []string{},
		Actions:        ActionLog{},
		StealCount:     map[string]int{},
		MaxSteals:      DefaultMaxSteals,
		FinalRoundType: FinalRoundNone,
	}
	e.stamp(p)
	return p
}

// AddPlayer appends a non-host player. Joining is only possible while waiting.
func (e *Engine) AddPlayer(p *Party, name string) (*Party, *Player, error) {
	if p.State != StateWaiting {
		return nil, nil, reject(ReasonInvalidState, "cannot join a party in state %s", p.State)
	}
	next := p.Clone()
	next.Players = append(next.Players, Player{ID: e.newID(), Name: name})
	e.stamp(next)
	return next, &next.Players[len(next.Players)-1], nil
}

// BeginRegistration moves a waiting party into gift registration.
func (e *Engine) BeginRegistration(p *Party, callerID string) (*Party, error) {
	if err := requireHost(p, callerID); err != nil {
		return nil, err
	}
	if p.State != StateWaiting {
		return nil, reject(ReasonInvalidState, "registration can only begin while waiting, party is %s", p.State)
	}
	next := p.Clone()
	next.State = StateRegistering
	e.stamp(next)
	return next, nil
}

// RegisterGift records the gift a player brought. There is deliberately no
// state gate: a known player without a gift may register at any time.
func (e *Engine) RegisterGift(p *Party, playerID, name, description string) (*Party, *Gift, error) {
	player := p.Player(playerID)
	if player == nil {
		return nil, nil, reject(ReasonNotFound, "player %q not found", playerID)
	}
	if player.Gift != "" {
		return nil, nil, reject(ReasonRuleViolation, "player %s already registered a gift", player.Name)
	}

	next := p.Clone()
	player = next.Player(playerID)
	gift := Gift{
		ID:            e.newID(),
		Name:          name,
		Description:   description,
		BroughtBy:     player.ID,
		BroughtByName: player.Name,
	}
	player.Gift = gift.ID
	next.Gifts = append(next.Gifts, gift)
	next.StealCount[gift.ID] = 0
	e.stamp(next)
	return next, &next.Gifts[len(next.Gifts)-1], nil
}

// UpdateSettings changes the pre-game options supplied in s.
func (e *Engine) UpdateSettings(p *Party, callerID string, s Settings) (*Party, error) {
	if err := requireHost(p, callerID); err != nil {
		return nil, err
	}
	if p.State != StateWaiting {
		return nil, reject(ReasonInvalidState, "settings are frozen once the party leaves waiting (state %s)", p.State)
	}
	if s.FinalRoundType != nil && !s.FinalRoundType.Valid() {
		return nil, reject(ReasonRuleViolation, "unknown final round type %q", *s.FinalRoundType)
	}

	next := p.Clone()
	if s.FinalRoundType != nil {
		next.FinalRoundType = *s.FinalRoundType
	}
	if s.FinalSwapAllowLocked != nil {
		next.FinalSwapAllowLocked = *s.FinalSwapAllowLocked
	}
	if s.MaxSteals != nil {
		next.MaxSteals = ClampMaxSteals(*s.MaxSteals)
	}
	e.stamp(next)
	return next, nil
}

// StartGame shuffles the turn order and hands the first move to its head.
// Every player must have registered a gift.
func (e *Engine) StartGame(p *Party, callerID string) (*Party, error) {
	if err := requireHost(p, callerID); err != nil {
		return nil, err
	}
	if p.State.rank() > StateRegistering.rank() {
		return nil, reject(ReasonInvalidState, "cannot start a party in state %s", p.State)
	}
	for _, pl := range p.Players {
		if pl.Gift == "" {
			return nil, reject(ReasonRuleViolation, "player %s has not registered a gift", pl.Name)
		}
	}

	next := p.Clone()
	order := make([]string, len(next.Players))
	for i, pl := range next.Players {
		order[i] = pl.ID
	}
	e.shuffle(order)

	next.TurnOrder = order
	next.CurrentTurnIndex = 0
	next.CurrentPlayerID = order[0]
	next.State = StatePlaying

	names := make([]string, len(order))
	for i, id := range order {
		names[i] = next.playerName(id)
	}
	ts := e.stamp(next)
	next.Actions = append(next.Actions, GameStarted{
		Header:    Header{Type: ActionGameStarted, Timestamp: ts},
		TurnOrder: names,
	})
	return next, nil
}

// shuffle permutes ids uniformly (Fisher-Yates via rand.Shuffle).
func (e *Engine) shuffle(ids []string) {
	swap := func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }
	if e.rng != nil {
		e.rng.Shuffle(len(ids), swap)
		return
	}
	rand.Shuffle(len(ids), swap)
}

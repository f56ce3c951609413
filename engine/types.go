package engine

import (
	"maps"
	"slices"
)

// State is the lifecycle phase of a party. It only ever moves forward:
// waiting -> registering -> playing -> finished.
type State string

const (
	StateWaiting     State = "waiting"
	StateRegistering State = "registering"
	StatePlaying     State = "playing"
	StateFinished    State = "finished"
)

// rank orders states so forward-only transitions can be checked.
func (s State) rank() int {
	switch s {
	case StateWaiting:
		return 0
	case StateRegistering:
		return 1
	case StatePlaying:
		return 2
	case StateFinished:
		return 3
	}
	return -1
}

// FinalRoundType selects the optional phase played once every gift is open.
type FinalRoundType string

const (
	FinalRoundNone  FinalRoundType = "none"
	FinalRoundSwap  FinalRoundType = "swap"  // one swap, then the game ends
	FinalRoundChain FinalRoundType = "chain" // trades cascade until someone keeps
)

// Valid reports whether t is one of the known final round variants.
func (t FinalRoundType) Valid() bool {
	switch t {
	case FinalRoundNone, FinalRoundSwap, FinalRoundChain:
		return true
	}
	return false
}

// Player is a participant. An empty Gift or CurrentGift means none.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsHost      bool   `json:"isHost"`
	Gift        string `json:"gift"`        // gift this player registered, set at most once
	CurrentGift string `json:"currentGift"` // gift this player holds right now
}

// Gift is a registered present. BroughtByName and CurrentHolderName are
// snapshots of the player name taken when the field was written.
type Gift struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	BroughtBy         string `json:"broughtBy"`
	BroughtByName     string `json:"broughtByName"`
	Opened            bool   `json:"opened"`
	CurrentHolder     string `json:"currentHolder"`
	CurrentHolderName string `json:"currentHolderName"`
}

// Party is the aggregate the engine operates on. It is stored and loaded as a
// whole; the engine never mutates a Party it was handed.
type Party struct {
	ID                   string         `json:"id"`
	HostID               string         `json:"hostId"`
	HostName             string         `json:"hostName"`
	State                State          `json:"state"`
	Players              []Player       `json:"players"`
	Gifts                []Gift         `json:"gifts"`
	TurnOrder            []string       `json:"turnOrder"`
	CurrentTurnIndex     int            `json:"currentTurnIndex"`
	CurrentPlayerID      string         `json:"currentPlayerId"`
	Actions              ActionLog      `json:"actions"`
	StealCount           map[string]int `json:"stealCount"`
	MaxSteals            int            `json:"maxSteals"`
	LastStolenGiftID     string         `json:"lastStolenGiftId"`
	FinalRoundType       FinalRoundType `json:"finalRoundType"`
	FinalSwapAllowLocked bool           `json:"finalSwapAllowLocked"`
	InFinalRound         bool           `json:"inFinalRound"`
	LastUpdated          int64          `json:"lastUpdated"` // unix millis
}

// Clone returns a deep copy of p. Logged actions are immutable values and are
// shared between copies.
func (p *Party) Clone() *Party {
	c := *p
	c.Players = slices.Clone(p.Players)
	c.Gifts = slices.Clone(p.Gifts)
	c.TurnOrder = slices.Clone(p.TurnOrder)
	c.Actions = slices.Clone(p.Actions)
	c.StealCount = maps.Clone(p.StealCount)
	if c.StealCount == nil {
		c.StealCount = map[string]int{}
	}
	return &c
}

// Player returns the player with the given id, or nil.
func (p *Party) Player(id string) *Player {
	if id == "" {
		return nil
	}
	for i := range p.Players {
		if p.Players[i].ID == id {
			return &p.Players[i]
		}
	}
	return nil
}

// Gift returns the gift with the given id, or nil.
func (p *Party) Gift(id string) *Gift {
	if id == "" {
		return nil
	}
	for i := range p.Gifts {
		if p.Gifts[i].ID == id {
			return &p.Gifts[i]
		}
	}
	return nil
}

// CurrentPlayer returns the player whose move is legal, or nil outside play.
func (p *Party) CurrentPlayer() *Player {
	return p.Player(p.CurrentPlayerID)
}

// UnopenedGifts returns how many gifts are still wrapped.
func (p *Party) UnopenedGifts() int {
	n := 0
	for _, g := range p.Gifts {
		if !g.Opened {
			n++
		}
	}
	return n
}

// IsLocked reports whether gift id has reached the steal cap.
func (p *Party) IsLocked(id string) bool {
	return p.StealCount[id] >= p.MaxSteals
}

// playerName returns the display name for id, or "" when unknown.
func (p *Party) playerName(id string) string {
	if pl := p.Player(id); pl != nil {
		return pl.Name
	}
	return ""
}

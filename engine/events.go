package engine

import (
	"encoding/json"
	"fmt"
)

// ActionType tags each entry of the action log.
type ActionType string

const (
	ActionGameStarted ActionType = "game_started"
	ActionOpened      ActionType = "opened"
	ActionStolen      ActionType = "stolen"
	ActionTraded      ActionType = "traded"
	ActionSwapped     ActionType = "swapped"
	ActionKept        ActionType = "kept"
	ActionFinalRound  ActionType = "final_round"
	ActionGameEnded   ActionType = "game_ended"
)

// Action is one immutable log entry. The concrete types below are the only
// implementations.
type Action interface {
	Kind() ActionType
	At() int64
	action()
}

// Header carries the fields shared by every action.
type Header struct {
	Type      ActionType `json:"type"`
	Timestamp int64      `json:"timestamp"`
}

func (h Header) Kind() ActionType { return h.Type }
func (h Header) At() int64        { return h.Timestamp }
func (Header) action()            {}

// GameStarted records the turn order as player names.
type GameStarted struct {
	Header
	TurnOrder []string `json:"turnOrder"`
}

// Opened records a player unwrapping a gift.
type Opened struct {
	Header
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	GiftID     string `json:"giftId"`
	GiftName   string `json:"giftName"`
}

// Transfer is the shape shared by stolen, traded and swapped entries.
// GivenGiftName is only set for traded and swapped.
type Transfer struct {
	Header
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	GiftID         string `json:"giftId"`
	GiftName       string `json:"giftName"`
	FromPlayerID   string `json:"fromPlayerId,omitempty"`
	FromPlayerName string `json:"fromPlayerName,omitempty"`
	GivenGiftName  string `json:"givenGiftName,omitempty"`
}

// Stolen records a main-phase steal.
type Stolen struct{ Transfer }

// Traded records a final-round steal, which is a forced two-way exchange.
type Traded struct{ Transfer }

// Swapped records the single swap of the swap variant.
type Swapped struct{ Transfer }

// Kept records a player ending the final round with their current gift.
type Kept struct {
	Header
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	GiftName   string `json:"giftName"`
}

// FinalRound records the start of the final round and who acts first.
type FinalRound struct {
	Header
	PlayerName     string         `json:"playerName"`
	FinalRoundType FinalRoundType `json:"finalRoundType"`
}

// Result is one line of the end-of-game summary.
type Result struct {
	PlayerName      string `json:"playerName"`
	GiftName        string `json:"giftName"`
	GiftDescription string `json:"giftDescription"`
	BroughtBy       string `json:"broughtBy"`
}

// GameEnded records who went home with what.
type GameEnded struct {
	Header
	Results []Result `json:"results"`
}

// ActionLog is the append-only history of a party.
type ActionLog []Action

// Last returns the newest entry, or nil.
func (l ActionLog) Last() Action {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// UnmarshalJSON decodes entries by their "type" tag.
func (l *ActionLog) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ActionLog, 0, len(raw))
	for i, msg := range raw {
		var h Header
		if err := json.Unmarshal(msg, &h); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		a, err := decodeAction(h.Type, msg)
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	*l = out
	return nil
}

func decodeAction(t ActionType, msg json.RawMessage) (Action, error) {
	var target Action
	switch t {
	case ActionGameStarted:
		target = &GameStarted{}
	case ActionOpened:
		target = &Opened{}
	case ActionStolen:
		target = &Stolen{}
	case ActionTraded:
		target = &Traded{}
	case ActionSwapped:
		target = &Swapped{}
	case ActionKept:
		target = &Kept{}
	case ActionFinalRound:
		target = &FinalRound{}
	case ActionGameEnded:
		target = &GameEnded{}
	default:
		return nil, fmt.Errorf("unknown action type %q", t)
	}
	if err := json.Unmarshal(msg, target); err != nil {
		return nil, err
	}
	// Store values, not pointers, so decoded logs compare equal to fresh ones.
	switch a := target.(type) {
	case *GameStarted:
		return *a, nil
	case *Opened:
		return *a, nil
	case *Stolen:
		return *a, nil
	case *Traded:
		return *a, nil
	case *Swapped:
		return *a, nil
	case *Kept:
		return *a, nil
	case *FinalRound:
		return *a, nil
	case *GameEnded:
		return *a, nil
	}
	return nil, fmt.Errorf("unhandled action type %q", t)
}

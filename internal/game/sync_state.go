// internal/game/sync_state.go
package game

import (
	engine "github.com/nhiquach/white-elephant-party/engine"
)

// HiddenText replaces the identity of a gift that is still wrapped.
const HiddenText = "???"

// ViewPlayer is a player as seen by clients. The registered gift id is
// reduced to HasGift so nobody can map wrapped gifts to who brought them.
type ViewPlayer struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IsHost      bool    `json:"isHost"`
	HasGift     bool    `json:"hasGift"`
	CurrentGift *string `json:"currentGift"`
}

// ViewGift is a gift as seen by clients.
type ViewGift struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Opened            bool    `json:"opened"`
	CurrentHolder     *string `json:"currentHolder"`
	CurrentHolderName *string `json:"currentHolderName"`
	BroughtByName     string  `json:"broughtByName"`
	StealCount        int     `json:"stealCount"`
	MaxSteals         int     `json:"maxSteals"`
}

// ClientView is the only shape of a party that leaves the service.
type ClientView struct {
	ID                   string                `json:"id"`
	HostID               string                `json:"hostId"`
	HostName             string                `json:"hostName"`
	State                engine.State          `json:"state"`
	Players              []ViewPlayer          `json:"players"`
	Gifts                []ViewGift            `json:"gifts"`
	CurrentPlayerID      *string               `json:"currentPlayerId"`
	CurrentPlayerName    *string               `json:"currentPlayerName"`
	TurnOrder            []string              `json:"turnOrder"`
	Actions              engine.ActionLog      `json:"actions"`
	LastStolenGiftID     *string               `json:"lastStolenGiftId"`
	FinalRoundType       engine.FinalRoundType `json:"finalRoundType"`
	FinalSwapAllowLocked bool                  `json:"finalSwapAllowLocked"`
	InFinalRound         bool                  `json:"inFinalRound"`
	MaxSteals            int                   `json:"maxSteals"`
	LastUpdated          int64                 `json:"lastUpdated"`
}

// ProjectForClient builds the client view of p. Wrapped gifts have their
// name, description and giver replaced; turn order is rendered as names.
func ProjectForClient(p *engine.Party) *ClientView {
	if p == nil {
		return nil
	}
	v := &ClientView{
		ID:                   p.ID,
		HostID:               p.HostID,
		HostName:             p.HostName,
		State:                p.State,
		Players:              make([]ViewPlayer, len(p.Players)),
		Gifts:                make([]ViewGift, len(p.Gifts)),
		CurrentPlayerID:      nullable(p.CurrentPlayerID),
		TurnOrder:            make([]string, len(p.TurnOrder)),
		Actions:              append(engine.ActionLog{}, p.Actions...),
		LastStolenGiftID:     nullable(p.LastStolenGiftID),
		FinalRoundType:       p.FinalRoundType,
		FinalSwapAllowLocked: p.FinalSwapAllowLocked,
		InFinalRound:         p.InFinalRound,
		MaxSteals:            p.MaxSteals,
		LastUpdated:          p.LastUpdated,
	}

	for i, pl := range p.Players {
		v.Players[i] = ViewPlayer{
			ID:          pl.ID,
			Name:        pl.Name,
			IsHost:      pl.IsHost,
			HasGift:     pl.Gift != "",
			CurrentGift: nullable(pl.CurrentGift),
		}
	}

	for i, g := range p.Gifts {
		vg := ViewGift{
			ID:                g.ID,
			Name:              HiddenText,
			Opened:            g.Opened,
			CurrentHolder:     nullable(g.CurrentHolder),
			CurrentHolderName: nullable(g.CurrentHolderName),
			BroughtByName:     HiddenText,
			StealCount:        p.StealCount[g.ID],
			MaxSteals:         p.MaxSteals,
		}
		if g.Opened {
			vg.Name = g.Name
			vg.Description = g.Description
			vg.BroughtByName = g.BroughtByName
		}
		v.Gifts[i] = vg
	}

	if cur := p.CurrentPlayer(); cur != nil {
		v.CurrentPlayerName = nullable(cur.Name)
	}
	for i, id := range p.TurnOrder {
		if pl := p.Player(id); pl != nil {
			v.TurnOrder[i] = pl.Name
		}
	}
	return v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

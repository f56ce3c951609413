package engine

// requireHost rejects callers other than the party host.
func requireHost(p *Party, callerID string) error {
	if callerID == "" || callerID != p.HostID {
		return reject(ReasonUnauthorized, "only the host can do this")
	}
	return nil
}

// requireTurn rejects unless the game is in play and playerID holds the turn.
func requireTurn(p *Party, playerID string) (*Player, error) {
	if p.State != StatePlaying {
		return nil, reject(ReasonInvalidState, "game is not in progress (state %s)", p.State)
	}
	if playerID == "" || playerID != p.CurrentPlayerID {
		return nil, reject(ReasonUnauthorized, "it is not this player's turn")
	}
	player := p.Player(playerID)
	if player == nil {
		return nil, reject(ReasonNotFound, "player %q not found", playerID)
	}
	return player, nil
}

// requireOpenedTarget returns giftID if it exists, is open and is held by
// someone other than player.
func requireOpenedTarget(p *Party, player *Player, giftID string) (*Gift, error) {
	gift := p.Gift(giftID)
	if gift == nil {
		return nil, reject(ReasonNotFound, "gift %q not found", giftID)
	}
	if !gift.Opened {
		return nil, reject(ReasonRuleViolation, "gift is still wrapped")
	}
	if gift.CurrentHolder == player.ID {
		return nil, reject(ReasonRuleViolation, "player already holds this gift")
	}
	return gift, nil
}

// Moves lists what a player may legally do right now.
type Moves struct {
	Open  []string `json:"open"`  // wrapped gifts that can be opened
	Steal []string `json:"steal"` // gifts that can be stolen (or traded for)
	Swap  []string `json:"swap"`  // gifts that can be swapped for
	Keep  bool     `json:"keep"`
}

// Any reports whether at least one move is available.
func (m Moves) Any() bool {
	return m.Keep || len(m.Open) > 0 || len(m.Steal) > 0 || len(m.Swap) > 0
}

// LegalMoves returns the moves the engine would accept from playerID. It
// mirrors the checks in OpenGift, StealGift, KeepGift and SwapGift.
func LegalMoves(p *Party, playerID string) Moves {
	var m Moves
	player, err := requireTurn(p, playerID)
	if err != nil {
		return m
	}
	for _, g := range p.Gifts {
		if !g.Opened {
			if !p.InFinalRound {
				m.Open = append(m.Open, g.ID)
			}
			continue
		}
		if g.CurrentHolder == player.ID {
			continue
		}
		if g.ID != p.LastStolenGiftID && !p.IsLocked(g.ID) {
			m.Steal = append(m.Steal, g.ID)
		}
		if p.InFinalRound && p.FinalRoundType == FinalRoundSwap &&
			(p.FinalSwapAllowLocked || !p.IsLocked(g.ID)) {
			m.Swap = append(m.Swap, g.ID)
		}
	}
	m.Keep = p.InFinalRound
	return m
}

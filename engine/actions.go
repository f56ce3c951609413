package engine

// OpenGift unwraps giftID for the current player and advances the turn.
func (e *Engine) OpenGift(p *Party, playerID, giftID string) (*Party, error) {
	if _, err := requireTurn(p, playerID); err != nil {
		return nil, err
	}
	if g := p.Gift(giftID); g == nil {
		return nil, reject(ReasonNotFound, "gift %q not found", giftID)
	} else if g.Opened {
		return nil, reject(ReasonRuleViolation, "gift %s is already open", g.Name)
	}

	next := p.Clone()
	player := next.Player(playerID)
	gift := next.Gift(giftID)
	gift.Opened = true
	gift.CurrentHolder = player.ID
	gift.CurrentHolderName = player.Name
	player.CurrentGift = gift.ID

	ts := e.stamp(next)
	next.Actions = append(next.Actions, Opened{
		Header:     Header{Type: ActionOpened, Timestamp: ts},
		PlayerID:   player.ID,
		PlayerName: player.Name,
		GiftID:     gift.ID,
		GiftName:   gift.Name,
	})
	next.LastStolenGiftID = ""
	e.advanceTurn(next, ts)
	return next, nil
}

// StealGift takes an opened gift from its holder. In the main phase the
// victim moves next; in the final round the steal becomes a two-way trade.
func (e *Engine) StealGift(p *Party, playerID, giftID string) (*Party, error) {
	player, err := requireTurn(p, playerID)
	if err != nil {
		return nil, err
	}
	gift, err := requireOpenedTarget(p, player, giftID)
	if err != nil {
		return nil, err
	}
	if gift.ID == p.LastStolenGiftID {
		return nil, reject(ReasonRuleViolation, "gift %s was just stolen and cannot be stolen back", gift.Name)
	}
	if p.IsLocked(gift.ID) {
		return nil, reject(ReasonRuleViolation, "gift %s has reached the steal limit of %d", gift.Name, p.MaxSteals)
	}

	next := p.Clone()
	player = next.Player(playerID)
	gift = next.Gift(giftID)
	victim := next.Player(gift.CurrentHolder)
	given := next.Gift(player.CurrentGift)

	if next.InFinalRound && victim != nil && given != nil {
		victim.CurrentGift = given.ID
		given.CurrentHolder = victim.ID
		given.CurrentHolderName = victim.Name
	} else if victim != nil {
		victim.CurrentGift = ""
	}
	gift.CurrentHolder = player.ID
	gift.CurrentHolderName = player.Name
	player.CurrentGift = gift.ID
	next.StealCount[gift.ID]++
	next.LastStolenGiftID = gift.ID

	ts := e.stamp(next)
	t := Transfer{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		GiftID:     gift.ID,
		GiftName:   gift.Name,
	}
	if victim != nil {
		t.FromPlayerID = victim.ID
		t.FromPlayerName = victim.Name
	}

	if !next.InFinalRound {
		t.Header = Header{Type: ActionStolen, Timestamp: ts}
		next.Actions = append(next.Actions, Stolen{t})
		if victim != nil {
			next.CurrentPlayerID = victim.ID
		}
		return next, nil
	}

	t.Header = Header{Type: ActionTraded, Timestamp: ts}
	if given != nil {
		t.GivenGiftName = given.Name
	}
	next.Actions = append(next.Actions, Traded{t})

	switch next.FinalRoundType {
	case FinalRoundSwap:
		e.endGame(next, ts)
	case FinalRoundChain:
		if victim != nil {
			next.CurrentPlayerID = victim.ID
		} else {
			e.endGame(next, ts)
		}
	}
	return next, nil
}

// KeepGift ends the final round with everyone holding what they have.
func (e *Engine) KeepGift(p *Party, playerID string) (*Party, error) {
	if p.State == StatePlaying && !p.InFinalRound {
		return nil, reject(ReasonInvalidState, "keeping is only possible in the final round")
	}
	player, err := requireTurn(p, playerID)
	if err != nil {
		return nil, err
	}

	next := p.Clone()
	giftName := "their gift"
	if g := next.Gift(player.CurrentGift); g != nil {
		giftName = g.Name
	}
	ts := e.stamp(next)
	next.Actions = append(next.Actions, Kept{
		Header:     Header{Type: ActionKept, Timestamp: ts},
		PlayerID:   player.ID,
		PlayerName: player.Name,
		GiftName:   giftName,
	})
	e.endGame(next, ts)
	return next, nil
}

// SwapGift exchanges the current player's gift with giftID's holder and ends
// the game. Only legal in the final round of the swap variant.
func (e *Engine) SwapGift(p *Party, playerID, giftID string) (*Party, error) {
	if p.State == StatePlaying && (!p.InFinalRound || p.FinalRoundType != FinalRoundSwap) {
		return nil, reject(ReasonInvalidState, "swapping is only possible in a swap final round")
	}
	player, err := requireTurn(p, playerID)
	if err != nil {
		return nil, err
	}
	gift, err := requireOpenedTarget(p, player, giftID)
	if err != nil {
		return nil, err
	}
	if !p.FinalSwapAllowLocked && p.IsLocked(gift.ID) {
		return nil, reject(ReasonRuleViolation, "gift %s is locked", gift.Name)
	}

	next := p.Clone()
	player = next.Player(playerID)
	gift = next.Gift(giftID)
	victim := next.Player(gift.CurrentHolder)
	given := next.Gift(player.CurrentGift)

	if victim != nil && given != nil {
		victim.CurrentGift = given.ID
		given.CurrentHolder = victim.ID
		given.CurrentHolderName = victim.Name
	}
	gift.CurrentHolder = player.ID
	gift.CurrentHolderName = player.Name
	player.CurrentGift = gift.ID

	ts := e.stamp(next)
	t := Transfer{
		Header:     Header{Type: ActionSwapped, Timestamp: ts},
		PlayerID:   player.ID,
		PlayerName: player.Name,
		GiftID:     gift.ID,
		GiftName:   gift.Name,
	}
	if victim != nil {
		t.FromPlayerID = victim.ID
		t.FromPlayerName = victim.Name
	}
	if given != nil {
		t.GivenGiftName = given.Name
	}
	next.Actions = append(next.Actions, Swapped{t})
	e.endGame(next, ts)
	return next, nil
}

package engine

// advanceTurn moves play on after a gift is opened: into the final round or
// to the end once nothing is wrapped, otherwise to the next player in turn
// order who holds nothing.
func (e *Engine) advanceTurn(p *Party, ts int64) {
	p.CurrentTurnIndex++

	if p.UnopenedGifts() == 0 {
		if p.FinalRoundType != FinalRoundNone && !p.InFinalRound {
			e.enterFinalRound(p, ts)
			return
		}
		e.endGame(p, ts)
		return
	}

	for ; p.CurrentTurnIndex < len(p.TurnOrder); p.CurrentTurnIndex++ {
		id := p.TurnOrder[p.CurrentTurnIndex]
		if pl := p.Player(id); pl != nil && pl.CurrentGift == "" {
			p.CurrentPlayerID = id
			return
		}
	}

	// Turn order exhausted while gifts remain wrapped: fall back to join order.
	for _, pl := range p.Players {
		if pl.CurrentGift == "" {
			p.CurrentPlayerID = pl.ID
			return
		}
	}
	e.endGame(p, ts)
}

// enterFinalRound gives the first player in turn order the opening move of
// the final round. Steal-back protection resets.
func (e *Engine) enterFinalRound(p *Party, ts int64) {
	p.InFinalRound = true
	p.CurrentPlayerID = p.TurnOrder[0]
	p.LastStolenGiftID = ""
	p.Actions = append(p.Actions, FinalRound{
		Header:         Header{Type: ActionFinalRound, Timestamp: ts},
		PlayerName:     p.playerName(p.TurnOrder[0]),
		FinalRoundType: p.FinalRoundType,
	})
}

// endGame finishes the party and logs what everyone ended up with.
func (e *Engine) endGame(p *Party, ts int64) {
	p.State = StateFinished
	p.CurrentPlayerID = ""

	results := make([]Result, len(p.Players))
	for i, pl := range p.Players {
		r := Result{
			PlayerName: pl.Name,
			GiftName:   "No gift",
			BroughtBy:  "Unknown",
		}
		if g := p.Gift(pl.CurrentGift); g != nil {
			r.GiftName = g.Name
			r.GiftDescription = g.Description
			r.BroughtBy = g.BroughtByName
		}
		results[i] = r
	}
	p.Actions = append(p.Actions, GameEnded{
		Header:  Header{Type: ActionGameEnded, Timestamp: ts},
		Results: results,
	})
}

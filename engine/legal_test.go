package engine

import (
	"math/rand/v2"
	"slices"
	"testing"
)

// TestLegalMovesOutsidePlay verifies nobody has moves before the game starts
// or after it ends, and only the current player has them during play.
func TestLegalMovesOutsidePlay(t *testing.T) {
	e := newTestEngine(1)
	lobby := newLobby(t, e, "Alice", "Bob")
	if m := LegalMoves(lobby, lobby.HostID); m.Any() {
		t.Errorf("lobby moves = %+v, want none", m)
	}

	p := must(t)(e.StartGame(lobby, lobby.HostID))
	if m := LegalMoves(p, p.TurnOrder[1]); m.Any() {
		t.Errorf("off-turn moves = %+v, want none", m)
	}
	m := LegalMoves(p, p.TurnOrder[0])
	if len(m.Open) != 2 || len(m.Steal) != 0 || m.Keep {
		t.Errorf("opening moves = %+v, want two opens", m)
	}

	p = openOwnGifts(t, e, p)
	if m := LegalMoves(p, p.TurnOrder[0]); m.Any() {
		t.Errorf("finished moves = %+v, want none", m)
	}
}

// TestLegalMovesFinalRound verifies the chain variant offers steals and keep
// but no swaps or opens.
func TestLegalMovesFinalRound(t *testing.T) {
	e := newTestEngine(2)
	p := newGame(t, e, Settings{FinalRoundType: ptr(FinalRoundChain)}, "Alice", "Bob", "Carol")
	p = openOwnGifts(t, e, p)

	m := LegalMoves(p, p.CurrentPlayerID)
	if !m.Keep || len(m.Steal) != 2 || len(m.Swap) != 0 || len(m.Open) != 0 {
		t.Errorf("chain final round moves = %+v", m)
	}
}

// ---------------------------------------------------------------------------
// Randomized play
// ---------------------------------------------------------------------------

type move struct {
	kind string
	gift string
}

func (m Moves) list() []move {
	var out []move
	for _, g := range m.Open {
		out = append(out, move{"open", g})
	}
	for _, g := range m.Steal {
		out = append(out, move{"steal", g})
	}
	for _, g := range m.Swap {
		out = append(out, move{"swap", g})
	}
	if m.Keep {
		out = append(out, move{kind: "keep"})
	}
	return out
}

func (e *Engine) play(p *Party, playerID string, m move) (*Party, error) {
	switch m.kind {
	case "open":
		return e.OpenGift(p, playerID, m.gift)
	case "steal":
		return e.StealGift(p, playerID, m.gift)
	case "swap":
		return e.SwapGift(p, playerID, m.gift)
	default:
		return e.KeepGift(p, playerID)
	}
}

// TestRandomPlayInvariants plays many random games choosing among the legal
// moves and checks after every step that:
//   - every legal move is accepted
//   - gift holders are unique and consistent
//   - no steal count exceeds the cap
//   - state only moves forward and lastUpdated strictly increases
//   - a move by anyone off turn is rejected without effect
//   - the gift just stolen cannot be stolen straight back
func TestRandomPlayInvariants(t *testing.T) {
	names := []string{"Ann", "Ben", "Cat", "Dan", "Eve", "Fay"}
	variants := []FinalRoundType{FinalRoundNone, FinalRoundSwap, FinalRoundChain}

	for seed := uint64(1); seed <= 60; seed++ {
		rng := rand.New(rand.NewPCG(seed, 99))
		e := newTestEngine(seed)
		n := 2 + rng.IntN(len(names)-1)
		p := newGame(t, e, Settings{
			FinalRoundType:       ptr(variants[rng.IntN(len(variants))]),
			FinalSwapAllowLocked: ptr(rng.IntN(2) == 0),
			MaxSteals:            ptr(string(rune('1' + rng.IntN(3)))),
		}, names[:n]...)

		for step := 0; p.State == StatePlaying; step++ {
			if step > 500 {
				t.Fatalf("seed %d: game did not finish", seed)
			}
			cur := p.CurrentPlayerID
			moves := LegalMoves(p, cur).list()
			if len(moves) == 0 {
				t.Fatalf("seed %d step %d: no legal move for %s", seed, step, cur)
			}
			m := moves[rng.IntN(len(moves))]

			for _, pl := range p.Players {
				if pl.ID == cur {
					continue
				}
				if _, err := e.play(p, pl.ID, m); err == nil {
					t.Fatalf("seed %d step %d: %s accepted %s off turn", seed, step, pl.ID, m.kind)
				}
			}

			next, err := e.play(p, cur, m)
			if err != nil {
				t.Fatalf("seed %d step %d: legal %s %s rejected: %v", seed, step, m.kind, m.gift, err)
			}
			if next.State.rank() < p.State.rank() {
				t.Fatalf("seed %d step %d: state went back from %s to %s", seed, step, p.State, next.State)
			}
			if next.LastUpdated <= p.LastUpdated {
				t.Fatalf("seed %d step %d: lastUpdated %d -> %d", seed, step, p.LastUpdated, next.LastUpdated)
			}
			if len(next.Actions) <= len(p.Actions) {
				t.Fatalf("seed %d step %d: %s logged nothing", seed, step, m.kind)
			}
			checkHolders(t, next)
			for id, c := range next.StealCount {
				if c > next.MaxSteals {
					t.Fatalf("seed %d step %d: gift %s stolen %d times, cap %d", seed, step, id, c, next.MaxSteals)
				}
			}
			if m.kind == "steal" && next.State == StatePlaying {
				_, err := e.StealGift(next, next.CurrentPlayerID, m.gift)
				wantReason(t, err, ReasonRuleViolation)
			}
			p = next
		}

		ended, ok := p.Actions.Last().(GameEnded)
		if !ok || len(ended.Results) != n {
			t.Fatalf("seed %d: last action %+v, want GameEnded for %d players", seed, p.Actions.Last(), n)
		}
		if p.FinalRoundType == FinalRoundNone && slices.ContainsFunc(p.Actions, func(a Action) bool {
			return a.Kind() == ActionFinalRound
		}) {
			t.Fatalf("seed %d: final round played with type none", seed)
		}
	}
}

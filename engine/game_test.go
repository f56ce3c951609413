package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestEngine returns an engine with sequential ids, a clock that ticks
// 10ms per call and a seeded shuffle.
func newTestEngine(seed uint64) *Engine {
	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("id%02d", n)
	}
	var clock int64 = 1_000
	return New(newID,
		WithClock(func() int64 { clock += 10; return clock }),
		WithRand(rand.New(rand.NewPCG(seed, 2))),
	)
}

// must unwraps an engine result, failing the test on rejection.
func must(t *testing.T) func(*Party, error) *Party {
	return func(p *Party, err error) *Party {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
		return p
	}
}

// wantReason fails unless err is a rejection with the given reason.
func wantReason(t *testing.T, err error, want Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("want rejection %s, got success", want)
	}
	got, ok := ReasonOf(err)
	if !ok {
		t.Fatalf("want rejection %s, got non-rejection error %v", want, err)
	}
	if got != want {
		t.Fatalf("reason = %s, want %s (%v)", got, want, err)
	}
}

// newLobby creates a party hosted by names[0] with the rest joined and every
// player's gift registered as "Gift <name>".
func newLobby(t *testing.T, e *Engine, names ...string) *Party {
	t.Helper()
	p := e.CreateParty(names[0])
	for _, name := range names[1:] {
		var err error
		p, _, err = e.AddPlayer(p, name)
		if err != nil {
			t.Fatalf("AddPlayer(%s): %v", name, err)
		}
	}
	for _, pl := range p.Players {
		var err error
		p, _, err = e.RegisterGift(p, pl.ID, "Gift "+pl.Name, "from "+pl.Name)
		if err != nil {
			t.Fatalf("RegisterGift(%s): %v", pl.Name, err)
		}
	}
	return p
}

// newGame starts a game for names after applying settings.
func newGame(t *testing.T, e *Engine, s Settings, names ...string) *Party {
	t.Helper()
	p := newLobby(t, e, names...)
	p = must(t)(e.UpdateSettings(p, p.HostID, s))
	return must(t)(e.StartGame(p, p.HostID))
}

// broughtBy returns the gift the given player registered.
func broughtBy(t *testing.T, p *Party, playerID string) *Gift {
	t.Helper()
	pl := p.Player(playerID)
	if pl == nil || pl.Gift == "" {
		t.Fatalf("player %s has no registered gift", playerID)
	}
	return p.Gift(pl.Gift)
}

// openOwnGifts has each current player open the gift they brought until
// every gift is open or the game leaves the main phase.
func openOwnGifts(t *testing.T, e *Engine, p *Party) *Party {
	t.Helper()
	for p.State == StatePlaying && !p.InFinalRound {
		cur := p.CurrentPlayerID
		p = must(t)(e.OpenGift(p, cur, broughtBy(t, p, cur).ID))
	}
	return p
}

// checkHolders asserts that gift holders and player holdings agree.
func checkHolders(t *testing.T, p *Party) {
	t.Helper()
	held := map[string]string{}
	for _, pl := range p.Players {
		if pl.CurrentGift == "" {
			continue
		}
		if other, dup := held[pl.CurrentGift]; dup {
			t.Fatalf("gift %s held by both %s and %s", pl.CurrentGift, other, pl.ID)
		}
		held[pl.CurrentGift] = pl.ID
		if g := p.Gift(pl.CurrentGift); g == nil || g.CurrentHolder != pl.ID {
			t.Fatalf("player %s holds %s but gift disagrees", pl.ID, pl.CurrentGift)
		}
	}
	for _, g := range p.Gifts {
		if g.CurrentHolder != "" && held[g.ID] != g.CurrentHolder {
			t.Fatalf("gift %s claims holder %s, players say %q", g.ID, g.CurrentHolder, held[g.ID])
		}
	}
}

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// Lobby
// ---------------------------------------------------------------------------

// TestCreateParty verifies the initial record.
func TestCreateParty(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")

	if p.State != StateWaiting {
		t.Errorf("State = %s, want waiting", p.State)
	}
	if len(p.Players) != 1 || !p.Players[0].IsHost || p.Players[0].ID != p.HostID {
		t.Fatalf("Players = %+v, want single host %s", p.Players, p.HostID)
	}
	if p.ID == p.HostID {
		t.Errorf("party and host share id %s", p.ID)
	}
	if p.MaxSteals != DefaultMaxSteals {
		t.Errorf("MaxSteals = %d, want %d", p.MaxSteals, DefaultMaxSteals)
	}
	if p.FinalRoundType != FinalRoundNone {
		t.Errorf("FinalRoundType = %s, want none", p.FinalRoundType)
	}
	if len(p.Gifts) != 0 || len(p.TurnOrder) != 0 || len(p.Actions) != 0 {
		t.Errorf("want empty gifts, turn order and actions, got %d/%d/%d", len(p.Gifts), len(p.TurnOrder), len(p.Actions))
	}
	if p.LastUpdated == 0 {
		t.Error("LastUpdated not stamped")
	}
}

// TestAddPlayerOnlyWhileWaiting verifies joining is closed once registration begins.
func TestAddPlayerOnlyWhileWaiting(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")

	p, bob, err := e.AddPlayer(p, "Bob")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if bob.IsHost || bob.Gift != "" || bob.Name != "Bob" {
		t.Errorf("new player = %+v, want non-host Bob without gift", bob)
	}

	p = must(t)(e.BeginRegistration(p, p.HostID))
	_, _, err = e.AddPlayer(p, "Carol")
	wantReason(t, err, ReasonInvalidState)
}

// TestBeginRegistration verifies the host gate and the waiting-only transition.
func TestBeginRegistration(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")
	p, bob, _ := e.AddPlayer(p, "Bob")

	_, err := e.BeginRegistration(p, bob.ID)
	wantReason(t, err, ReasonUnauthorized)

	p = must(t)(e.BeginRegistration(p, p.HostID))
	if p.State != StateRegistering {
		t.Fatalf("State = %s, want registering", p.State)
	}

	_, err = e.BeginRegistration(p, p.HostID)
	wantReason(t, err, ReasonInvalidState)
}

// TestRegisterGift verifies gift creation and the one-gift-per-player rule.
func TestRegisterGift(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")

	p, g, err := e.RegisterGift(p, p.HostID, "Mug", "a mug")
	if err != nil {
		t.Fatalf("RegisterGift: %v", err)
	}
	if g.BroughtBy != p.HostID || g.BroughtByName != "Alice" || g.Opened || g.CurrentHolder != "" {
		t.Errorf("gift = %+v", g)
	}
	if p.Players[0].Gift != g.ID {
		t.Errorf("player gift = %q, want %q", p.Players[0].Gift, g.ID)
	}
	if n, ok := p.StealCount[g.ID]; !ok || n != 0 {
		t.Errorf("StealCount[%s] = %d (present %v), want seeded 0", g.ID, n, ok)
	}

	_, _, err = e.RegisterGift(p, p.HostID, "Another", "")
	wantReason(t, err, ReasonRuleViolation)

	_, _, err = e.RegisterGift(p, "nobody", "Ghost", "")
	wantReason(t, err, ReasonNotFound)
}

// TestRegisterGiftHasNoStateGate verifies registration works outside the
// registering state too.
func TestRegisterGiftHasNoStateGate(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")
	if _, _, err := e.RegisterGift(p, p.HostID, "Mug", ""); err != nil {
		t.Fatalf("RegisterGift while waiting: %v", err)
	}
}

// TestUpdateSettings verifies partial updates, clamping and the gates.
func TestUpdateSettings(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")
	p, bob, _ := e.AddPlayer(p, "Bob")

	p = must(t)(e.UpdateSettings(p, p.HostID, Settings{MaxSteals: ptr("42")}))
	if p.MaxSteals != MaxMaxSteals {
		t.Errorf("MaxSteals = %d, want %d", p.MaxSteals, MaxMaxSteals)
	}
	if p.FinalRoundType != FinalRoundNone {
		t.Errorf("FinalRoundType changed to %s without being supplied", p.FinalRoundType)
	}

	p = must(t)(e.UpdateSettings(p, p.HostID, Settings{
		FinalRoundType:       ptr(FinalRoundSwap),
		FinalSwapAllowLocked: ptr(true),
	}))
	if p.FinalRoundType != FinalRoundSwap || !p.FinalSwapAllowLocked {
		t.Errorf("settings = %s/%v, want swap/true", p.FinalRoundType, p.FinalSwapAllowLocked)
	}
	if p.MaxSteals != MaxMaxSteals {
		t.Errorf("MaxSteals = %d, want unchanged %d", p.MaxSteals, MaxMaxSteals)
	}

	_, err := e.UpdateSettings(p, bob.ID, Settings{MaxSteals: ptr("2")})
	wantReason(t, err, ReasonUnauthorized)

	_, err = e.UpdateSettings(p, p.HostID, Settings{FinalRoundType: ptr(FinalRoundType("lottery"))})
	wantReason(t, err, ReasonRuleViolation)

	p = must(t)(e.BeginRegistration(p, p.HostID))
	_, err = e.UpdateSettings(p, p.HostID, Settings{MaxSteals: ptr("2")})
	wantReason(t, err, ReasonInvalidState)
}

// TestStartGameScenario covers a two-player lobby through to play.
func TestStartGameScenario(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")
	p, bob, _ := e.AddPlayer(p, "Bob")
	p, _, _ = e.RegisterGift(p, p.HostID, "A", "")
	p, _, _ = e.RegisterGift(p, bob.ID, "B", "")

	p = must(t)(e.StartGame(p, p.HostID))
	if p.State != StatePlaying {
		t.Fatalf("State = %s, want playing", p.State)
	}
	order := slices.Clone(p.TurnOrder)
	slices.Sort(order)
	want := []string{p.HostID, bob.ID}
	slices.Sort(want)
	if !slices.Equal(order, want) {
		t.Fatalf("TurnOrder = %v, want a permutation of %v", p.TurnOrder, want)
	}
	if p.CurrentTurnIndex != 0 || p.CurrentPlayerID != p.TurnOrder[0] {
		t.Errorf("current = %d/%s, want 0/%s", p.CurrentTurnIndex, p.CurrentPlayerID, p.TurnOrder[0])
	}
	started, ok := p.Actions.Last().(GameStarted)
	if !ok {
		t.Fatalf("last action = %T, want GameStarted", p.Actions.Last())
	}
	if len(started.TurnOrder) != 2 || started.TurnOrder[0] != p.CurrentPlayer().Name {
		t.Errorf("GameStarted.TurnOrder = %v, want names starting with %s", started.TurnOrder, p.CurrentPlayer().Name)
	}
}

// TestStartGameGates verifies host, gift and state requirements.
func TestStartGameGates(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")
	p, bob, _ := e.AddPlayer(p, "Bob")
	p, _, _ = e.RegisterGift(p, p.HostID, "A", "")

	_, err := e.StartGame(p, p.HostID)
	wantReason(t, err, ReasonRuleViolation)

	p, _, _ = e.RegisterGift(p, bob.ID, "B", "")
	_, err = e.StartGame(p, bob.ID)
	wantReason(t, err, ReasonUnauthorized)

	p = must(t)(e.StartGame(p, p.HostID))
	_, err = e.StartGame(p, p.HostID)
	wantReason(t, err, ReasonInvalidState)
}

// TestStartGameShuffleCoversAllOrders verifies every ordering of three
// players is reachable.
func TestStartGameShuffleCoversAllOrders(t *testing.T) {
	e := newTestEngine(7)
	lobby := newLobby(t, e, "Alice", "Bob", "Carol")

	seen := map[string]bool{}
	for i := 0; i < 200 && len(seen) < 6; i++ {
		p := must(t)(e.StartGame(lobby, lobby.HostID))
		seen[fmt.Sprint(p.TurnOrder)] = true
	}
	if len(seen) != 6 {
		t.Errorf("saw %d distinct turn orders, want 6", len(seen))
	}
}

// TestOperationsDoNotMutateInput verifies the engine works on copies.
func TestOperationsDoNotMutateInput(t *testing.T) {
	e := newTestEngine(1)
	lobby := newLobby(t, e, "Alice", "Bob")
	before := lobby.Clone()

	p := must(t)(e.StartGame(lobby, lobby.HostID))
	if !reflect.DeepEqual(lobby, before) {
		t.Fatal("StartGame modified its input")
	}

	before = p.Clone()
	cur := p.CurrentPlayerID
	must(t)(e.OpenGift(p, cur, broughtBy(t, p, cur).ID))
	if !reflect.DeepEqual(p, before) {
		t.Fatal("OpenGift modified its input")
	}
}

// TestCloneIsDeep verifies a clone shares no mutable state.
func TestCloneIsDeep(t *testing.T) {
	e := newTestEngine(1)
	p := newLobby(t, e, "Alice", "Bob")
	c := p.Clone()

	c.Players[0].Name = "Mallory"
	c.Gifts[0].Opened = true
	c.StealCount[c.Gifts[0].ID] = 9

	if p.Players[0].Name != "Alice" || p.Gifts[0].Opened || p.StealCount[p.Gifts[0].ID] != 0 {
		t.Error("mutating the clone changed the original")
	}
}

// TestRejectedErrorMatching verifies errors.Is against the reason sentinels.
func TestRejectedErrorMatching(t *testing.T) {
	e := newTestEngine(1)
	p := e.CreateParty("Alice")
	_, err := e.BeginRegistration(p, "intruder")

	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("errors.Is(%v, ErrUnauthorized) = false", err)
	}
	if errors.Is(err, ErrInvalidState) {
		t.Errorf("errors.Is(%v, ErrInvalidState) = true", err)
	}
	wrapped := fmt.Errorf("party %s: %w", p.ID, err)
	if !IsRejected(wrapped) {
		t.Error("IsRejected(wrapped) = false")
	}
	if r, _ := ReasonOf(wrapped); r != ReasonUnauthorized {
		t.Errorf("ReasonOf(wrapped) = %s, want unauthorized", r)
	}
}

package game

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/nhiquach/white-elephant-party/engine"
)

func startedParty(t *testing.T) *engine.Party {
	t.Helper()
	n := 0
	e := engine.New(func() string { n++; return "id" + string(rune('a'+n)) }, engine.WithRand(rand.New(rand.NewPCG(3, 4))))
	p := e.CreateParty("Alice")
	p, bob, err := e.AddPlayer(p, "Bob")
	require.NoError(t, err)
	p, _, err = e.RegisterGift(p, p.HostID, "Espresso machine", "barely used")
	require.NoError(t, err)
	p, _, err = e.RegisterGift(p, bob.ID, "Socks", "wool")
	require.NoError(t, err)
	p, err = e.StartGame(p, p.HostID)
	require.NoError(t, err)
	cur := p.CurrentPlayer()
	p, err = e.OpenGift(p, cur.ID, cur.Gift)
	require.NoError(t, err)
	return p
}

func TestProjectForClientHidesWrappedGifts(t *testing.T) {
	p := startedParty(t)
	v := ProjectForClient(p)

	var opened, wrapped int
	for i, g := range v.Gifts {
		src := p.Gifts[i]
		assert.Equal(t, src.ID, g.ID)
		if src.Opened {
			opened++
			assert.Equal(t, src.Name, g.Name)
			assert.Equal(t, src.Description, g.Description)
			assert.Equal(t, src.BroughtByName, g.BroughtByName)
			require.NotNil(t, g.CurrentHolder)
			continue
		}
		wrapped++
		assert.Equal(t, HiddenText, g.Name)
		assert.Empty(t, g.Description)
		assert.Equal(t, HiddenText, g.BroughtByName)
		assert.Nil(t, g.CurrentHolder)
		assert.Equal(t, p.MaxSteals, g.MaxSteals)
	}
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, wrapped)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	for _, g := range p.Gifts {
		if !g.Opened {
			assert.False(t, strings.Contains(string(raw), g.Name), "wrapped gift name leaked")
			assert.False(t, strings.Contains(string(raw), g.Description), "wrapped gift description leaked")
		}
	}
	for _, pl := range p.Players {
		assert.NotContains(t, string(raw), `"gift":"`+pl.Gift+`"`)
	}
}

func TestProjectForClientNamesAndNulls(t *testing.T) {
	p := startedParty(t)
	v := ProjectForClient(p)

	require.Len(t, v.TurnOrder, len(p.TurnOrder))
	for i, id := range p.TurnOrder {
		assert.Equal(t, p.Player(id).Name, v.TurnOrder[i])
	}
	require.NotNil(t, v.CurrentPlayerName)
	assert.Equal(t, p.CurrentPlayer().Name, *v.CurrentPlayerName)
	assert.Nil(t, v.LastStolenGiftID)

	for i, pl := range v.Players {
		assert.True(t, pl.HasGift)
		if p.Players[i].CurrentGift == "" {
			assert.Nil(t, pl.CurrentGift)
		} else {
			require.NotNil(t, pl.CurrentGift)
			assert.Equal(t, p.Players[i].CurrentGift, *pl.CurrentGift)
		}
	}

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastStolenGiftId":null`)
}

func TestProjectForClientDoesNotAlias(t *testing.T) {
	p := startedParty(t)
	v := ProjectForClient(p)

	*v.CurrentPlayerName = "Mallory"
	v.TurnOrder[0] = "Mallory"
	assert.NotEqual(t, "Mallory", p.CurrentPlayer().Name)
	assert.Nil(t, ProjectForClient(nil))
}

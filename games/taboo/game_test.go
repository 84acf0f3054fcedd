/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taboo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGame(t *testing.T, words ...string) (*Game, *fakeClock) {
	t.Helper()

	if len(words) == 0 {
		words = []string{"apple", "bridge", "cloud", "desert", "engine"}
	}

	d, err := NewDeck(testCards(words...), seeded())
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	return NewGame(d, 60*time.Second, WithClock(clock.Now)), clock
}

// twoPlayers returns a game where "a" leads team A and "b" sits on team B.
func twoPlayers(t *testing.T) (*Game, *fakeClock) {
	t.Helper()

	g, clock := newTestGame(t)
	require.Equal(t, TeamA, g.AddPlayer("a"))
	require.Equal(t, TeamB, g.AddPlayer("b"))
	require.NoError(t, g.AssignLeader("a"))

	return g, clock
}

func TestGame_Initial(t *testing.T) {
	g, _ := newTestGame(t)

	assert.Equal(t, TeamA, g.ActiveTeam())
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
	assert.Equal(t, 1, g.Round())
	assert.False(t, g.TimerActive())
	assert.Zero(t, g.Score(TeamA))
	assert.Zero(t, g.Score(TeamB))
}

func TestGame_ScoreScenario(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	assert.Equal(t, PhaseCardRevealed, g.Phase())

	leader := Project(g, "a")
	require.NotNil(t, leader.Card)
	assert.NotEmpty(t, leader.Card.Word)
	assert.Len(t, leader.Card.Taboo, 2)

	other := Project(g, "b")
	assert.Nil(t, other.Card)

	require.NoError(t, g.ScoreCard("a"))
	assert.Equal(t, 1, g.Score(TeamA))
	assert.Zero(t, g.Score(TeamB))
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
	assert.Nil(t, Project(g, "a").Card)
}

func TestGame_FailCardDoesNotScore(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	require.NoError(t, g.FailCard("a"))

	assert.Zero(t, g.Score(TeamA))
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
}

func TestGame_SingleActiveCard(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	word := Project(g, "a").Card.Word

	assert.ErrorIs(t, g.NextCard("a"), ErrCardAlreadyRevealed)
	assert.Equal(t, word, Project(g, "a").Card.Word)
}

func TestGame_SettleRequiresRevealedCard(t *testing.T) {
	g, _ := twoPlayers(t)

	assert.ErrorIs(t, g.ScoreCard("a"), ErrNoCardRevealed)
	assert.ErrorIs(t, g.FailCard("a"), ErrNoCardRevealed)
	assert.Zero(t, g.Score(TeamA))
}

func TestGame_ScoreMonotonic(t *testing.T) {
	g, _ := twoPlayers(t)
	require.NoError(t, g.AssignLeader("b"))

	prevA, prevB := 0, 0
	for i := range 20 {
		leader := "a"
		if g.ActiveTeam() == TeamB {
			leader = "b"
		}

		require.NoError(t, g.NextCard(leader))
		if i%3 == 0 {
			require.NoError(t, g.FailCard(leader))
		} else {
			require.NoError(t, g.ScoreCard(leader))
		}

		a, b := g.Score(TeamA), g.Score(TeamB)
		assert.GreaterOrEqual(t, a, prevA)
		assert.GreaterOrEqual(t, b, prevB)
		assert.LessOrEqual(t, a+b-prevA-prevB, 1)
		prevA, prevB = a, b

		if i%4 == 3 {
			require.NoError(t, g.EndTurn(leader))
		}
	}
}

func TestGame_LeaderOnlyGating(t *testing.T) {
	actions := map[string]func(g *Game, id string) error{
		"nextCard":   func(g *Game, id string) error { return g.NextCard(id) },
		"scoreCard":  func(g *Game, id string) error { return g.ScoreCard(id) },
		"failCard":   func(g *Game, id string) error { return g.FailCard(id) },
		"endTurn":    func(g *Game, id string) error { return g.EndTurn(id) },
		"startTimer": func(g *Game, id string) error { return g.StartTimer(id, 1) },
		"clearTimer": func(g *Game, id string) error { return g.ClearTimer(id) },
	}

	for name, act := range actions {
		for _, caller := range []string{"b", "c", "ghost", ""} {
			t.Run(name+"/"+caller, func(t *testing.T) {
				g, _ := twoPlayers(t)
				g.AddPlayer("c")
				require.NoError(t, g.AssignLeader("b"))

				require.NoError(t, g.NextCard("a"))
				require.NoError(t, g.StartTimer("a", 0))

				before := Project(g, "a")

				assert.ErrorIs(t, act(g, caller), ErrUnauthorized)
				assert.Equal(t, before, Project(g, "a"))
			})
		}
	}
}

func TestGame_EndTurn(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	require.NoError(t, g.StartTimer("a", 0))
	require.NoError(t, g.EndTurn("a"))

	assert.Equal(t, TeamB, g.ActiveTeam())
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
	assert.False(t, g.TimerActive())
	assert.Equal(t, 2, g.Round())

	// "a" no longer leads the active team.
	assert.ErrorIs(t, g.EndTurn("a"), ErrUnauthorized)
	assert.Equal(t, 2, g.Round())
}

func TestGame_EndTurnWithoutCard(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.EndTurn("a"))
	assert.Equal(t, TeamB, g.ActiveTeam())
	assert.Equal(t, 2, g.Round())
}

func TestGame_AssignLeaderUnknownPlayer(t *testing.T) {
	g, _ := newTestGame(t)

	assert.ErrorIs(t, g.AssignLeader("ghost"), ErrInvalidLeaderAssignment)
	assert.Empty(t, g.Leader(TeamA))
}

func TestGame_ChangeTeamDiscardsActiveLeadersCard(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	require.NoError(t, g.ChangeTeam("a"))

	assert.Equal(t, TeamB, g.TeamOf("a"))
	assert.Empty(t, g.Leader(TeamA))
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
	assert.Nil(t, Project(g, "a").Card)
	assert.Equal(t, TeamA, g.ActiveTeam())
}

func TestGame_ChangeTeamByNonLeaderKeepsCard(t *testing.T) {
	g, _ := twoPlayers(t)
	g.AddPlayer("c")

	require.NoError(t, g.NextCard("a"))
	require.NoError(t, g.ChangeTeam("c"))

	assert.Equal(t, TeamB, g.TeamOf("c"))
	assert.Equal(t, PhaseCardRevealed, g.Phase())
	assert.NotNil(t, Project(g, "a").Card)
}

func TestGame_ChangeTeamUnknownPlayer(t *testing.T) {
	g, _ := twoPlayers(t)

	assert.ErrorIs(t, g.ChangeTeam("ghost"), ErrUnknownPlayer)
}

func TestGame_RemoveLeaderLeavesTurnLeaderless(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	g.RemovePlayer("a")

	assert.Empty(t, g.Leader(TeamA))
	assert.Equal(t, TeamA, g.ActiveTeam())
	assert.ErrorIs(t, g.ScoreCard("a"), ErrUnauthorized)
	assert.Equal(t, 1, g.Players())
}

func TestGame_TimerGuards(t *testing.T) {
	g, _ := twoPlayers(t)

	assert.ErrorIs(t, g.ClearTimer("a"), ErrTimerNotActive)
	require.NoError(t, g.StartTimer("a", 0))
	assert.ErrorIs(t, g.StartTimer("a", 0), ErrTimerAlreadyActive)

	require.NoError(t, g.ClearTimer("a"))
	assert.False(t, g.TimerActive())
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
}

func TestGame_ClearTimerKeepsPhase(t *testing.T) {
	g, _ := twoPlayers(t)

	require.NoError(t, g.NextCard("a"))
	require.NoError(t, g.StartTimer("a", 0))
	require.NoError(t, g.ClearTimer("a"))

	assert.Equal(t, PhaseCardRevealed, g.Phase())
}

func TestGame_TickEndsTurnOnce(t *testing.T) {
	g, clock := twoPlayers(t)

	require.NoError(t, g.StartTimer("a", 0))

	clock.Advance(59 * time.Second)
	assert.False(t, g.Tick())
	assert.Equal(t, TeamA, g.ActiveTeam())

	clock.Advance(2 * time.Second)
	assert.True(t, g.Tick())
	assert.False(t, g.Tick())
	assert.False(t, g.Tick())

	assert.Equal(t, TeamB, g.ActiveTeam())
	assert.False(t, g.TimerActive())
	assert.Equal(t, PhaseAwaitingCard, g.Phase())
	assert.Equal(t, 2, g.Round())
}

func TestGame_ClearTimerCancelsExpiry(t *testing.T) {
	g, clock := twoPlayers(t)

	require.NoError(t, g.StartTimer("a", 0))
	clock.Advance(30 * time.Second)
	require.NoError(t, g.ClearTimer("a"))

	clock.Advance(time.Hour)
	assert.False(t, g.Tick())
	assert.Equal(t, TeamA, g.ActiveTeam())
	assert.Equal(t, 1, g.Round())
}

func TestGame_EndTurnCancelsExpiry(t *testing.T) {
	g, clock := twoPlayers(t)

	require.NoError(t, g.StartTimer("a", 0))
	require.NoError(t, g.EndTurn("a"))

	clock.Advance(2 * time.Minute)
	assert.False(t, g.Tick())
	assert.Equal(t, TeamB, g.ActiveTeam())
	assert.Equal(t, 2, g.Round())
}

func TestGame_TimerIgnoresClientTimestamp(t *testing.T) {
	offsets := []time.Duration{-24 * time.Hour, -50 * time.Second, 0, 45 * time.Second, 365 * 24 * time.Hour}

	for _, off := range offsets {
		t.Run(off.String(), func(t *testing.T) {
			g, clock := twoPlayers(t)

			claimed := clock.Now().Add(off).UnixMilli()
			require.NoError(t, g.StartTimer("a", claimed))

			clock.Advance(10 * time.Second)
			remaining, ok := g.TimeRemaining()
			require.True(t, ok)
			assert.Equal(t, 50*time.Second, remaining)
			assert.False(t, g.Tick())

			snap := Project(g, "b")
			assert.Equal(t, int64(10_000), snap.ElapsedMs)
			assert.Equal(t, claimed, snap.ClientStart)

			clock.Advance(51 * time.Second)
			assert.True(t, g.Tick())
		})
	}
}

func TestGame_TimeRemainingWhenStopped(t *testing.T) {
	g, _ := twoPlayers(t)

	_, ok := g.TimeRemaining()
	assert.False(t, ok)
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package taboo holds the authoritative state of a single taboo room: two
// teams with one leader each, a shuffled card deck, a server-side turn timer
// and the per-viewer projection that keeps the secret card away from
// everyone but the active leader.
//
// A Game is not safe for concurrent use. The room that owns it must
// serialize every call.
package taboo

import (
	"time"

	"github.com/rs/zerolog"
)

type Phase string

// PhaseTurnEnded is never held between calls: ending a turn immediately
// opens the next one in PhaseAwaitingCard. It is exported for clients that
// label the gap between turns.
const (
	PhaseAwaitingCard Phase = "awaiting_card"
	PhaseCardRevealed Phase = "card_revealed"
	PhaseTurnEnded    Phase = "turn_ended"
)

// Action names the leader-driven operations, used for logging.
type Action string

const (
	ActionChooseLeader Action = "chooseLeader"
	ActionChangeTeam   Action = "changeTeam"
	ActionNextCard     Action = "nextCard"
	ActionScoreCard    Action = "scoreCard"
	ActionFailCard     Action = "failCard"
	ActionEndTurn      Action = "endTurn"
	ActionStartTimer   Action = "startTimer"
	ActionClearTimer   Action = "clearTimer"
)

type turn struct {
	team  TeamID
	card  *Card
	phase Phase
}

type Game struct {
	registry *Registry
	deck     *Deck
	timer    *Timer
	turn     turn
	round    int

	now func() time.Time
	log zerolog.Logger
}

type Option func(*Game)

// WithClock replaces time.Now as the server's authoritative clock.
func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		g.now = now
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Game) {
		g.log = l
	}
}

// NewGame starts at round 1 with team A up and no card drawn.
func NewGame(deck *Deck, turnLength time.Duration, opts ...Option) *Game {
	g := &Game{
		registry: NewRegistry(),
		deck:     deck,
		timer:    NewTimer(turnLength),
		turn:     turn{team: TeamA, phase: PhaseAwaitingCard},
		round:    1,
		now:      time.Now,
		log:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Game) reject(action Action, id string, err error) error {
	g.log.Debug().
		Str("action", string(action)).
		Str("player", id).
		Err(err).
		Msg("rejected")

	return err
}

// authorize passes only the leader of the team whose turn it is.
func (g *Game) authorize(action Action, id string) error {
	if id == "" || g.registry.Leader(g.turn.team) != id {
		return g.reject(action, id, ErrUnauthorized)
	}

	return nil
}

// AddPlayer seats a new player on the smaller team.
func (g *Game) AddPlayer(id string) TeamID {
	return g.registry.Add(id)
}

// RemovePlayer forgets the player. Their team, its score and the turn in
// progress are left alone.
func (g *Game) RemovePlayer(id string) {
	g.registry.Remove(id)
}

// ChangeTeam moves the player to the other team. If they were leading the
// team whose turn it is, the revealed card goes back unplayed.
func (g *Game) ChangeTeam(id string) error {
	team, _ := g.registry.TeamOf(id)
	wasActiveLeader := team == g.turn.team && g.registry.Leader(team) == id

	if _, _, err := g.registry.Switch(id); err != nil {
		return g.reject(ActionChangeTeam, id, err)
	}

	if wasActiveLeader && g.turn.phase == PhaseCardRevealed {
		g.turn.card = nil
		g.turn.phase = PhaseAwaitingCard
	}

	return nil
}

// AssignLeader makes the player the leader of their own team.
func (g *Game) AssignLeader(id string) error {
	if _, err := g.registry.AssignLeader(id); err != nil {
		return g.reject(ActionChooseLeader, id, err)
	}

	return nil
}

// NextCard reveals a new card to the active leader.
func (g *Game) NextCard(id string) error {
	if err := g.authorize(ActionNextCard, id); err != nil {
		return err
	}

	if g.turn.phase == PhaseCardRevealed {
		return g.reject(ActionNextCard, id, ErrCardAlreadyRevealed)
	}

	c := g.deck.Draw()
	g.turn.card = &c
	g.turn.phase = PhaseCardRevealed

	return nil
}

// ScoreCard gives the active team a point for the revealed card.
func (g *Game) ScoreCard(id string) error {
	if err := g.settle(ActionScoreCard, id); err != nil {
		return err
	}

	g.registry.Team(g.turn.team).Score++

	return nil
}

// FailCard discards the revealed card without a point.
func (g *Game) FailCard(id string) error {
	return g.settle(ActionFailCard, id)
}

func (g *Game) settle(action Action, id string) error {
	if err := g.authorize(action, id); err != nil {
		return err
	}

	if g.turn.phase != PhaseCardRevealed {
		return g.reject(action, id, ErrNoCardRevealed)
	}

	g.turn.card = nil
	g.turn.phase = PhaseAwaitingCard

	return nil
}

// EndTurn hands the turn to the other team, in any phase.
func (g *Game) EndTurn(id string) error {
	if err := g.authorize(ActionEndTurn, id); err != nil {
		return err
	}

	g.endTurn()

	return nil
}

func (g *Game) endTurn() {
	g.timer.reset()

	g.turn = turn{
		team:  g.turn.team.Other(),
		phase: PhaseAwaitingCard,
	}
	g.round++
}

// StartTimer starts the turn clock at the server's current time. The
// client's timestamp is only echoed back to viewers.
func (g *Game) StartTimer(id string, clientStart int64) error {
	if err := g.authorize(ActionStartTimer, id); err != nil {
		return err
	}

	if err := g.timer.Start(g.now(), clientStart); err != nil {
		return g.reject(ActionStartTimer, id, err)
	}

	return nil
}

// ClearTimer stops the turn clock and leaves the phase as it is.
func (g *Game) ClearTimer(id string) error {
	if err := g.authorize(ActionClearTimer, id); err != nil {
		return err
	}

	if err := g.timer.Clear(); err != nil {
		return g.reject(ActionClearTimer, id, err)
	}

	return nil
}

// Tick ends the turn if the timer has run out and reports whether it did.
// The timer is stopped as part of ending the turn, so repeated calls end at
// most one turn per expiry.
func (g *Game) Tick() bool {
	if !g.timer.Expired(g.now()) {
		return false
	}

	g.log.Debug().
		Str("team", string(g.turn.team)).
		Int("round", g.round).
		Msg("turn timer expired")

	g.endTurn()

	return true
}

// TimeRemaining is how long the running timer has left, or false when no
// timer is running.
func (g *Game) TimeRemaining() (time.Duration, bool) {
	if !g.timer.Active() {
		return 0, false
	}

	return g.timer.Remaining(g.now()), true
}

func (g *Game) ActiveTeam() TeamID {
	return g.turn.team
}

func (g *Game) Phase() Phase {
	return g.turn.phase
}

func (g *Game) Round() int {
	return g.round
}

func (g *Game) TimerActive() bool {
	return g.timer.Active()
}

func (g *Game) Score(team TeamID) int {
	if t := g.registry.Team(team); t != nil {
		return t.Score
	}
	return 0
}

func (g *Game) Leader(team TeamID) string {
	return g.registry.Leader(team)
}

// TeamOf returns the player's team, NoTeam for unknown players.
func (g *Game) TeamOf(id string) TeamID {
	team, _ := g.registry.TeamOf(id)
	return team
}

// IsActiveLeader reports whether the player may drive the current turn.
func (g *Game) IsActiveLeader(id string) bool {
	return id != "" && g.registry.Leader(g.turn.team) == id
}

func (g *Game) Players() int {
	return g.registry.Players()
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taboo

// TeamView is the public part of a team.
type TeamView struct {
	ID      TeamID   `json:"id"`
	Color   string   `json:"color"`
	Members []string `json:"members"`
	Leader  string   `json:"leader,omitempty"`
	Score   int      `json:"score"`
}

// Snapshot is what one viewer is allowed to know about the game.
type Snapshot struct {
	Viewer       string     `json:"viewer"`
	ViewerTeam   TeamID     `json:"viewer_team,omitempty"`
	IsLeader     bool       `json:"is_leader"`
	Teams        []TeamView `json:"teams"`
	ActiveTeam   TeamID     `json:"active_team"`
	Phase        Phase      `json:"phase"`
	Round        int        `json:"round"`
	TimerActive  bool       `json:"timer_active"`
	ElapsedMs    int64      `json:"elapsed_ms"`
	RemainingMs  int64      `json:"remaining_ms"`
	TurnLengthMs int64      `json:"turn_length_ms"`
	ClientStart  int64      `json:"client_start,omitempty"`

	// Card is only set for the leader of the active team.
	Card *Card `json:"card,omitempty"`
}

// Project renders the game as seen by viewer. The revealed card's word and
// taboo list are copied in only when viewer leads the team whose turn it is.
// Project does not advance the game, so callers that want expiry applied
// should Tick first.
func Project(g *Game, viewer string) Snapshot {
	now := g.now()

	s := Snapshot{
		Viewer:       viewer,
		ViewerTeam:   g.TeamOf(viewer),
		IsLeader:     g.IsActiveLeader(viewer),
		ActiveTeam:   g.turn.team,
		Phase:        g.turn.phase,
		Round:        g.round,
		TimerActive:  g.timer.Active(),
		ElapsedMs:    g.timer.Elapsed(now).Milliseconds(),
		RemainingMs:  g.timer.Remaining(now).Milliseconds(),
		TurnLengthMs: g.timer.Length().Milliseconds(),
		ClientStart:  g.timer.ClientStart(),
	}

	for _, id := range []TeamID{TeamA, TeamB} {
		t := g.registry.Team(id)
		s.Teams = append(s.Teams, TeamView{
			ID:      t.ID,
			Color:   t.ID.Color(),
			Members: append([]string{}, t.Members...),
			Leader:  t.Leader,
			Score:   t.Score,
		})
	}

	if s.IsLeader && g.turn.card != nil {
		s.Card = &Card{
			Word:  g.turn.card.Word,
			Taboo: append([]string(nil), g.turn.card.Taboo...),
		}
	}

	return s
}

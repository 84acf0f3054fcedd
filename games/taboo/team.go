/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taboo

import "slices"

// TeamID names one of the two teams. The zero value means no team.
type TeamID string

const (
	NoTeam TeamID = ""
	TeamA  TeamID = "A"
	TeamB  TeamID = "B"
)

// Other returns the opposing team.
func (t TeamID) Other() TeamID {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	default:
		return NoTeam
	}
}

// Color is the display colour used when announcing a team member's actions.
func (t TeamID) Color() string {
	switch t {
	case TeamA:
		return "red"
	case TeamB:
		return "blue"
	default:
		return ""
	}
}

type Team struct {
	ID      TeamID
	Members []string
	Leader  string
	Score   int
}

func (t *Team) has(id string) bool {
	return slices.Contains(t.Members, id)
}

func (t *Team) remove(id string) {
	t.Members = slices.DeleteFunc(t.Members, func(m string) bool { return m == id })
	if t.Leader == id {
		t.Leader = ""
	}
}

// Registry tracks which team each player is on and who leads each team.
type Registry struct {
	teams   map[TeamID]*Team
	players map[string]TeamID
}

func NewRegistry() *Registry {
	return &Registry{
		teams: map[TeamID]*Team{
			TeamA: {ID: TeamA},
			TeamB: {ID: TeamB},
		},
		players: make(map[string]TeamID),
	}
}

// Team returns the team with the given id, or nil.
func (r *Registry) Team(id TeamID) *Team {
	return r.teams[id]
}

// TeamOf returns the player's team and whether the player is known.
func (r *Registry) TeamOf(id string) (TeamID, bool) {
	t, ok := r.players[id]
	return t, ok
}

// Leader returns the leader of the given team, if any.
func (r *Registry) Leader(team TeamID) string {
	if t := r.teams[team]; t != nil {
		return t.Leader
	}
	return ""
}

// Add registers a player and seats them on the smaller team, team A on a
// tie. Adding a known player does nothing.
func (r *Registry) Add(id string) TeamID {
	if team, ok := r.players[id]; ok {
		return team
	}

	team := TeamA
	if len(r.teams[TeamB].Members) < len(r.teams[TeamA].Members) {
		team = TeamB
	}

	r.join(id, team)

	return team
}

func (r *Registry) join(id string, team TeamID) {
	t := r.teams[team]
	t.Members = append(t.Members, id)
	r.players[id] = team
}

// Remove drops the player from whichever team holds them. A removed leader
// leaves the team leaderless. The team itself stays.
func (r *Registry) Remove(id string) (TeamID, bool) {
	team, ok := r.players[id]
	if !ok {
		return NoTeam, false
	}

	if t := r.teams[team]; t != nil {
		t.remove(id)
	}
	delete(r.players, id)

	return team, true
}

// Switch moves the player to the other team, giving up any leadership.
func (r *Registry) Switch(id string) (from, to TeamID, err error) {
	from, ok := r.players[id]
	if !ok {
		return NoTeam, NoTeam, ErrUnknownPlayer
	}

	r.teams[from].remove(id)
	to = from.Other()
	r.join(id, to)

	return from, to, nil
}

// AssignLeader makes the player the leader of their own team. Unknown and
// unseated players cannot lead.
func (r *Registry) AssignLeader(id string) (TeamID, error) {
	team, ok := r.players[id]
	if !ok {
		return NoTeam, ErrInvalidLeaderAssignment
	}

	t := r.teams[team]
	if t == nil || !t.has(id) {
		return NoTeam, ErrInvalidLeaderAssignment
	}
	t.Leader = id

	return team, nil
}

// Players returns the number of registered players.
func (r *Registry) Players() int {
	return len(r.players)
}

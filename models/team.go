package models

import "time"

// Team is one registered entry of a tournament (1-4 players).
type Team struct {
	ID                int       `json:"id" db:"id"`
	TournamentID      int       `json:"tournament_id" db:"tournament_id"`
	Name              string    `json:"name" db:"name"`
	MemberIDs         []int     `json:"member_ids" db:"-"`
	CurrentRound      int       `json:"current_round" db:"current_round"`
	IsEliminated      bool      `json:"is_eliminated" db:"is_eliminated"`
	EliminatedAtRound *int      `json:"eliminated_at_round,omitempty" db:"eliminated_at_round"`
	FinalRank         *int      `json:"final_rank,omitempty" db:"final_rank"`
	RegisteredAt      time.Time `json:"registered_at" db:"registered_at"`
}

// MaxTeamMembers is the largest roster a team may field.
const MaxTeamMembers = 4

// HasValidRoster reports whether the team has between 1 and MaxTeamMembers players.
func (t *Team) HasValidRoster() bool {
	return t != nil && len(t.MemberIDs) >= 1 && len(t.MemberIDs) <= MaxTeamMembers
}

// EligibleFor reports whether the team may be placed in a room of the given round.
func (t *Team) EligibleFor(round int) bool {
	return t != nil && !t.IsEliminated && t.CurrentRound == round
}

package brackets

import "fmt"

// DefaultAdvancesPerRoom is the "top 1 of N advances" policy.
const DefaultAdvancesPerRoom = 1

// RoundShape describes one layer of the bracket.
type RoundShape struct {
	RoundNumber        int  `json:"round_number"`
	RoomsInRound       int  `json:"rooms_in_round"`
	TeamsEnteringRound int  `json:"teams_entering_round"`
	IsFinale           bool `json:"is_finale"`
}

// Plan is the full round-by-round shape for a team count and room capacity.
// It is only valid for the team count it was computed from.
type Plan struct {
	TotalTeams      int          `json:"total_teams"`
	RoomCapacity    int          `json:"room_capacity"`
	AdvancesPerRoom int          `json:"advances_per_room"`
	Rounds          []RoundShape `json:"rounds"`
}

// Finale returns the last round of the plan.
func (p *Plan) Finale() RoundShape {
	return p.Rounds[len(p.Rounds)-1]
}

// Round returns the shape of round n (1-based).
func (p *Plan) Round(n int) (RoundShape, bool) {
	if n < 1 || n > len(p.Rounds) {
		return RoundShape{}, false
	}
	return p.Rounds[n-1], true
}

// PlanBracket computes the plan with one winner advancing per room.
func PlanBracket(totalTeams, roomCapacity int) (*Plan, error) {
	return PlanWithAdvances(totalTeams, roomCapacity, DefaultAdvancesPerRoom)
}

// PlanWithAdvances computes the plan when advancesPerRoom teams leave every room.
// A room holding fewer teams than advancesPerRoom advances all of them.
// advancesPerRoom must stay below roomCapacity only when there is an elimination
// round; a field that fits one room is a finale for any capacity.
func PlanWithAdvances(totalTeams, roomCapacity, advancesPerRoom int) (*Plan, error) {
	if roomCapacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, roomCapacity)
	}
	if totalTeams <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTeamCount, totalTeams)
	}
	if advancesPerRoom < 1 || (totalTeams > roomCapacity && advancesPerRoom >= roomCapacity) {
		return nil, fmt.Errorf("%w: got %d with capacity %d", ErrInvalidAdvancement, advancesPerRoom, roomCapacity)
	}

	plan := &Plan{
		TotalTeams:      totalTeams,
		RoomCapacity:    roomCapacity,
		AdvancesPerRoom: advancesPerRoom,
	}

	teams := totalTeams
	round := 1
	for teams > roomCapacity {
		rooms := RoomsNeeded(teams, roomCapacity)
		plan.Rounds = append(plan.Rounds, RoundShape{
			RoundNumber:        round,
			RoomsInRound:       rooms,
			TeamsEnteringRound: teams,
		})
		teams = advancingTeams(teams, roomCapacity, advancesPerRoom)
		round++
	}

	plan.Rounds = append(plan.Rounds, RoundShape{
		RoundNumber:        round,
		RoomsInRound:       1,
		TeamsEnteringRound: teams,
		IsFinale:           true,
	})
	return plan, nil
}

// RoomsNeeded is ceil(teams / capacity).
func RoomsNeeded(teams, capacity int) int {
	return (teams + capacity - 1) / capacity
}

func advancingTeams(teams, capacity, advancesPerRoom int) int {
	full := teams / capacity
	remainder := teams % capacity
	return full*advancesPerRoom + min(remainder, advancesPerRoom)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Dosada05/room-bracket/models"
)

var ErrDecisionMissingWinner = errors.New("decision does not name a winner")

// Decision is the external verdict for one room.
type Decision struct {
	WinnerTeamID int   `json:"winner_team_id"`
	Ranking      []int `json:"ranking,omitempty"`
}

// WinnerDecision supplies the winner of a room. The engine never computes it.
type WinnerDecision interface {
	Decide(ctx context.Context, room *models.Room) (Decision, error)
}

// OrganizerDecision is a verdict entered by the organizer.
type OrganizerDecision Decision

func (d OrganizerDecision) Decide(_ context.Context, _ *models.Room) (Decision, error) {
	if d.WinnerTeamID <= 0 {
		return Decision{}, ErrDecisionMissingWinner
	}
	return Decision(d), nil
}

// RandomDecision picks the winner uniformly among the room members and
// shuffles the rest into a full ranking. Used by simulation tooling only.
type RandomDecision struct {
	Rand *rand.Rand
}

func (d RandomDecision) Decide(_ context.Context, room *models.Room) (Decision, error) {
	if len(room.TeamIDs) == 0 {
		return Decision{}, fmt.Errorf("%w: room %d has no teams", ErrDecisionMissingWinner, room.ID)
	}
	ranking := make([]int, len(room.TeamIDs))
	copy(ranking, room.TeamIDs)
	shuffle := rand.Shuffle
	if d.Rand != nil {
		shuffle = d.Rand.Shuffle
	}
	shuffle(len(ranking), func(i, j int) { ranking[i], ranking[j] = ranking[j], ranking[i] })
	return Decision{WinnerTeamID: ranking[0], Ranking: ranking}, nil
}

package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/room-bracket/models"
)

// AssignRooms partitions the teams eligible for round into rooms of at most capacity teams.
// Teams are ordered by registration (registered_at, then id) so the same input always
// yields the same partition. The last room may be under-filled; nothing is carried over.
func AssignRooms(teams []*models.Team, capacity, round int) ([]*models.Room, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	eligible := make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		if t.EligibleFor(round) {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: round %d", ErrEmptyRound, round)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.ID < b.ID
	})

	rooms := make([]*models.Room, 0, RoomsNeeded(len(eligible), capacity))
	for start := 0; start < len(eligible); start += capacity {
		end := min(start+capacity, len(eligible))
		room := &models.Room{
			TournamentID: eligible[start].TournamentID,
			Round:        round,
			Number:       len(rooms) + 1,
			Status:       models.RoomStatusPending,
			TeamIDs:      make([]int, 0, end-start),
		}
		for _, t := range eligible[start:end] {
			room.TeamIDs = append(room.TeamIDs, t.ID)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// Memberships flattens a room's team list into membership rows.
func Memberships(room *models.Room) []models.RoomMembership {
	out := make([]models.RoomMembership, len(room.TeamIDs))
	for i, teamID := range room.TeamIDs {
		out[i] = models.RoomMembership{RoomID: room.ID, TeamID: teamID, Slot: i + 1}
	}
	return out
}

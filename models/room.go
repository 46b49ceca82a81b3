package models

import "time"

type RoomStatus string

const (
	RoomStatusPending   RoomStatus = "pending"
	RoomStatusLive      RoomStatus = "live"
	RoomStatusCompleted RoomStatus = "completed"
)

// Room groups up to RoomCapacity teams for one round.
type Room struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	Round        int        `json:"round" db:"round"`
	Number       int        `json:"room_number" db:"room_number"`
	Status       RoomStatus `json:"status" db:"status"`
	WinnerTeamID *int       `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	// Заполняется сервисом, в БД хранится в room_memberships
	TeamIDs []int `json:"team_ids,omitempty" db:"-"`
}

// RoomMembership places a team in a room; Slot preserves assignment order.
type RoomMembership struct {
	RoomID int `json:"room_id" db:"room_id"`
	TeamID int `json:"team_id" db:"team_id"`
	Slot   int `json:"slot" db:"slot"`
}

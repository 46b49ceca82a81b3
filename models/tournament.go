package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusOpen      TournamentStatus = "open"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Tournament is a room-bracket tournament for a single game type.
type Tournament struct {
	ID               int               `json:"id" db:"id"`
	Name             string            `json:"name" db:"name"`
	GameType         string            `json:"game_type" db:"game_type"`
	OrganizerID      int               `json:"organizer_id" db:"organizer_id"`
	RoomCapacity     int               `json:"room_capacity" db:"room_capacity"`
	TotalTeams       int               `json:"total_teams" db:"total_teams"`
	CurrentRound     int               `json:"current_round" db:"current_round"`
	Status           TournamentStatus  `json:"status" db:"status"`
	StatusChangedAt  time.Time         `json:"status_changed_at" db:"status_changed_at"`
	WinnerDeclaredAt *time.Time        `json:"winner_declared_at,omitempty" db:"winner_declared_at"`
	CancelReason     *string           `json:"cancel_reason,omitempty" db:"cancel_reason"`
	EntryFee         decimal.Decimal   `json:"entry_fee" db:"entry_fee"`
	PrizePool        decimal.Decimal   `json:"prize_pool" db:"prize_pool"`
	Distribution     PrizeDistribution `json:"prize_distribution" db:"prize_distribution"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}

// PrizeDistribution maps a finishing position (1-based) to its prize amount.
type PrizeDistribution map[int]decimal.Decimal

// Positions returns the positions in ascending order.
func (d PrizeDistribution) Positions() []int {
	positions := make([]int, 0, len(d))
	for p := range d {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}

// Total sums every position's amount.
func (d PrizeDistribution) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range d {
		total = total.Add(amount)
	}
	return total
}

// Value stores the distribution as a JSON object keyed by position.
func (d PrizeDistribution) Value() (driver.Value, error) {
	raw := make(map[string]string, len(d))
	for p, amount := range d {
		raw[strconv.Itoa(p)] = amount.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan reads the JSON form written by Value.
func (d *PrizeDistribution) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*d = PrizeDistribution{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported prize distribution type %T", src)
	}

	var raw map[string]decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode prize distribution: %w", err)
	}
	out := make(PrizeDistribution, len(raw))
	for key, amount := range raw {
		p, err := strconv.Atoi(key)
		if err != nil || p < 1 {
			return errors.New("prize distribution keys must be positive positions")
		}
		out[p] = amount
	}
	*d = out
	return nil
}

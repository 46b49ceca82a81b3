package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Registration records what a user actually paid to enter a tournament.
type Registration struct {
	ID            int             `json:"id" db:"id"`
	TournamentID  int             `json:"tournament_id" db:"tournament_id"`
	TeamID        int             `json:"team_id" db:"team_id"`
	UserID        int             `json:"user_id" db:"user_id"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	AmountPaid    decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the typed vocabulary of the wallet journal.
type TransactionType string

const (
	TxDeposit             TransactionType = "deposit"
	TxWithdrawal          TransactionType = "withdrawal"
	TxWinning             TransactionType = "winning"
	TxPrize               TransactionType = "prize"
	TxPrizeWon            TransactionType = "prize_won"
	TxOrganizerCommission TransactionType = "organizer_commission"
	TxCreatorCommission   TransactionType = "creator_commission"
	TxLocalCommission     TransactionType = "local_commission"
	TxReferralCommission  TransactionType = "referral_commission"
	TxRefund              TransactionType = "refund"
	TxBonus               TransactionType = "bonus"
	TxAdminCredit         TransactionType = "admin_credit"
	TxEntryFee            TransactionType = "entry_fee"
)

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
)

// Idempotency reasons. (tournament_id, user_id, reason) is unique in the journal.
const (
	ReasonAutoCancel = "auto_cancel"
	ReasonPrize      = "prize"
)

// WalletTransaction is one append-only row of the wallet journal.
type WalletTransaction struct {
	ID           int               `json:"id" db:"id"`
	UserID       int               `json:"user_id" db:"user_id"`
	TournamentID *int              `json:"tournament_id,omitempty" db:"tournament_id"`
	Type         TransactionType   `json:"type" db:"type"`
	Amount       decimal.Decimal   `json:"amount" db:"amount"`
	Status       TransactionStatus `json:"status" db:"status"`
	Reason       *string           `json:"reason,omitempty" db:"reason"`
	Reference    string            `json:"reference" db:"reference"`
	Description  string            `json:"description" db:"description"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

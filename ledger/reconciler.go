// Package ledger derives withdrawable balances from the wallet transaction journal.
//
// Nothing here keeps a running balance: every figure is recomputed from the full
// journal, so a corrected journal corrects the result on the next call.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/room-bracket/models"
	"github.com/shopspring/decimal"
)

// ErrLedgerInconsistency is reported when the journal holds a type outside the known vocabulary.
// Such rows are treated as neutral, never as earnings.
var ErrLedgerInconsistency = errors.New("ledger contains unrecognized transaction types")

type Class int

const (
	ClassNeutral Class = iota
	ClassEarning
	ClassWithdrawal
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassEarning:
		return "earning"
	case ClassWithdrawal:
		return "withdrawal"
	case ClassUnknown:
		return "unknown"
	default:
		return "neutral"
	}
}

const (
	sourceCommission = "Commission"
	sourcePrize      = "Tournament Prize"
)

var prizeTypes = map[models.TransactionType]bool{
	models.TxWinning:  true,
	models.TxPrize:    true,
	models.TxPrizeWon: true,
}

var neutralTypes = map[models.TransactionType]bool{
	models.TxDeposit:     true,
	models.TxRefund:      true,
	models.TxBonus:       true,
	models.TxAdminCredit: true,
	models.TxEntryFee:    true,
}

// Classify maps a transaction type to its ledger class, ignoring status.
func Classify(t models.TransactionType) Class {
	normalized := models.TransactionType(strings.ToLower(strings.TrimSpace(string(t))))
	switch {
	case prizeTypes[normalized]:
		return ClassEarning
	case strings.Contains(string(normalized), "commission"):
		return ClassEarning
	case normalized == models.TxWithdrawal:
		return ClassWithdrawal
	case neutralTypes[normalized]:
		return ClassNeutral
	default:
		return ClassUnknown
	}
}

// BreakdownItem attributes one earning to a human-readable source.
type BreakdownItem struct {
	TransactionID int                    `json:"transaction_id"`
	Source        string                 `json:"source"`
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Date          time.Time              `json:"date"`
}

// Report is the full reconciliation of one user's journal.
type Report struct {
	Earnings     decimal.Decimal            `json:"earnings"`
	Withdrawn    decimal.Decimal            `json:"withdrawn"`
	Withdrawable decimal.Decimal            `json:"withdrawable"`
	Breakdown    []BreakdownItem            `json:"breakdown"`
	Unrecognized []models.WalletTransaction `json:"-"`
}

// Err returns ErrLedgerInconsistency listing the offending types, or nil.
func (r *Report) Err() error {
	if len(r.Unrecognized) == 0 {
		return nil
	}
	types := make([]string, 0, len(r.Unrecognized))
	seen := make(map[models.TransactionType]bool)
	for _, tx := range r.Unrecognized {
		if !seen[tx.Type] {
			seen[tx.Type] = true
			types = append(types, string(tx.Type))
		}
	}
	sort.Strings(types)
	return fmt.Errorf("%w: %s", ErrLedgerInconsistency, strings.Join(types, ", "))
}

// Reconcile computes earnings, withdrawals, the withdrawable amount and the breakdown.
func Reconcile(transactions []models.WalletTransaction) *Report {
	report := &Report{
		Earnings:  decimal.Zero,
		Withdrawn: decimal.Zero,
		Breakdown: make([]BreakdownItem, 0),
	}

	for _, tx := range transactions {
		class := Classify(tx.Type)
		if class == ClassUnknown {
			report.Unrecognized = append(report.Unrecognized, tx)
			continue
		}
		if tx.Status != models.TxStatusCompleted {
			continue
		}
		switch class {
		case ClassEarning:
			amount := tx.Amount.Abs()
			report.Earnings = report.Earnings.Add(amount)
			report.Breakdown = append(report.Breakdown, BreakdownItem{
				TransactionID: tx.ID,
				Source:        Source(tx),
				Type:          tx.Type,
				Amount:        amount,
				Date:          tx.CreatedAt,
			})
		case ClassWithdrawal:
			report.Withdrawn = report.Withdrawn.Add(tx.Amount.Abs())
		}
	}

	report.Withdrawable = decimal.Max(decimal.Zero, report.Earnings.Sub(report.Withdrawn))

	sort.SliceStable(report.Breakdown, func(i, j int) bool {
		return report.Breakdown[i].Date.After(report.Breakdown[j].Date)
	})
	return report
}

// Withdrawable is max(0, completed earnings - completed withdrawals).
func Withdrawable(transactions []models.WalletTransaction) decimal.Decimal {
	return Reconcile(transactions).Withdrawable
}

// Breakdown lists completed earnings, newest first.
func Breakdown(transactions []models.WalletTransaction) []BreakdownItem {
	return Reconcile(transactions).Breakdown
}

// Source extracts the earning's origin from its description, e.g.
// "Prize: Summer Cup (Rank 1)" gives "Summer Cup".
func Source(tx models.WalletTransaction) string {
	if _, rest, ok := strings.Cut(tx.Description, ":"); ok {
		source := strings.TrimSpace(rest)
		if i := strings.LastIndex(source, "("); i >= 0 && strings.HasSuffix(source, ")") {
			source = strings.TrimSpace(source[:i])
		}
		if source != "" {
			return source
		}
	}
	if strings.Contains(strings.ToLower(string(tx.Type)), "commission") {
		return sourceCommission
	}
	return sourcePrize
}

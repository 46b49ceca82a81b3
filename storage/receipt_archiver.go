package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one registrant's refund outcome.
type ReceiptLine struct {
	UserID    int             `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
}

// RefundReceipt is the archived record of one auto-cancellation.
type RefundReceipt struct {
	TournamentID   int           `json:"tournament_id"`
	TournamentName string        `json:"tournament_name"`
	OrganizerID    int           `json:"organizer_id"`
	Reason         string        `json:"reason"`
	Cancelled      bool          `json:"cancelled"`
	ProcessedAt    time.Time     `json:"processed_at"`
	Lines          []ReceiptLine `json:"lines"`
}

// ReceiptArchiver uploads refund receipts as JSON documents.
type ReceiptArchiver struct {
	uploader FileUploader
}

func NewReceiptArchiver(uploader FileUploader) *ReceiptArchiver {
	return &ReceiptArchiver{uploader: uploader}
}

// ReceiptKey is the object key of a receipt: one object per tournament per sweep pass.
func ReceiptKey(tournamentID int, at time.Time) string {
	return fmt.Sprintf("receipts/tournaments/%d/auto-cancel-%s.json", tournamentID, at.UTC().Format("20060102T150405Z"))
}

func (a *ReceiptArchiver) Archive(ctx context.Context, receipt RefundReceipt) (*UploadResult, error) {
	body, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt for tournament %d: %w", receipt.TournamentID, err)
	}
	return a.uploader.Upload(ctx, ReceiptKey(receipt.TournamentID, receipt.ProcessedAt), "application/json", bytes.NewReader(body))
}

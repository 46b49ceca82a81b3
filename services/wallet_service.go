package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/room-bracket/ledger"
	"github.com/Dosada05/room-bracket/repositories"
)

type WalletService struct {
	walletRepo repositories.WalletRepository
	logger     *slog.Logger
}

func NewWalletService(walletRepo repositories.WalletRepository, logger *slog.Logger) *WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletService{walletRepo: walletRepo, logger: logger.With(slog.String("service", "wallet"))}
}

// Reconcile recomputes the user's withdrawable earnings from the full journal.
// Unknown transaction types are counted as neutral and only logged.
func (s *WalletService) Reconcile(ctx context.Context, userID int) (*ledger.Report, error) {
	transactions, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	report := ledger.Reconcile(transactions)
	if err := report.Err(); err != nil {
		s.logger.Warn("ledger inconsistency", slog.Int("user_id", userID), slog.Any("error", err))
	}
	return report, nil
}

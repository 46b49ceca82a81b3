package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Dosada05/room-bracket/brackets"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrTournamentNotFinished = errors.New("tournament has no declared winner yet")

// PrizeService is the prize-distribution collaborator of the round engine.
type PrizeService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	walletRepo     repositories.WalletRepository
	events         EventPublisher
	logger         *slog.Logger
	newReference   func() string
}

func NewPrizeService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	walletRepo repositories.WalletRepository,
	events EventPublisher,
	logger *slog.Logger,
) *PrizeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrizeService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		walletRepo:     walletRepo,
		events:         events,
		logger:         logger.With(slog.String("service", "prizes")),
		newReference:   uuid.NewString,
	}
}

// FoldDistribution drops positions the finale cannot produce and adds their
// amounts to first place, so the pool total is unchanged. It reports whether
// anything moved.
func FoldDistribution(d models.PrizeDistribution, finaleTeams int) (models.PrizeDistribution, bool) {
	out := make(models.PrizeDistribution, len(d))
	changed := false
	for pos, amount := range d {
		if pos <= finaleTeams {
			out[pos] = out[pos].Add(amount)
			continue
		}
		out[1] = out[1].Add(amount)
		changed = true
	}
	return out, changed
}

// SplitEvenly divides amount into n shares of whole cents. The leftover cents go to the first share.
func SplitEvenly(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	share := amount.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}
	shares[0] = amount.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))
	return shares
}

func (s *PrizeService) RecalculatePrizePool(ctx context.Context, tournamentID int, finaleTeams int) error {
	if finaleTeams < 1 {
		return fmt.Errorf("%w: finale needs at least one team, got %d", ErrValidationFailed, finaleTeams)
	}

	var folded models.PrizeDistribution
	changed := false
	err := runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		folded, changed = FoldDistribution(t.Distribution, finaleTeams)
		if !changed {
			return nil
		}
		return s.tournamentRepo.UpdatePrizes(ctx, exec, t.ID, t.PrizePool, folded)
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.logger.Info("prize distribution folded to finale size",
		slog.Int("tournament_id", tournamentID),
		slog.Int("finale_teams", finaleTeams),
		slog.Int("positions", len(folded)),
	)
	if s.events != nil {
		s.events.Publish(tournamentID, brackets.EventPrizePoolRecalculated, folded)
	}
	return nil
}

// DistributePrizes credits each ranked team's prize to its members through the
// caller's executor, so the credits commit or roll back with the finale.
// Re-running it writes nothing new: every credit carries the (tournament, user,
// prize) key.
func (s *PrizeService) DistributePrizes(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		return handleRepositoryError(err)
	}
	if t.WinnerDeclaredAt == nil {
		return ErrTournamentNotFinished
	}

	teams, err := s.teamRepo.ListByTournament(ctx, exec, tournamentID, false)
	if err != nil {
		return err
	}
	ranked := make([]*models.Team, 0)
	for _, team := range teams {
		if team.FinalRank != nil {
			ranked = append(ranked, team)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return *ranked[i].FinalRank < *ranked[j].FinalRank })

	credited := 0
	for _, team := range ranked {
		rank := *team.FinalRank
		amount, ok := t.Distribution[rank]
		if !ok || !amount.IsPositive() || len(team.MemberIDs) == 0 {
			continue
		}
		for i, share := range SplitEvenly(amount, len(team.MemberIDs)) {
			tx := &models.WalletTransaction{
				UserID:       team.MemberIDs[i],
				TournamentID: intPtr(t.ID),
				Type:         models.TxPrize,
				Amount:       share,
				Status:       models.TxStatusCompleted,
				Reason:       stringPtr(models.ReasonPrize),
				Reference:    s.newReference(),
				Description:  fmt.Sprintf("Prize: %s (Rank %d)", t.Name, rank),
			}
			inserted, err := s.walletRepo.InsertIdempotent(ctx, exec, tx)
			if err != nil {
				return fmt.Errorf("failed to credit prize to user %d: %w", tx.UserID, err)
			}
			if inserted {
				credited++
			}
		}
	}

	s.logger.Info("prizes credited", slog.Int("tournament_id", tournamentID), slog.Int("credits", credited))
	return nil
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/room-bracket/metrics"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/repositories"
	"github.com/Dosada05/room-bracket/storage"
	"github.com/google/uuid"
)

// ReceiptArchiver stores a copy of every sweep outcome. *storage.ReceiptArchiver implements it.
type ReceiptArchiver interface {
	Archive(ctx context.Context, receipt storage.RefundReceipt) (*storage.UploadResult, error)
}

// GuardPolicy decides what happens when some refunds of a tournament fail.
// With CancelOnPartialRefund the tournament is cancelled anyway and the failed
// refunds are retried by later sweeps; without it the tournament stays
// completed until every refund went through.
type GuardPolicy struct {
	CancelOnPartialRefund bool
}

func DefaultGuardPolicy() GuardPolicy {
	return GuardPolicy{CancelOnPartialRefund: true}
}

// CancelledTournament is one tournament cancelled by a sweep.
type CancelledTournament struct {
	TournamentID int    `json:"tournament_id"`
	Name         string `json:"name"`
	OrganizerID  int    `json:"organizer_id"`
	Registrants  int    `json:"registrants"`
	Refunded     int    `json:"refunded"`
	Skipped      int    `json:"already_refunded"`
	Failed       int    `json:"failed"`
}

// IsStalled reports whether t reached completed without a winner and has stayed
// there for at least grace.
func IsStalled(t *models.Tournament, now time.Time, grace time.Duration) bool {
	return t != nil &&
		t.Status == models.StatusCompleted &&
		t.WinnerDeclaredAt == nil &&
		now.Sub(t.StatusChangedAt) >= grace
}

type LifecycleGuard struct {
	inTx             txRunner
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	walletRepo       repositories.WalletRepository
	notifier         Notifier
	archiver         ReceiptArchiver
	metrics          *metrics.Metrics
	logger           *slog.Logger
	policy           GuardPolicy
	newReference     func() string
}

func NewLifecycleGuard(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	walletRepo repositories.WalletRepository,
	notifier Notifier,
	archiver ReceiptArchiver,
	m *metrics.Metrics,
	logger *slog.Logger,
	policy GuardPolicy,
) *LifecycleGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleGuard{
		inTx:             dbTxRunner(db),
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		walletRepo:       walletRepo,
		notifier:         notifier,
		archiver:         archiver,
		metrics:          m,
		logger:           logger.With(slog.String("service", "lifecycle_guard")),
		policy:           policy,
		newReference:     uuid.NewString,
	}
}

type sweepOutcome struct {
	tournament  *models.Tournament
	registrants int
	refunded    int
	skipped     int
	failed      int
	cancelled   bool
	retry       bool
	lines       []storage.ReceiptLine
}

func (o *sweepOutcome) tally() {
	o.refunded, o.skipped, o.failed = 0, 0, 0
	for _, line := range o.lines {
		switch line.Status {
		case refundStatusIssued:
			o.refunded++
		case refundStatusSkipped:
			o.skipped++
		case refundStatusFailed:
			o.failed++
		}
	}
}

// Sweep cancels every stalled tournament and refunds its paying registrants.
// It is safe to run concurrently and to re-run: refunds are keyed by
// (tournament, user, auto_cancel) and locked rows are skipped. A failure on one
// tournament is logged and the sweep moves on.
func (g *LifecycleGuard) Sweep(ctx context.Context, now time.Time, grace time.Duration) ([]CancelledTournament, error) {
	started := time.Now()
	defer func() { g.metrics.ObserveSweep(time.Since(started)) }()

	g.retryMissingRefunds(ctx, now)

	cutoff := now.Add(-grace)
	candidates, err := g.tournamentRepo.ListStalled(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalled tournaments: %w", err)
	}

	cancelled := make([]CancelledTournament, 0)
	for _, candidate := range candidates {
		if !IsStalled(candidate, now, grace) {
			continue
		}
		log := g.logger.With(slog.Int("tournament_id", candidate.ID))

		outcome, err := g.processTournament(ctx, candidate.ID, now, cutoff)
		if err != nil {
			log.Error("failed to process stalled tournament", slog.Any("error", err))
			continue
		}
		if outcome == nil {
			log.Debug("stalled tournament already handled elsewhere")
			continue
		}

		g.afterCommit(ctx, outcome, now)
		if outcome.cancelled {
			cancelled = append(cancelled, CancelledTournament{
				TournamentID: outcome.tournament.ID,
				Name:         outcome.tournament.Name,
				OrganizerID:  outcome.tournament.OrganizerID,
				Registrants:  outcome.registrants,
				Refunded:     outcome.refunded,
				Skipped:      outcome.skipped,
				Failed:       outcome.failed,
			})
		}
	}

	if len(candidates) > 0 {
		g.logger.Info("sweep finished",
			slog.Int("candidates", len(candidates)),
			slog.Int("cancelled", len(cancelled)),
		)
	}
	return cancelled, nil
}

// processTournament refunds and cancels one tournament in a single
// transaction. It returns nil when the row is no longer stalled or another
// sweep holds it.
func (g *LifecycleGuard) processTournament(ctx context.Context, tournamentID int, now, cutoff time.Time) (*sweepOutcome, error) {
	var outcome *sweepOutcome
	err := g.inTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := g.tournamentRepo.LockStalled(ctx, exec, tournamentID, cutoff)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil
			}
			return err
		}

		registrations, err := g.registrationRepo.ListPaidByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}

		res := &sweepOutcome{tournament: t, registrants: len(registrations)}
		for i, reg := range registrations {
			res.lines = append(res.lines, g.refund(ctx, exec, t, reg, i))
		}
		res.tally()

		if res.failed > 0 && !g.policy.CancelOnPartialRefund {
			g.logger.Warn("refunds incomplete, tournament left completed until the next sweep",
				slog.Int("tournament_id", t.ID),
				slog.Int("failed", res.failed),
			)
			outcome = res
			return nil
		}

		ok, err := g.tournamentRepo.CancelStalled(ctx, exec, t.ID, now)
		if err != nil {
			return err
		}
		res.cancelled = ok
		outcome = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// retryMissingRefunds finishes refunds of tournaments an earlier sweep
// cancelled while some refunds failed. Already refunded users are skipped by
// the idempotency key; the status is not touched.
func (g *LifecycleGuard) retryMissingRefunds(ctx context.Context, now time.Time) {
	pending, err := g.tournamentRepo.ListWithMissingRefunds(ctx)
	if err != nil {
		g.logger.Error("failed to list tournaments with missing refunds", slog.Any("error", err))
		return
	}

	for _, candidate := range pending {
		var outcome *sweepOutcome
		err := g.inTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := g.tournamentRepo.LockCancelled(ctx, exec, candidate.ID)
			if err != nil {
				if errors.Is(err, repositories.ErrTournamentNotFound) {
					return nil
				}
				return err
			}
			registrations, err := g.registrationRepo.ListPaidByTournament(ctx, exec, t.ID)
			if err != nil {
				return err
			}
			res := &sweepOutcome{tournament: t, registrants: len(registrations), retry: true}
			for i, reg := range registrations {
				res.lines = append(res.lines, g.refund(ctx, exec, t, reg, i))
			}
			res.tally()
			outcome = res
			return nil
		})
		if err != nil {
			g.logger.Error("refund retry failed", slog.Int("tournament_id", candidate.ID), slog.Any("error", err))
			continue
		}
		if outcome == nil {
			continue
		}
		g.logger.Info("refunds retried",
			slog.Int("tournament_id", candidate.ID),
			slog.Int("refunded", outcome.refunded),
			slog.Int("failed", outcome.failed),
		)
		g.afterCommit(ctx, outcome, now)
	}
}

const (
	refundStatusIssued  = "refunded"
	refundStatusSkipped = "already_refunded"
	refundStatusFailed  = "failed"
	refundStatusFree    = "nothing_paid"
)

// refund credits what the registrant actually paid. Each refund runs in its own
// savepoint so a failed insert leaves the other refunds of the tournament intact.
func (g *LifecycleGuard) refund(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, reg *models.Registration, idx int) storage.ReceiptLine {
	line := storage.ReceiptLine{UserID: reg.UserID, Amount: reg.AmountPaid}
	log := g.logger.With(slog.Int("tournament_id", t.ID), slog.Int("user_id", reg.UserID))

	if !reg.AmountPaid.IsPositive() {
		line.Status = refundStatusFree
		return line
	}

	tx := &models.WalletTransaction{
		UserID:       reg.UserID,
		TournamentID: intPtr(t.ID),
		Type:         models.TxRefund,
		Amount:       reg.AmountPaid,
		Status:       models.TxStatusCompleted,
		Reason:       stringPtr(models.ReasonAutoCancel),
		Reference:    g.newReference(),
		Description:  fmt.Sprintf("Refund: %s (%s)", t.Name, ReasonWinnerNotDeclared),
	}

	err := repositories.WithSavepoint(ctx, exec, fmt.Sprintf("refund_%d", idx), func() error {
		exists, err := g.walletRepo.Exists(ctx, exec, t.ID, reg.UserID, models.ReasonAutoCancel)
		if err != nil {
			return err
		}
		if exists {
			return ErrRefundAlreadyIssued
		}
		inserted, err := g.walletRepo.InsertIdempotent(ctx, exec, tx)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrRefundAlreadyIssued
		}
		return nil
	})

	switch {
	case err == nil:
		line.Status = refundStatusIssued
		line.Reference = tx.Reference
	case errors.Is(err, ErrRefundAlreadyIssued):
		log.Debug("refund already issued")
		line.Status = refundStatusSkipped
	default:
		log.Error("refund failed", slog.Any("error", err))
		line.Status = refundStatusFailed
		line.Error = err.Error()
	}
	return line
}

func (g *LifecycleGuard) afterCommit(ctx context.Context, res *sweepOutcome, now time.Time) {
	t := res.tournament
	for i := 0; i < res.refunded; i++ {
		g.metrics.RefundIssued()
	}
	for i := 0; i < res.skipped; i++ {
		g.metrics.RefundSkipped()
	}
	for i := 0; i < res.failed; i++ {
		g.metrics.RefundFailed()
	}

	if res.cancelled {
		g.metrics.TournamentCancelled()
		g.logger.Info("stalled tournament cancelled",
			slog.Int("tournament_id", t.ID),
			slog.Int("registrants", res.registrants),
			slog.Int("refunded", res.refunded),
			slog.Int("already_refunded", res.skipped),
			slog.Int("failed", res.failed),
		)
		if g.notifier != nil {
			g.notifier.TournamentAutoCancelled(ctx, CancellationNotice{
				Tournament:  t,
				Reason:      ReasonWinnerNotDeclared,
				Registrants: res.registrants,
				Refunded:    res.refunded,
				Skipped:     res.skipped,
				Failed:      res.failed,
			})
		}
	}

	if g.archiver == nil || len(res.lines) == 0 {
		return
	}
	receipt := storage.RefundReceipt{
		TournamentID:   t.ID,
		TournamentName: t.Name,
		OrganizerID:    t.OrganizerID,
		Reason:         ReasonWinnerNotDeclared,
		Cancelled:      res.cancelled || res.retry,
		ProcessedAt:    now,
		Lines:          res.lines,
	}
	if _, err := g.archiver.Archive(ctx, receipt); err != nil {
		g.logger.Warn("failed to archive refund receipt", slog.Int("tournament_id", t.ID), slog.Any("error", err))
	}
}

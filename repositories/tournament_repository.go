package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/room-bracket/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentInvalidOrg    = errors.New("invalid organizer reference")
	ErrTournamentStateConflict = errors.New("tournament is not in the expected state")
)

type TournamentRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus, at time.Time) error
	StartBracket(ctx context.Context, exec SQLExecutor, id int, totalTeams int, at time.Time) error
	AdvanceRound(ctx context.Context, exec SQLExecutor, id int, nextRound int) error
	MarkWinnerDeclared(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	UpdatePrizes(ctx context.Context, exec SQLExecutor, id int, pool decimal.Decimal, distribution models.PrizeDistribution) error
	ListStalled(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error)
	LockStalled(ctx context.Context, exec SQLExecutor, id int, cutoff time.Time) (*models.Tournament, error)
	CancelStalled(ctx context.Context, exec SQLExecutor, id int, at time.Time) (bool, error)
	ListWithMissingRefunds(ctx context.Context) ([]*models.Tournament, error)
	LockCancelled(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, game_type, organizer_id, room_capacity, total_teams, current_round,
	status, status_changed_at, winner_declared_at, cancel_reason, entry_fee, prize_pool, prize_distribution, created_at`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.GameType, &t.OrganizerID, &t.RoomCapacity, &t.TotalTeams, &t.CurrentRound,
		&t.Status, &t.StatusChangedAt, &t.WinnerDeclaredAt, &t.CancelReason, &t.EntryFee, &t.PrizePool, &t.Distribution, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

// GetForUpdate locks the tournament row until the surrounding transaction ends.
func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to lock tournament %d: %w", id, err)
	}
	return t, nil
}

// UpdateStatus moves the tournament from one status to another. A row already
// in a different status yields ErrTournamentStateConflict.
func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus, at time.Time) error {
	query := `UPDATE tournaments SET status = $1, status_changed_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

func (r *postgresTournamentRepository) StartBracket(ctx context.Context, exec SQLExecutor, id int, totalTeams int, at time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, status_changed_at = $2, total_teams = $3, current_round = 1
		WHERE id = $4 AND status = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.StatusLive, at, totalTeams, id, models.StatusOpen)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

func (r *postgresTournamentRepository) AdvanceRound(ctx context.Context, exec SQLExecutor, id int, nextRound int) error {
	query := `UPDATE tournaments SET current_round = $1 WHERE id = $2 AND status = $3 AND current_round = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextRound, id, models.StatusLive, nextRound-1)
	if err != nil {
		return fmt.Errorf("failed to advance tournament %d to round %d: %w", id, nextRound, err)
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

// MarkWinnerDeclared completes a live tournament and records when the champion was decided.
func (r *postgresTournamentRepository) MarkWinnerDeclared(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, status_changed_at = $2, winner_declared_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.StatusCompleted, at, id, models.StatusLive)
	if err != nil {
		return fmt.Errorf("failed to declare winner for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

func (r *postgresTournamentRepository) UpdatePrizes(ctx context.Context, exec SQLExecutor, id int, pool decimal.Decimal, distribution models.PrizeDistribution) error {
	query := `UPDATE tournaments SET prize_pool = $1, prize_distribution = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, pool, distribution, id)
	if err != nil {
		return fmt.Errorf("failed to update prizes for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListStalled returns completed tournaments without a declared winner whose
// status changed at or before cutoff, oldest first.
func (r *postgresTournamentRepository) ListStalled(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND winner_declared_at IS NULL AND status_changed_at <= $2
		ORDER BY status_changed_at ASC, id ASC`

	rows, err := r.getExecutor(nil).QueryContext(ctx, query, models.StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stalled tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan stalled tournament: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during stalled tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

// LockStalled re-reads and locks one stalled tournament. Rows locked by a
// concurrent sweep are skipped and reported as ErrTournamentNotFound, as are
// rows that stopped being stalled since ListStalled.
func (r *postgresTournamentRepository) LockStalled(ctx context.Context, exec SQLExecutor, id int, cutoff time.Time) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE id = $1 AND status = $2 AND winner_declared_at IS NULL AND status_changed_at <= $3
		FOR UPDATE SKIP LOCKED`

	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id, models.StatusCompleted, cutoff))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to lock stalled tournament %d: %w", id, err)
	}
	return t, nil
}

// CancelStalled flips a stalled tournament to cancelled. It reports false when
// the row no longer matches, e.g. a winner was declared meanwhile.
func (r *postgresTournamentRepository) CancelStalled(ctx context.Context, exec SQLExecutor, id int, at time.Time) (bool, error) {
	query := `
		UPDATE tournaments
		SET status = $1, status_changed_at = $2, cancel_reason = $3
		WHERE id = $4 AND status = $5 AND winner_declared_at IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.StatusCancelled, at, models.ReasonAutoCancel, id, models.StatusCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to cancel tournament %d: %w", id, err)
	}
	if err := checkAffectedRows(result, ErrTournamentStateConflict); err != nil {
		if errors.Is(err, ErrTournamentStateConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListWithMissingRefunds returns auto-cancelled tournaments where a paying
// registrant still has no auto_cancel refund, i.e. an earlier sweep failed part way.
func (r *postgresTournamentRepository) ListWithMissingRefunds(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments t
		WHERE t.status = $1 AND t.cancel_reason = $2
		  AND EXISTS (
			SELECT 1 FROM registrations reg
			WHERE reg.tournament_id = t.id AND reg.payment_status = $3 AND reg.amount_paid > 0
			  AND NOT EXISTS (
				SELECT 1 FROM wallet_transactions wt
				WHERE wt.tournament_id = t.id AND wt.user_id = reg.user_id AND wt.reason = $2
			  )
		  )
		ORDER BY t.id ASC`

	rows, err := r.getExecutor(nil).QueryContext(ctx, query, models.StatusCancelled, models.ReasonAutoCancel, models.PaymentCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments with missing refunds: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

// LockCancelled locks an auto-cancelled tournament for a refund retry, skipping rows held by another sweep.
func (r *postgresTournamentRepository) LockCancelled(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE id = $1 AND status = $2 AND cancel_reason = $3
		FOR UPDATE SKIP LOCKED`

	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id, models.StatusCancelled, models.ReasonAutoCancel))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to lock cancelled tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503":
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
		}
	}
	return err
}

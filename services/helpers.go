package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/repositories"
)

// runInTx executes fn inside a transaction. Without a database (unit tests) fn
// gets a nil executor and the repositories fall back to their own handles.
func runInTx(ctx context.Context, db *sql.DB, fn func(exec repositories.SQLExecutor) error) (txErr error) {
	if db == nil {
		return fn(nil)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

// txRunner runs fn in one transaction.
type txRunner func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error

func dbTxRunner(db *sql.DB) txRunner {
	return func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
		return runInTx(ctx, db, fn)
	}
}

// Допустимые ручные переходы. completed -> cancelled выполняет только LifecycleGuard.
func isValidStatusTransition(current, next models.TournamentStatus) bool {
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusOpen:      {models.StatusLive, models.StatusCancelled},
		models.StatusLive:      {models.StatusCompleted, models.StatusCancelled},
		models.StatusCompleted: {},
		models.StatusCancelled: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func isKnownStatus(s models.TournamentStatus) bool {
	switch s {
	case models.StatusOpen, models.StatusLive, models.StatusCompleted, models.StatusCancelled:
		return true
	}
	return false
}

// handleRepositoryError translates storage sentinels into service errors.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrRoomAlreadyCompleted):
		return ErrRoomAlreadyCompleted
	case errors.Is(err, repositories.ErrRoomNotPending):
		return ErrRoomNotPending
	case errors.Is(err, repositories.ErrTournamentStateConflict),
		errors.Is(err, repositories.ErrTeamStateConflict),
		errors.Is(err, repositories.ErrRoomRoundExists):
		return fmt.Errorf("%w: %v", ErrTournamentConflict, err)
	}
	return err
}

func intPtr(v int) *int {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

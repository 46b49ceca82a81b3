package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/room-bracket/models"
	"github.com/lib/pq"
)

var ErrWalletUserInvalid = errors.New("invalid wallet user reference")

type WalletRepository interface {
	ListByUser(ctx context.Context, userID int) ([]models.WalletTransaction, error)
	Exists(ctx context.Context, exec SQLExecutor, tournamentID, userID int, reason string) (bool, error)
	InsertIdempotent(ctx context.Context, exec SQLExecutor, tx *models.WalletTransaction) (bool, error)
}

type postgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) WalletRepository {
	return &postgresWalletRepository{db: db}
}

func (r *postgresWalletRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWalletRepository) ListByUser(ctx context.Context, userID int) ([]models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, tournament_id, type, amount, status, reason, reference, description, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.getExecutor(nil).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	transactions := make([]models.WalletTransaction, 0)
	for rows.Next() {
		var tx models.WalletTransaction
		if scanErr := rows.Scan(
			&tx.ID, &tx.UserID, &tx.TournamentID, &tx.Type, &tx.Amount, &tx.Status,
			&tx.Reason, &tx.Reference, &tx.Description, &tx.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", scanErr)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during wallet transaction rows iteration: %w", err)
	}
	return transactions, nil
}

// Exists reports whether a transaction with the given idempotency reason was already written.
func (r *postgresWalletRepository) Exists(ctx context.Context, exec SQLExecutor, tournamentID, userID int, reason string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM wallet_transactions
			WHERE tournament_id = $1 AND user_id = $2 AND reason = $3
		)`
	var exists bool
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, userID, reason).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check wallet transaction: %w", err)
	}
	return exists, nil
}

// InsertIdempotent appends tx unless a row with the same (tournament, user, reason)
// exists. It reports whether a row was written; a skipped insert is not an error.
func (r *postgresWalletRepository) InsertIdempotent(ctx context.Context, exec SQLExecutor, tx *models.WalletTransaction) (bool, error) {
	query := `
		INSERT INTO wallet_transactions (user_id, tournament_id, type, amount, status, reason, reference, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tournament_id, user_id, reason) WHERE reason IS NOT NULL DO NOTHING
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		tx.UserID, tx.TournamentID, tx.Type, tx.Amount, tx.Status, tx.Reason, tx.Reference, tx.Description,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" && pqErr.Constraint == "wallet_transactions_user_id_fkey" {
			return false, ErrWalletUserInvalid
		}
		return false, fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return true, nil
}

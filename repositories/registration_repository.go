package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/room-bracket/models"
)

type RegistrationRepository interface {
	ListPaidByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListPaidByTournament returns registrations whose payment completed, in registration order.
func (r *postgresRegistrationRepository) ListPaidByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	query := `
		SELECT id, tournament_id, team_id, user_id, payment_status, amount_paid, created_at
		FROM registrations
		WHERE tournament_id = $1 AND payment_status = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID, models.PaymentCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query paid registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if scanErr := rows.Scan(
			&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.UserID, &reg.PaymentStatus, &reg.AmountPaid, &reg.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", scanErr)
		}
		registrations = append(registrations, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration rows iteration: %w", err)
	}
	return registrations, nil
}

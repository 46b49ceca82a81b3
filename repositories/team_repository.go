package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/room-bracket/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamStateConflict = errors.New("team is not in the expected round")
)

type TeamRepository interface {
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, paidOnly bool) ([]*models.Team, error)
	Promote(ctx context.Context, exec SQLExecutor, teamIDs []int, fromRound int) error
	Eliminate(ctx context.Context, exec SQLExecutor, teamIDs []int, round int) error
	SetFinalRank(ctx context.Context, exec SQLExecutor, teamID int, rank int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByTournament returns the tournament's teams with their member ids in
// registration order. With paidOnly, only teams holding at least one completed
// payment are returned.
func (r *postgresTeamRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, paidOnly bool) ([]*models.Team, error) {
	query := `
		SELECT
			t.id, t.tournament_id, t.name, t.current_round, t.is_eliminated,
			t.eliminated_at_round, t.final_rank, t.registered_at,
			COALESCE(array_agg(tm.user_id ORDER BY tm.user_id) FILTER (WHERE tm.user_id IS NOT NULL), '{}')
		FROM teams t
		LEFT JOIN team_members tm ON tm.team_id = t.id
		WHERE t.tournament_id = $1
		  AND (NOT $2 OR EXISTS (
			SELECT 1 FROM registrations reg
			WHERE reg.team_id = t.id AND reg.payment_status = $3
		  ))
		GROUP BY t.id
		ORDER BY t.registered_at ASC, t.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID, paidOnly, models.PaymentCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var (
			t       models.Team
			members []int64
		)
		if scanErr := rows.Scan(
			&t.ID, &t.TournamentID, &t.Name, &t.CurrentRound, &t.IsEliminated,
			&t.EliminatedAtRound, &t.FinalRank, &t.RegisteredAt,
			pq.Array(&members),
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team: %w", scanErr)
		}
		t.MemberIDs = toInts(members)
		teams = append(teams, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

// Promote moves surviving teams from fromRound to the next round. Every team
// must still be alive in fromRound.
func (r *postgresTeamRepository) Promote(ctx context.Context, exec SQLExecutor, teamIDs []int, fromRound int) error {
	if len(teamIDs) == 0 {
		return nil
	}
	query := `
		UPDATE teams SET current_round = current_round + 1
		WHERE id = ANY($1) AND current_round = $2 AND NOT is_eliminated`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, pq.Array(toInt64s(teamIDs)), fromRound)
	if err != nil {
		return fmt.Errorf("failed to promote teams: %w", err)
	}
	return expectRows(result, len(teamIDs), ErrTeamStateConflict)
}

func (r *postgresTeamRepository) Eliminate(ctx context.Context, exec SQLExecutor, teamIDs []int, round int) error {
	if len(teamIDs) == 0 {
		return nil
	}
	query := `
		UPDATE teams SET is_eliminated = TRUE, eliminated_at_round = $2
		WHERE id = ANY($1) AND current_round = $2 AND NOT is_eliminated`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, pq.Array(toInt64s(teamIDs)), round)
	if err != nil {
		return fmt.Errorf("failed to eliminate teams: %w", err)
	}
	return expectRows(result, len(teamIDs), ErrTeamStateConflict)
}

func (r *postgresTeamRepository) SetFinalRank(ctx context.Context, exec SQLExecutor, teamID int, rank int) error {
	query := `UPDATE teams SET final_rank = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, rank, teamID)
	if err != nil {
		return fmt.Errorf("failed to set final rank for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

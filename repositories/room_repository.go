package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/room-bracket/brackets"
	"github.com/Dosada05/room-bracket/models"
	"github.com/lib/pq"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomAlreadyCompleted = errors.New("room already completed")
	ErrRoomNotPending       = errors.New("room is not pending")
	ErrRoomRoundExists      = errors.New("rooms for this round already exist")
)

type RoomRepository interface {
	CreateRooms(ctx context.Context, exec SQLExecutor, rooms []*models.Room) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Room, error)
	CountOpenInRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
	Start(ctx context.Context, exec SQLExecutor, id int) error
	Complete(ctx context.Context, exec SQLExecutor, id int, winnerTeamID int, at time.Time) error
}

type postgresRoomRepository struct {
	db *sql.DB
}

func NewPostgresRoomRepository(db *sql.DB) RoomRepository {
	return &postgresRoomRepository{db: db}
}

func (r *postgresRoomRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roomSelect = `
	SELECT
		r.id, r.tournament_id, r.round, r.room_number, r.status, r.winner_team_id, r.completed_at, r.created_at,
		COALESCE((SELECT array_agg(m.team_id ORDER BY m.slot) FROM room_memberships m WHERE m.room_id = r.id), '{}')
	FROM rooms r`

func scanRoom(row rowScanner) (*models.Room, error) {
	var (
		room  models.Room
		teams []int64
	)
	err := row.Scan(
		&room.ID, &room.TournamentID, &room.Round, &room.Number, &room.Status,
		&room.WinnerTeamID, &room.CompletedAt, &room.CreatedAt,
		pq.Array(&teams),
	)
	if err != nil {
		return nil, err
	}
	room.TeamIDs = toInts(teams)
	return &room, nil
}

// CreateRooms inserts the rooms of one round together with their memberships.
// Call it inside a transaction: a half-written round is never valid.
func (r *postgresRoomRepository) CreateRooms(ctx context.Context, exec SQLExecutor, rooms []*models.Room) error {
	executor := r.getExecutor(exec)
	roomQuery := `
		INSERT INTO rooms (tournament_id, round, room_number, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	memberQuery := `INSERT INTO room_memberships (room_id, team_id, slot) VALUES ($1, $2, $3)`

	for _, room := range rooms {
		err := executor.QueryRowContext(ctx, roomQuery, room.TournamentID, room.Round, room.Number, room.Status).
			Scan(&room.ID, &room.CreatedAt)
		if err != nil {
			return r.handleRoomError(err)
		}
		for _, m := range brackets.Memberships(room) {
			if _, err := executor.ExecContext(ctx, memberQuery, m.RoomID, m.TeamID, m.Slot); err != nil {
				return fmt.Errorf("failed to add team %d to room %d: %w", m.TeamID, m.RoomID, r.handleRoomError(err))
			}
		}
	}
	return nil
}

func (r *postgresRoomRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error) {
	room, err := scanRoom(r.getExecutor(exec).QueryRowContext(ctx, roomSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room %d: %w", id, err)
	}
	return room, nil
}

func (r *postgresRoomRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error) {
	room, err := scanRoom(r.getExecutor(exec).QueryRowContext(ctx, roomSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to lock room %d: %w", id, err)
	}
	return room, nil
}

func (r *postgresRoomRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Room, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		roomSelect+` WHERE r.tournament_id = $1 ORDER BY r.round ASC, r.room_number ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rooms := make([]*models.Room, 0)
	for rows.Next() {
		room, scanErr := scanRoom(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan room: %w", scanErr)
		}
		rooms = append(rooms, room)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during room rows iteration: %w", err)
	}
	return rooms, nil
}

// CountOpenInRound counts rooms of the round that have not completed yet.
func (r *postgresRoomRepository) CountOpenInRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	query := `SELECT COUNT(*) FROM rooms WHERE tournament_id = $1 AND round = $2 AND status <> $3`
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, round, models.RoomStatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open rooms: %w", err)
	}
	return count, nil
}

func (r *postgresRoomRepository) Start(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE rooms SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.RoomStatusLive, id, models.RoomStatusPending)
	if err != nil {
		return fmt.Errorf("failed to start room %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRoomNotPending)
}

// Complete records the winner. A room can be completed only once.
func (r *postgresRoomRepository) Complete(ctx context.Context, exec SQLExecutor, id int, winnerTeamID int, at time.Time) error {
	query := `
		UPDATE rooms SET status = $1, winner_team_id = $2, completed_at = $3
		WHERE id = $4 AND status <> $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.RoomStatusCompleted, winnerTeamID, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete room %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRoomAlreadyCompleted)
}

func (r *postgresRoomRepository) handleRoomError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "rooms_tournament_id_round_room_number_key" {
				return ErrRoomRoundExists
			}
		case "23503":
			if pqErr.Constraint == "room_memberships_team_id_fkey" {
				return ErrTeamNotFound
			}
		}
	}
	return err
}

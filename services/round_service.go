package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/room-bracket/brackets"
	"github.com/Dosada05/room-bracket/metrics"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/repositories"
	"golang.org/x/sync/errgroup"
)

// EventPublisher fans bracket events out to live subscribers. *brackets.Hub implements it.
type EventPublisher interface {
	Publish(tournamentID int, eventType string, payload interface{})
}

// PrizeDistributor owns prize math. The round engine only tells it when to act.
// DistributePrizes runs inside the finale transaction: a failed credit rolls
// the finale back.
type PrizeDistributor interface {
	RecalculatePrizePool(ctx context.Context, tournamentID int, finaleTeams int) error
	DistributePrizes(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID int
	Role   models.UserRole
}

var systemActor = Actor{Role: models.RoleAdmin}

func (a Actor) canManage(t *models.Tournament) bool {
	return a.Role == models.RoleAdmin || (a.UserID != 0 && a.UserID == t.OrganizerID)
}

// RoomResult describes everything a single winner declaration changed.
type RoomResult struct {
	Room               *models.Room      `json:"room"`
	Outcome            *brackets.Outcome `json:"outcome"`
	RoundCompleted     bool              `json:"round_completed"`
	NextRound          int               `json:"next_round,omitempty"`
	NextRooms          []*models.Room    `json:"next_rooms,omitempty"`
	EnteredFinale      bool              `json:"entered_finale"`
	TournamentFinished bool              `json:"tournament_finished"`
}

// BracketView is the bracket as shown to organizers and players.
type BracketView struct {
	Tournament *models.Tournament `json:"tournament"`
	Plan       *brackets.Plan     `json:"plan,omitempty"`
	Rooms      []*models.Room     `json:"rooms"`
}

type RoomCompletedPayload struct {
	RoomID       int   `json:"room_id"`
	Round        int   `json:"round"`
	WinnerTeamID int   `json:"winner_team_id"`
	Advanced     []int `json:"advanced"`
	Eliminated   []int `json:"eliminated"`
}

type RoundAdvancedPayload struct {
	Round    int            `json:"round"`
	IsFinale bool           `json:"is_finale"`
	Rooms    []*models.Room `json:"rooms"`
}

type TournamentFinishedPayload struct {
	WinnerTeamID int         `json:"winner_team_id"`
	FinalRanks   map[int]int `json:"final_ranks"`
}

type RoundService interface {
	StartTournament(ctx context.Context, actor Actor, tournamentID int) (*BracketView, error)
	StartRoom(ctx context.Context, actor Actor, roomID int) (*models.Room, error)
	DeclareWinner(ctx context.Context, actor Actor, roomID int, decision WinnerDecision) (*RoomResult, error)
	SimulateRound(ctx context.Context, tournamentID int) ([]*RoomResult, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
	UpdateStatus(ctx context.Context, actor Actor, tournamentID int, status models.TournamentStatus) (*models.Tournament, error)
}

type RoundOptions struct {
	AdvancesPerRoom   int
	SimulationEnabled bool
	Random            WinnerDecision
	Now               func() time.Time
}

type roundService struct {
	inTx           txRunner
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	roomRepo       repositories.RoomRepository
	prizes         PrizeDistributor
	events         EventPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger

	advancesPerRoom   int
	simulationEnabled bool
	random            WinnerDecision
	now               func() time.Time
}

func NewRoundService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	roomRepo repositories.RoomRepository,
	prizes PrizeDistributor,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts RoundOptions,
) RoundService {
	if opts.AdvancesPerRoom < 1 {
		opts.AdvancesPerRoom = brackets.DefaultAdvancesPerRoom
	}
	if opts.Random == nil {
		opts.Random = RandomDecision{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &roundService{
		inTx:              dbTxRunner(db),
		tournamentRepo:    tournamentRepo,
		teamRepo:          teamRepo,
		roomRepo:          roomRepo,
		prizes:            prizes,
		events:            events,
		metrics:           m,
		logger:            logger.With(slog.String("service", "rounds")),
		advancesPerRoom:   opts.AdvancesPerRoom,
		simulationEnabled: opts.SimulationEnabled,
		random:            opts.Random,
		now:               opts.Now,
	}
}

func (s *roundService) plan(t *models.Tournament, totalTeams int) (*brackets.Plan, error) {
	return brackets.PlanWithAdvances(totalTeams, t.RoomCapacity, s.advancesPerRoom)
}

// StartTournament locks registrations, plans the bracket for the teams that
// actually paid and opens round 1.
func (s *roundService) StartTournament(ctx context.Context, actor Actor, tournamentID int) (*BracketView, error) {
	var (
		view     *BracketView
		eligible int
	)
	err := s.inTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !actor.canManage(t) {
			return ErrForbiddenOperation
		}
		if t.Status != models.StatusOpen {
			return fmt.Errorf("%w: status is %s", ErrTournamentNotOpen, t.Status)
		}

		teams, err := s.teamRepo.ListByTournament(ctx, exec, t.ID, true)
		if err != nil {
			return err
		}
		for _, team := range teams {
			if !team.EligibleFor(1) {
				continue
			}
			if !team.HasValidRoster() {
				return fmt.Errorf("%w: team %d has %d members, want 1-%d",
					ErrValidationFailed, team.ID, len(team.MemberIDs), models.MaxTeamMembers)
			}
			eligible++
		}

		plan, err := s.plan(t, eligible)
		if err != nil {
			return err
		}
		rooms, err := brackets.AssignRooms(teams, t.RoomCapacity, 1)
		if err != nil {
			return err
		}
		if err := s.roomRepo.CreateRooms(ctx, exec, rooms); err != nil {
			return handleRepositoryError(err)
		}

		now := s.now()
		if err := s.tournamentRepo.StartBracket(ctx, exec, t.ID, eligible, now); err != nil {
			return handleRepositoryError(err)
		}
		t.Status = models.StatusLive
		t.StatusChangedAt = now
		t.TotalTeams = eligible
		t.CurrentRound = 1

		view = &BracketView{Tournament: t, Plan: plan, Rooms: rooms}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		slog.Int("tournament_id", tournamentID),
		slog.Int("teams", eligible),
		slog.Int("rounds", len(view.Plan.Rounds)),
	)
	s.publish(tournamentID, brackets.EventTournamentStarted, view)
	if view.Plan.Rounds[0].IsFinale {
		s.recalculatePrizes(ctx, tournamentID, eligible)
	}
	return view, nil
}

func (s *roundService) StartRoom(ctx context.Context, actor Actor, roomID int) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, nil, roomID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	t, err := s.tournamentRepo.GetByID(ctx, nil, room.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !actor.canManage(t) {
		return nil, ErrForbiddenOperation
	}
	if t.Status != models.StatusLive {
		return nil, ErrTournamentNotLive
	}
	if room.Status != models.RoomStatusPending {
		return nil, fmt.Errorf("%w: room %d is %s", ErrRoomNotPending, room.ID, room.Status)
	}

	if err := s.roomRepo.Start(ctx, nil, room.ID); err != nil {
		return nil, handleRepositoryError(err)
	}
	room.Status = models.RoomStatusLive

	s.publish(t.ID, brackets.EventRoomStarted, room)
	return room, nil
}

// DeclareWinner applies a room result exactly once. Concurrent declarations
// for the same room are serialized on the row locks; the loser sees
// ErrRoomAlreadyCompleted. Completing the last room of a round opens the next
// round in the same transaction.
func (s *roundService) DeclareWinner(ctx context.Context, actor Actor, roomID int, decision WinnerDecision) (*RoomResult, error) {
	room, err := s.roomRepo.GetByID(ctx, nil, roomID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if room.Status == models.RoomStatusCompleted {
		s.metrics.DeclarationConflict()
		return nil, fmt.Errorf("%w: room %d", ErrRoomAlreadyCompleted, room.ID)
	}

	verdict, err := decision.Decide(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var (
		result      *RoomResult
		tournament  *models.Tournament
		finaleTeams int
	)
	err = s.inTx(ctx, func(exec repositories.SQLExecutor) error {
		// Турнир блокируется первым: так же, как в StartTournament.
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, room.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !actor.canManage(t) {
			return ErrForbiddenOperation
		}
		locked, err := s.roomRepo.GetForUpdate(ctx, exec, roomID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if locked.Status == models.RoomStatusCompleted {
			return fmt.Errorf("%w: room %d", ErrRoomAlreadyCompleted, locked.ID)
		}
		if t.Status != models.StatusLive {
			return fmt.Errorf("%w: status is %s", ErrTournamentNotLive, t.Status)
		}
		if locked.Round != t.CurrentRound {
			return fmt.Errorf("%w: room round %d, current round %d", ErrRoomNotInCurrentRound, locked.Round, t.CurrentRound)
		}

		plan, err := s.plan(t, t.TotalTeams)
		if err != nil {
			return err
		}
		shape, ok := plan.Round(locked.Round)
		if !ok {
			return fmt.Errorf("%w: round %d is outside the %d-round plan", ErrTournamentConflict, locked.Round, len(plan.Rounds))
		}

		outcome, err := brackets.ResolveRoom(locked.TeamIDs, verdict.WinnerTeamID, verdict.Ranking, s.advancesPerRoom, shape.IsFinale)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.roomRepo.Complete(ctx, exec, locked.ID, verdict.WinnerTeamID, now); err != nil {
			return handleRepositoryError(err)
		}
		locked.Status = models.RoomStatusCompleted
		locked.WinnerTeamID = intPtr(verdict.WinnerTeamID)
		locked.CompletedAt = &now
		result = &RoomResult{Room: locked, Outcome: outcome}
		tournament = t

		if shape.IsFinale {
			return s.finishTournament(ctx, exec, t, locked, outcome, now, result)
		}

		if err := s.teamRepo.Promote(ctx, exec, outcome.Advanced, locked.Round); err != nil {
			return handleRepositoryError(err)
		}
		if err := s.teamRepo.Eliminate(ctx, exec, outcome.Eliminated, locked.Round); err != nil {
			return handleRepositoryError(err)
		}

		open, err := s.roomRepo.CountOpenInRound(ctx, exec, t.ID, locked.Round)
		if err != nil {
			return err
		}
		if open > 0 {
			return nil
		}

		finaleTeams, err = s.openNextRound(ctx, exec, t, plan, result)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrRoomAlreadyCompleted) {
			s.metrics.DeclarationConflict()
		}
		return nil, err
	}

	s.metrics.WinnerDeclared(result.TournamentFinished)
	s.logger.Info("room winner declared",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("room_id", result.Room.ID),
		slog.Int("round", result.Room.Round),
		slog.Int("winner_team_id", verdict.WinnerTeamID),
	)
	s.publish(tournament.ID, brackets.EventRoomCompleted, RoomCompletedPayload{
		RoomID:       result.Room.ID,
		Round:        result.Room.Round,
		WinnerTeamID: verdict.WinnerTeamID,
		Advanced:     result.Outcome.Advanced,
		Eliminated:   result.Outcome.Eliminated,
	})

	switch {
	case result.TournamentFinished:
		s.publish(tournament.ID, brackets.EventTournamentFinished, TournamentFinishedPayload{
			WinnerTeamID: verdict.WinnerTeamID,
			FinalRanks:   result.Outcome.FinalRanks,
		})
	case result.RoundCompleted:
		s.publish(tournament.ID, brackets.EventRoundAdvanced, RoundAdvancedPayload{
			Round:    result.NextRound,
			IsFinale: result.EnteredFinale,
			Rooms:    result.NextRooms,
		})
		if result.EnteredFinale {
			s.recalculatePrizes(ctx, tournament.ID, finaleTeams)
		}
	}
	return result, nil
}

func (s *roundService) finishTournament(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, room *models.Room, outcome *brackets.Outcome, now time.Time, result *RoomResult) error {
	if err := s.teamRepo.Eliminate(ctx, exec, outcome.Eliminated, room.Round); err != nil {
		return handleRepositoryError(err)
	}

	teamIDs := make([]int, 0, len(outcome.FinalRanks))
	for id := range outcome.FinalRanks {
		teamIDs = append(teamIDs, id)
	}
	sort.Ints(teamIDs)
	for _, id := range teamIDs {
		if err := s.teamRepo.SetFinalRank(ctx, exec, id, outcome.FinalRanks[id]); err != nil {
			return err
		}
	}

	if err := s.tournamentRepo.MarkWinnerDeclared(ctx, exec, t.ID, now); err != nil {
		return handleRepositoryError(err)
	}
	if s.prizes != nil {
		if err := s.prizes.DistributePrizes(ctx, exec, t.ID); err != nil {
			return fmt.Errorf("failed to credit prizes: %w", err)
		}
	}
	t.Status = models.StatusCompleted
	t.StatusChangedAt = now
	t.WinnerDeclaredAt = &now
	result.TournamentFinished = true
	return nil
}

// openNextRound assigns the survivors of a finished round into rooms and
// returns how many teams entered the new round.
func (s *roundService) openNextRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, plan *brackets.Plan, result *RoomResult) (int, error) {
	next := t.CurrentRound + 1
	shape, ok := plan.Round(next)
	if !ok {
		return 0, fmt.Errorf("%w: no round %d in the %d-round plan", ErrTournamentConflict, next, len(plan.Rounds))
	}

	teams, err := s.teamRepo.ListByTournament(ctx, exec, t.ID, false)
	if err != nil {
		return 0, err
	}
	rooms, err := brackets.AssignRooms(teams, t.RoomCapacity, next)
	if err != nil {
		return 0, err
	}
	if err := s.roomRepo.CreateRooms(ctx, exec, rooms); err != nil {
		return 0, handleRepositoryError(err)
	}
	if err := s.tournamentRepo.AdvanceRound(ctx, exec, t.ID, next); err != nil {
		return 0, handleRepositoryError(err)
	}
	t.CurrentRound = next

	entering := 0
	for _, room := range rooms {
		entering += len(room.TeamIDs)
	}
	if entering != shape.TeamsEnteringRound {
		s.logger.Warn("round size differs from plan",
			slog.Int("tournament_id", t.ID),
			slog.Int("round", next),
			slog.Int("planned", shape.TeamsEnteringRound),
			slog.Int("actual", entering),
		)
	}

	result.RoundCompleted = true
	result.NextRound = next
	result.NextRooms = rooms
	result.EnteredFinale = shape.IsFinale
	return entering, nil
}

// SimulateRound resolves every open room of the current round with random
// verdicts. Rooms are declared concurrently, each in its own transaction.
func (s *roundService) SimulateRound(ctx context.Context, tournamentID int) ([]*RoomResult, error) {
	if !s.simulationEnabled {
		return nil, ErrSimulationDisabled
	}

	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Status != models.StatusLive {
		return nil, ErrTournamentNotLive
	}
	rooms, err := s.roomRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	var open []*models.Room
	var verdicts []Decision
	for _, room := range rooms {
		if room.Round != t.CurrentRound || room.Status == models.RoomStatusCompleted {
			continue
		}
		verdict, err := s.random.Decide(ctx, room)
		if err != nil {
			return nil, err
		}
		open = append(open, room)
		verdicts = append(verdicts, verdict)
	}

	results := make([]*RoomResult, len(open))
	g, gctx := errgroup.WithContext(ctx)
	for i, room := range open {
		g.Go(func() error {
			res, err := s.DeclareWinner(gctx, systemActor, room.ID, OrganizerDecision(verdicts[i]))
			if err != nil {
				return fmt.Errorf("room %d: %w", room.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetBracket returns the stored rooms and the plan. While registration is open
// the plan is a preview for the teams paid so far and changes with every
// registration.
func (s *roundService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	rooms, err := s.roomRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	view := &BracketView{Tournament: t, Rooms: rooms}

	totalTeams := t.TotalTeams
	if t.Status == models.StatusOpen {
		teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID, true)
		if err != nil {
			return nil, err
		}
		totalTeams = len(teams)
	}
	if totalTeams > 0 {
		plan, err := s.plan(t, totalTeams)
		if err != nil {
			return nil, err
		}
		view.Plan = plan
	}
	return view, nil
}

// UpdateStatus applies an organizer-driven transition. Going live goes through
// StartTournament so the bracket is always built.
func (s *roundService) UpdateStatus(ctx context.Context, actor Actor, tournamentID int, status models.TournamentStatus) (*models.Tournament, error) {
	if !isKnownStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrTournamentInvalidStatus, status)
	}
	if status == models.StatusLive {
		view, err := s.StartTournament(ctx, actor, tournamentID)
		if err != nil {
			return nil, err
		}
		return view.Tournament, nil
	}

	var updated *models.Tournament
	err := s.inTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !actor.canManage(t) {
			return ErrForbiddenOperation
		}
		if !isValidStatusTransition(t.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, status)
		}
		now := s.now()
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, t.Status, status, now); err != nil {
			return handleRepositoryError(err)
		}
		t.Status = status
		t.StatusChangedAt = now
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament status updated", slog.Int("tournament_id", tournamentID), slog.String("status", string(status)))
	if status == models.StatusCancelled {
		s.publish(tournamentID, brackets.EventTournamentCancelled, updated)
	}
	return updated, nil
}

func (s *roundService) recalculatePrizes(ctx context.Context, tournamentID, finaleTeams int) {
	if s.prizes == nil {
		return
	}
	if err := s.prizes.RecalculatePrizePool(ctx, tournamentID, finaleTeams); err != nil {
		s.logger.Error("prize pool recalculation failed",
			slog.Int("tournament_id", tournamentID),
			slog.Int("finale_teams", finaleTeams),
			slog.Any("error", err),
		)
	}
}

func (s *roundService) publish(tournamentID int, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(tournamentID, eventType, payload)
}

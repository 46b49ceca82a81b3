package handlers

import (
	"context"

	"github.com/Dosada05/room-bracket/ledger"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/services"
)

// ------------------------
// Fake Round Service
// ------------------------

type FakeRoundService struct {
	trace []string

	StartTournamentFunc func(ctx context.Context, actor services.Actor, tournamentID int) (*services.BracketView, error)
	StartRoomFunc       func(ctx context.Context, actor services.Actor, roomID int) (*models.Room, error)
	DeclareWinnerFunc   func(ctx context.Context, actor services.Actor, roomID int, decision services.WinnerDecision) (*services.RoomResult, error)
	SimulateRoundFunc   func(ctx context.Context, tournamentID int) ([]*services.RoomResult, error)
	GetBracketFunc      func(ctx context.Context, tournamentID int) (*services.BracketView, error)
	UpdateStatusFunc    func(ctx context.Context, actor services.Actor, tournamentID int, status models.TournamentStatus) (*models.Tournament, error)
}

func (f *FakeRoundService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRoundService) Trace() []string {
	return f.trace
}

func (f *FakeRoundService) StartTournament(ctx context.Context, actor services.Actor, tournamentID int) (*services.BracketView, error) {
	f.record("StartTournament")
	if f.StartTournamentFunc != nil {
		return f.StartTournamentFunc(ctx, actor, tournamentID)
	}
	return &services.BracketView{}, nil
}

func (f *FakeRoundService) StartRoom(ctx context.Context, actor services.Actor, roomID int) (*models.Room, error) {
	f.record("StartRoom")
	if f.StartRoomFunc != nil {
		return f.StartRoomFunc(ctx, actor, roomID)
	}
	return &models.Room{ID: roomID}, nil
}

func (f *FakeRoundService) DeclareWinner(ctx context.Context, actor services.Actor, roomID int, decision services.WinnerDecision) (*services.RoomResult, error) {
	f.record("DeclareWinner")
	if f.DeclareWinnerFunc != nil {
		return f.DeclareWinnerFunc(ctx, actor, roomID, decision)
	}
	return &services.RoomResult{}, nil
}

func (f *FakeRoundService) SimulateRound(ctx context.Context, tournamentID int) ([]*services.RoomResult, error) {
	f.record("SimulateRound")
	if f.SimulateRoundFunc != nil {
		return f.SimulateRoundFunc(ctx, tournamentID)
	}
	return nil, nil
}

func (f *FakeRoundService) GetBracket(ctx context.Context, tournamentID int) (*services.BracketView, error) {
	f.record("GetBracket")
	if f.GetBracketFunc != nil {
		return f.GetBracketFunc(ctx, tournamentID)
	}
	return &services.BracketView{}, nil
}

func (f *FakeRoundService) UpdateStatus(ctx context.Context, actor services.Actor, tournamentID int, status models.TournamentStatus) (*models.Tournament, error) {
	f.record("UpdateStatus")
	if f.UpdateStatusFunc != nil {
		return f.UpdateStatusFunc(ctx, actor, tournamentID, status)
	}
	return &models.Tournament{ID: tournamentID, Status: status}, nil
}

// ------------------------
// Fake Sweep Runner / Reconciler
// ------------------------

type FakeSweepRunner struct {
	RunOnceFunc func(ctx context.Context) ([]services.CancelledTournament, error)
}

func (f *FakeSweepRunner) RunOnce(ctx context.Context) ([]services.CancelledTournament, error) {
	if f.RunOnceFunc != nil {
		return f.RunOnceFunc(ctx)
	}
	return []services.CancelledTournament{}, nil
}

type FakeReconciler struct {
	ReconcileFunc func(ctx context.Context, userID int) (*ledger.Report, error)
}

func (f *FakeReconciler) Reconcile(ctx context.Context, userID int) (*ledger.Report, error) {
	if f.ReconcileFunc != nil {
		return f.ReconcileFunc(ctx, userID)
	}
	return ledger.Reconcile(nil), nil
}

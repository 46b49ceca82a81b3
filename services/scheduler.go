package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is the part of LifecycleGuard the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time, grace time.Duration) ([]CancelledTournament, error)
}

// SweepScheduler runs the stalled-tournament sweep on a fixed interval, once
// right after start. Overlapping runs are rescheduled, never stacked.
type SweepScheduler struct {
	scheduler gocron.Scheduler
	sweeper   Sweeper
	grace     time.Duration
	logger    *slog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSweepScheduler(sweeper Sweeper, interval, grace time.Duration, logger *slog.Logger) (*SweepScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SweepScheduler{
		scheduler: sched,
		sweeper:   sweeper,
		grace:     grace,
		logger:    logger.With(slog.String("component", "sweep_scheduler")),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.RunOnce(s.ctx) }),
		gocron.WithName("stalled-tournament-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register sweep job: %w", err)
	}
	return s, nil
}

func (s *SweepScheduler) Start() {
	s.logger.Info("sweep scheduler started", slog.Duration("grace_period", s.grace))
	s.scheduler.Start()
}

// RunOnce performs a single sweep; the scheduled job and POST /admin/sweeps share it.
func (s *SweepScheduler) RunOnce(ctx context.Context) ([]CancelledTournament, error) {
	cancelled, err := s.sweeper.Sweep(ctx, s.now(), s.grace)
	if err != nil {
		s.logger.Error("sweep failed", slog.Any("error", err))
		return nil, err
	}
	if len(cancelled) > 0 {
		s.logger.Info("sweep cancelled stalled tournaments", slog.Int("count", len(cancelled)))
	}
	return cancelled, nil
}

func (s *SweepScheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/room-bracket/brackets"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/repositories"
)

const ReasonWinnerNotDeclared = "winner not declared in time"

// CancellationNotice summarises one auto-cancelled tournament for its organizer.
type CancellationNotice struct {
	Tournament  *models.Tournament `json:"tournament"`
	Reason      string             `json:"reason"`
	Registrants int                `json:"registrants"`
	Refunded    int                `json:"refunded"`
	Skipped     int                `json:"already_refunded"`
	Failed      int                `json:"failed"`
}

// Notifier is fire-and-forget: delivery problems never reach the caller.
type Notifier interface {
	TournamentAutoCancelled(ctx context.Context, notice CancellationNotice)
}

type NotificationService struct {
	mailer   Mailer
	userRepo repositories.UserRepository
	events   EventPublisher
	logger   *slog.Logger
}

func NewNotificationService(mailer Mailer, userRepo repositories.UserRepository, events EventPublisher, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		mailer:   mailer,
		userRepo: userRepo,
		events:   events,
		logger:   logger.With(slog.String("service", "notifications")),
	}
}

func (s *NotificationService) TournamentAutoCancelled(ctx context.Context, notice CancellationNotice) {
	t := notice.Tournament
	if notice.Reason == "" {
		notice.Reason = ReasonWinnerNotDeclared
	}
	if s.events != nil {
		s.events.Publish(t.ID, brackets.EventTournamentCancelled, notice)
	}
	if s.mailer == nil {
		return
	}

	log := s.logger.With(slog.Int("tournament_id", t.ID), slog.Int("organizer_id", t.OrganizerID))
	organizer, err := s.userRepo.GetByID(ctx, t.OrganizerID)
	if err != nil {
		log.Error("failed to resolve organizer for cancellation notice", slog.Any("error", err))
		return
	}

	body, err := renderEmail("tournament_cancelled", struct {
		TournamentID   int
		TournamentName string
		Registrants    int
		Refunded       int
		Failed         int
	}{
		TournamentID:   t.ID,
		TournamentName: t.Name,
		Registrants:    notice.Registrants,
		Refunded:       notice.Refunded + notice.Skipped,
		Failed:         notice.Failed,
	})
	if err != nil {
		log.Error("failed to render cancellation notice", slog.Any("error", err))
		return
	}

	subject := fmt.Sprintf("Турнир '%s' отменён: %s", t.Name, notice.Reason)
	if err := s.mailer.SendEmail([]string{organizer.Email}, subject, body); err != nil {
		log.Error("failed to send cancellation notice", slog.Any("error", err))
		return
	}
	log.Info("cancellation notice sent")
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/repositories"
	"golang.org/x/sync/errgroup"
)

const defaultSweepInterval = 60 * time.Second

// SweeperService - фоновая уборка: переводит просроченные pending-сущности
// (заявки на игру и приглашения) в expired и рассылает уведомления владельцам.
// Предикаты обновлений включают status='pending', поэтому свип безопасен
// рядом с конкурентными accept/commit; пустой прогон - no-op.
type SweeperService struct {
	requestRepo repositories.MatchRequestRepository
	inviteRepo  repositories.InviteRepository
	notifier    Notifier
	logger      *slog.Logger
	interval    time.Duration
	now         func() time.Time
}

func NewSweeperService(
	requestRepo repositories.MatchRequestRepository,
	inviteRepo repositories.InviteRepository,
	notifier Notifier,
	logger *slog.Logger,
	interval time.Duration,
) *SweeperService {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &SweeperService{
		requestRepo: requestRepo,
		inviteRepo:  inviteRepo,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		now:         time.Now,
	}
}

// Run крутит свип на фиксированном интервале до отмены контекста.
// Первый прогон выполняется сразу при старте.
func (s *SweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", slog.Duration("interval", s.interval))

	if err := s.SweepOnce(ctx); err != nil {
		s.logger.Error("sweeper: initial run failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweeper: periodic run failed", slog.Any("error", err))
			}
		}
	}
}

// SweepOnce - один идемпотентный прогон; обе коллекции убираются параллельно.
func (s *SweeperService) SweepOnce(ctx context.Context) error {
	now := s.now()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sweepMatchRequests(gCtx, now) })
	g.Go(func() error { return s.sweepInvites(gCtx, now) })
	return g.Wait()
}

func (s *SweeperService) sweepMatchRequests(ctx context.Context, now time.Time) error {
	expired, err := s.requestRepo.ExpireDue(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep match requests: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	s.logger.Info("expired match requests", slog.Int("count", len(expired)))
	for _, req := range expired {
		s.notifier.Notify(ctx, req.RequesterID, models.NotificationMatchRequestLapsed,
			"Match request expired",
			fmt.Sprintf("Your %s match request expired without a match.", req.Format),
			nil)
	}
	return nil
}

func (s *SweeperService) sweepInvites(ctx context.Context, now time.Time) error {
	expired, err := s.inviteRepo.ExpireDue(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep invites: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	s.logger.Info("expired invites", slog.Int("count", len(expired)))
	for _, inv := range expired {
		code := inv.Code
		s.notifier.Notify(ctx, inv.InviterID, models.NotificationInviteLapsed,
			"Invite expired",
			"Your team invite expired before it was accepted.",
			&code)
		if inv.Invitee.Kind == models.InviteeByUser {
			s.notifier.Notify(ctx, inv.Invitee.UserID, models.NotificationInviteLapsed,
				"Invite expired",
				"A team invite addressed to you has expired.",
				&code)
		}
	}
	return nil
}

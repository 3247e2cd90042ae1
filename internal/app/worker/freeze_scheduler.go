package worker

import (
	"context"
	"time"

	"codearena/internal/app/service"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"go.uber.org/zap"
)

// FreezeScheduler applies scheduled freezes: contests whose
// autoFreezeAt has passed are frozen as if ROOT had done it manually.
type FreezeScheduler struct {
	contestRepo  repository.ContestRepository
	leaderboards *service.LeaderboardService
	interval     time.Duration
	logger       *zap.Logger
}

func NewFreezeScheduler(contestRepo repository.ContestRepository, leaderboards *service.LeaderboardService, interval time.Duration, logger *zap.Logger) *FreezeScheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &FreezeScheduler{
		contestRepo:  contestRepo,
		leaderboards: leaderboards,
		interval:     interval,
		logger:       logger,
	}
}

func (s *FreezeScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("freeze scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *FreezeScheduler) tick(ctx context.Context) {
	due, err := s.contestRepo.ListDueAutoFreeze(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list due auto-freezes", zap.Error(err))
		return
	}
	for _, contest := range due {
		if err := s.leaderboards.Freeze(ctx, contest.ID, model.RoleRoot); err != nil {
			// A concurrent manual freeze loses the race harmlessly.
			s.logger.Warn("scheduled freeze not applied",
				zap.String("contest_id", contest.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("scheduled freeze applied", zap.String("contest_id", contest.ID))
	}
}

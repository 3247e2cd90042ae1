package service

import (
	"context"
	"time"

	"codearena/internal/app/event"
	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"go.uber.org/zap"
)

// LeaderboardService recomputes standings on every read and owns the
// freeze/unfreeze switch. While a contest is frozen, non-staff viewers
// are served from the frozen snapshots; staff always see live data.
type LeaderboardService struct {
	contestRepo    repository.ContestRepository
	memberRepo     repository.MemberRepository
	submissionRepo repository.SubmissionRepository
	publisher      event.Publisher
	logger         *zap.Logger
	now            func() time.Time
}

func NewLeaderboardService(
	contestRepo repository.ContestRepository,
	memberRepo repository.MemberRepository,
	subRepo repository.SubmissionRepository,
	publisher event.Publisher,
	logger *zap.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		contestRepo:    contestRepo,
		memberRepo:     memberRepo,
		submissionRepo: subRepo,
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *LeaderboardService) Build(ctx context.Context, contestID string, viewerRole model.Role) (*model.Leaderboard, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, common.Errorf("contest not found: %w", err)
	}

	problems, err := s.contestRepo.ListProblemsByContest(ctx, contestID)
	if err != nil {
		return nil, common.Errorf("failed to list problems: %w", err)
	}
	contestants, err := s.memberRepo.ListContestants(ctx, contestID)
	if err != nil {
		return nil, common.Errorf("failed to list contestants: %w", err)
	}

	var entries []boardEntry
	useFrozen := s.servesFrozenView(contest, viewerRole)
	if useFrozen {
		frozen, err := s.submissionRepo.ListFrozenByContest(ctx, contestID)
		if err != nil {
			return nil, common.Errorf("failed to list frozen submissions: %w", err)
		}
		entries = frozenEntries(frozen)
	} else {
		subs, err := s.submissionRepo.ListByContest(ctx, contestID)
		if err != nil {
			return nil, common.Errorf("failed to list submissions: %w", err)
		}
		entries = liveEntries(subs)
	}

	board := buildLeaderboard(contest, problems, contestants, entries)
	board.GeneratedAt = s.now()
	if useFrozen {
		board.FrozenAt = contest.ManualFreezeAt
	}
	return board, nil
}

// BuildCell recomputes a single (member, problem) cell, for incremental
// UI pushes.
func (s *LeaderboardService) BuildCell(ctx context.Context, contestID, memberID, problemID string, viewerRole model.Role) (*model.Cell, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, common.Errorf("contest not found: %w", err)
	}
	problem, err := s.contestRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if problem.ContestID != contest.ID {
		return nil, common.Errorf("problem does not belong to contest: %w", common.ErrNotFound)
	}
	if _, err := s.memberRepo.FindByID(ctx, memberID); err != nil {
		return nil, common.Errorf("member not found: %w", err)
	}

	var entries []boardEntry
	if s.servesFrozenView(contest, viewerRole) {
		frozen, err := s.submissionRepo.ListFrozenByMemberProblem(ctx, memberID, problemID)
		if err != nil {
			return nil, common.Errorf("failed to list frozen submissions: %w", err)
		}
		entries = frozenEntries(frozen)
	} else {
		subs, err := s.submissionRepo.ListByMemberProblem(ctx, memberID, problemID)
		if err != nil {
			return nil, common.Errorf("failed to list submissions: %w", err)
		}
		entries = liveEntries(subs)
	}

	cell := computeCell(contest.StartAt, *problem, entries)
	return &cell, nil
}

// Freeze fixes the snapshots non-staff viewers read until unfreeze.
func (s *LeaderboardService) Freeze(ctx context.Context, contestID string, actorRole model.Role) error {
	if !security.Allowed(security.ResourceContestFreeze, actorRole) {
		return common.Errorf("role %s may not freeze a leaderboard: %w", actorRole, common.ErrForbidden)
	}

	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return common.Errorf("contest not found: %w", err)
	}
	if contest.IsFrozen(s.now()) {
		return common.Errorf("leaderboard is already frozen: %w", common.ErrConflict)
	}

	applied, err := s.contestRepo.SetManualFreeze(ctx, contestID, s.now())
	if err != nil {
		return common.Errorf("failed to freeze leaderboard: %w", err)
	}
	if !applied {
		return common.Errorf("leaderboard is already frozen: %w", common.ErrConflict)
	}

	s.logger.Info("leaderboard frozen", zap.String("contest_id", contestID))
	s.publish(model.EventLeaderboardFrozen, contestID)
	return nil
}

// Unfreeze makes the live view visible to everyone again. It is a pure
// data-source switch; the snapshots are resynced from the live rows so
// the next mirror lifecycle starts from current state.
func (s *LeaderboardService) Unfreeze(ctx context.Context, contestID string, actorRole model.Role) error {
	if !security.Allowed(security.ResourceContestFreeze, actorRole) {
		return common.Errorf("role %s may not unfreeze a leaderboard: %w", actorRole, common.ErrForbidden)
	}

	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return common.Errorf("contest not found: %w", err)
	}
	if !contest.IsFrozen(s.now()) {
		return common.Errorf("leaderboard is not frozen: %w", common.ErrConflict)
	}

	// Resync before the switch so frozen rows match live when the next
	// freeze begins.
	if err := s.submissionRepo.ResyncFrozenForContest(ctx, contestID); err != nil {
		return common.Errorf("failed to resync frozen snapshots: %w", err)
	}

	applied, err := s.contestRepo.ClearManualFreeze(ctx, contestID)
	if err != nil {
		return common.Errorf("failed to unfreeze leaderboard: %w", err)
	}
	if !applied {
		return common.Errorf("leaderboard is not frozen: %w", common.ErrConflict)
	}

	s.logger.Info("leaderboard unfrozen", zap.String("contest_id", contestID))
	s.publish(model.EventLeaderboardUnfrozen, contestID)
	return nil
}

func (s *LeaderboardService) servesFrozenView(contest *model.Contest, viewerRole model.Role) bool {
	if !contest.IsFrozen(s.now()) {
		return false
	}
	return !security.Allowed(security.ResourceLeaderboardLive, viewerRole)
}

func (s *LeaderboardService) publish(t model.EventType, contestID string) {
	s.publisher.Publish(model.Event{
		Type:      t,
		ContestID: contestID,
		EntityID:  contestID,
		At:        s.now(),
	})
}

package service

import (
	"context"
	"time"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ContestService struct {
	contestRepo repository.ContestRepository
}

func NewContestService(contestRepo repository.ContestRepository) *ContestService {
	return &ContestService{contestRepo: contestRepo}
}

type CreateContestRequest struct {
	Name         string     `json:"name"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	AutoFreezeAt *time.Time `json:"auto_freeze_at,omitempty"`
	Languages    []string   `json:"languages"`
}

func (s *ContestService) CreateContest(ctx context.Context, actorRole model.Role, req CreateContestRequest) (*model.Contest, error) {
	if !security.Allowed(security.ResourceContestManage, actorRole) {
		return nil, common.Errorf("role %s may not create contests: %w", actorRole, common.ErrForbidden)
	}
	if req.Name == "" {
		return nil, common.Errorf("contest name is required: %w", common.ErrValidation)
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, common.Errorf("contest must end after it starts: %w", common.ErrValidation)
	}
	if req.AutoFreezeAt != nil && (req.AutoFreezeAt.Before(req.StartAt) || req.AutoFreezeAt.After(req.EndAt)) {
		return nil, common.Errorf("auto freeze must fall within the contest window: %w", common.ErrValidation)
	}
	if len(req.Languages) == 0 {
		return nil, common.Errorf("at least one permitted language is required: %w", common.ErrValidation)
	}

	contest := &model.Contest{
		ID:           uuid.NewString(),
		Slug:         slug.Make(req.Name),
		Name:         req.Name,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		AutoFreezeAt: req.AutoFreezeAt,
		Languages:    req.Languages,
	}
	if err := s.contestRepo.CreateContest(ctx, contest); err != nil {
		return nil, common.Errorf("failed to create contest: %w", err)
	}
	return contest, nil
}

func (s *ContestService) GetContest(ctx context.Context, contestID string) (*model.Contest, error) {
	return s.contestRepo.FindContestByID(ctx, contestID)
}

func (s *ContestService) GetContestBySlug(ctx context.Context, contestSlug string) (*model.Contest, error) {
	return s.contestRepo.FindContestBySlug(ctx, contestSlug)
}

type AddProblemRequest struct {
	Letter string `json:"letter"`
	Title  string `json:"title"`
}

func (s *ContestService) AddProblem(ctx context.Context, actorRole model.Role, contestID string, req AddProblemRequest) (*model.Problem, error) {
	if !security.Allowed(security.ResourceContestManage, actorRole) {
		return nil, common.Errorf("role %s may not add problems: %w", actorRole, common.ErrForbidden)
	}
	if len(req.Letter) != 1 || req.Letter[0] < 'A' || req.Letter[0] > 'Z' {
		return nil, common.Errorf("problem letter must be a single uppercase letter: %w", common.ErrValidation)
	}
	if req.Title == "" {
		return nil, common.Errorf("problem title is required: %w", common.ErrValidation)
	}
	if _, err := s.contestRepo.FindContestByID(ctx, contestID); err != nil {
		return nil, common.Errorf("contest not found: %w", err)
	}

	problem := &model.Problem{
		ID:        uuid.NewString(),
		ContestID: contestID,
		Letter:    req.Letter,
		Title:     req.Title,
		Slug:      slug.Make(req.Title),
	}
	if err := s.contestRepo.CreateProblem(ctx, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}
	return problem, nil
}

func (s *ContestService) ListProblems(ctx context.Context, contestID string) ([]model.Problem, error) {
	if _, err := s.contestRepo.FindContestByID(ctx, contestID); err != nil {
		return nil, common.Errorf("contest not found: %w", err)
	}
	return s.contestRepo.ListProblemsByContest(ctx, contestID)
}

func (s *ContestService) SetAutoFreeze(ctx context.Context, actorRole model.Role, contestID string, at *time.Time) error {
	if !security.Allowed(security.ResourceContestFreeze, actorRole) {
		return common.Errorf("role %s may not schedule a freeze: %w", actorRole, common.ErrForbidden)
	}
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return common.Errorf("contest not found: %w", err)
	}
	if at != nil && (at.Before(contest.StartAt) || at.After(contest.EndAt)) {
		return common.Errorf("auto freeze must fall within the contest window: %w", common.ErrValidation)
	}
	return s.contestRepo.SetAutoFreeze(ctx, contestID, at)
}

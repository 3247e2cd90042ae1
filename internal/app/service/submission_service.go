package service

import (
	"context"
	"time"

	"codearena/internal/app/event"
	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCodeBytes = 64 << 10

// Enqueuer hands a submission id to the judging workers.
type Enqueuer interface {
	EnqueueJudging(ctx context.Context, submissionID string) error
}

// SubmissionService owns the submission lifecycle. It is the only
// writer of submission status; every transition goes through a
// compare-and-swap on the current status, so a late automatic verdict
// can never clobber a judge's manual decision.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	contestRepo    repository.ContestRepository
	memberRepo     repository.MemberRepository
	queue          Enqueuer
	publisher      event.Publisher
	logger         *zap.Logger
	now            func() time.Time
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	contestRepo repository.ContestRepository,
	memberRepo repository.MemberRepository,
	queue Enqueuer,
	publisher event.Publisher,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		contestRepo:    contestRepo,
		memberRepo:     memberRepo,
		queue:          queue,
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
	}
}

type CreateSubmissionRequest struct {
	ProblemID string `json:"problem_id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

func (s *SubmissionService) Create(ctx context.Context, memberID string, req CreateSubmissionRequest) (*model.Submission, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, common.Errorf("member not found: %w", err)
	}
	if member.Role != model.RoleContestant || member.ContestID == nil {
		return nil, common.Errorf("only contestants may submit: %w", common.ErrForbidden)
	}

	contest, err := s.contestRepo.FindContestByID(ctx, *member.ContestID)
	if err != nil {
		return nil, common.Errorf("contest not found: %w", err)
	}
	if !contest.IsActive(s.now()) {
		return nil, common.Errorf("contest is not active: %w", common.ErrForbidden)
	}

	problem, err := s.contestRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if problem.ContestID != contest.ID {
		return nil, common.Errorf("problem does not belong to contest: %w", common.ErrNotFound)
	}

	if !contest.PermitsLanguage(req.Language) {
		return nil, common.Errorf("language %q is not permitted in this contest: %w", req.Language, common.ErrValidation)
	}
	if req.Code == "" || len(req.Code) > maxCodeBytes {
		return nil, common.Errorf("submission code is empty or too large: %w", common.ErrValidation)
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		ContestID: contest.ID,
		MemberID:  member.ID,
		ProblemID: problem.ID,
		Language:  req.Language,
		Code:      req.Code,
		Status:    model.StatusJudging,
		Answer:    model.AnswerNone,
		CreatedAt: s.now(),
	}

	// Inserts the live row and its frozen snapshot atomically.
	if err := s.submissionRepo.CreateSubmission(ctx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}

	s.publish(model.EventSubmissionCreated, submission.ContestID, submission.ID)

	if err := s.queue.EnqueueJudging(ctx, submission.ID); err != nil {
		return nil, common.Errorf("failed to enqueue judging job: %w", err)
	}

	s.logger.Info("submission created",
		zap.String("submission_id", submission.ID),
		zap.String("member_id", member.ID),
		zap.String("problem_id", problem.ID))
	return submission, nil
}

// UpdateAnswer records a verdict. Without force, a submission that has
// already left JUDGING is not touched: the stale automatic result is
// silently discarded and no event is emitted.
func (s *SubmissionService) UpdateAnswer(ctx context.Context, submissionID string, answer model.Answer, force bool) error {
	if answer == model.AnswerNone {
		return common.Errorf("NO_ANSWER is not a settable verdict: %w", common.ErrValidation)
	}

	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return common.Errorf("submission not found: %w", err)
	}

	if force {
		if err := s.submissionRepo.SetSubmissionState(ctx, submissionID, model.StatusJudged, answer); err != nil {
			return common.Errorf("failed to set submission state: %w", err)
		}
	} else {
		applied, err := s.submissionRepo.UpdateSubmissionStatusCAS(ctx, submissionID, model.StatusJudging, model.StatusJudged, answer)
		if err != nil {
			return common.Errorf("failed to update submission status: %w", err)
		}
		if !applied {
			s.logger.Info("stale verdict skipped, submission no longer judging",
				zap.String("submission_id", submissionID),
				zap.String("answer", string(answer)))
			return nil
		}
	}

	if err := s.mirrorIfUnfrozen(ctx, sub.ContestID, submissionID); err != nil {
		return err
	}
	s.publish(model.EventSubmissionUpdated, sub.ContestID, submissionID)
	return nil
}

// MarkFailed transitions a JUDGING submission to FAILED. Anything else
// is a no-op: a judging failure arriving after a manual override must
// not clobber the judge's decision.
func (s *SubmissionService) MarkFailed(ctx context.Context, submissionID string) error {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return common.Errorf("submission not found: %w", err)
	}

	applied, err := s.submissionRepo.UpdateSubmissionStatusCAS(ctx, submissionID, model.StatusJudging, model.StatusFailed, model.AnswerNone)
	if err != nil {
		return common.Errorf("failed to mark submission failed: %w", err)
	}
	if !applied {
		s.logger.Info("mark-failed skipped, submission no longer judging",
			zap.String("submission_id", submissionID))
		return nil
	}

	if err := s.mirrorIfUnfrozen(ctx, sub.ContestID, submissionID); err != nil {
		return err
	}
	s.publish(model.EventSubmissionUpdated, sub.ContestID, submissionID)
	return nil
}

// Rerun returns a terminal submission to JUDGING for re-evaluation.
// Any in-flight verdict for the previous round is invalidated by the
// write-time status check.
func (s *SubmissionService) Rerun(ctx context.Context, submissionID string, actorRole model.Role) error {
	if !security.Allowed(security.ResourceSubmissionRerun, actorRole) {
		return common.Errorf("role %s may not rerun submissions: %w", actorRole, common.ErrForbidden)
	}

	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return common.Errorf("submission not found: %w", err)
	}
	if sub.Status == model.StatusJudging {
		return common.Errorf("submission %s is already being judged: %w", submissionID, common.ErrConflict)
	}

	applied, err := s.submissionRepo.UpdateSubmissionStatusCAS(ctx, submissionID, sub.Status, model.StatusJudging, model.AnswerNone)
	if err != nil {
		return common.Errorf("failed to reset submission for rerun: %w", err)
	}
	if !applied {
		return common.Errorf("submission %s changed state during rerun: %w", submissionID, common.ErrConflict)
	}

	if err := s.mirrorIfUnfrozen(ctx, sub.ContestID, submissionID); err != nil {
		return err
	}
	s.publish(model.EventSubmissionUpdated, sub.ContestID, submissionID)
	s.publish(model.EventSubmissionRerunRequested, sub.ContestID, submissionID)

	if err := s.queue.EnqueueJudging(ctx, submissionID); err != nil {
		return common.Errorf("failed to enqueue rerun job: %w", err)
	}
	return nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, submissionID, viewerID string, viewerRole model.Role) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.MemberID != viewerID && !security.Allowed(security.ResourceSubmissionCode, viewerRole) {
		sub.Code = ""
	}
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, memberID string, limit, offset int) ([]model.Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.submissionRepo.ListByMember(ctx, memberID, limit, offset)
}

// mirrorIfUnfrozen keeps the frozen snapshot in lockstep with the live
// row until a freeze fixes it. While the contest is frozen the snapshot
// is left untouched; unfreeze resyncs it.
func (s *SubmissionService) mirrorIfUnfrozen(ctx context.Context, contestID, submissionID string) error {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return common.Errorf("contest not found for snapshot mirror: %w", err)
	}
	if contest.IsFrozen(s.now()) {
		return nil
	}
	if err := s.submissionRepo.SyncFrozenSubmission(ctx, submissionID); err != nil {
		return common.Errorf("failed to mirror frozen snapshot: %w", err)
	}
	return nil
}

func (s *SubmissionService) publish(t model.EventType, contestID, entityID string) {
	s.publisher.Publish(model.Event{
		Type:      t,
		ContestID: contestID,
		EntityID:  entityID,
		At:        s.now(),
	})
}

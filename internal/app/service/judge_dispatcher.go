package service

import (
	"context"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"go.uber.org/zap"
)

// Runner is the external sandboxed execution service.
type Runner interface {
	Run(ctx context.Context, sub *model.Submission) (model.Answer, error)
}

// JudgeDispatcher orchestrates one judging attempt. It re-checks the
// submission status before dispatching and relies on the state
// machine's write-time check afterwards; a manual judge verdict landing
// anywhere in between simply wins.
type JudgeDispatcher struct {
	submissionRepo repository.SubmissionRepository
	submissions    *SubmissionService
	runner         Runner
	logger         *zap.Logger
}

func NewJudgeDispatcher(
	subRepo repository.SubmissionRepository,
	submissions *SubmissionService,
	runner Runner,
	logger *zap.Logger,
) *JudgeDispatcher {
	return &JudgeDispatcher{
		submissionRepo: subRepo,
		submissions:    submissions,
		runner:         runner,
		logger:         logger,
	}
}

// Dispatch runs a single judging attempt for the submission. Runner
// failures transition the submission to FAILED and are returned to the
// caller for observability only; they never reach a request context.
func (d *JudgeDispatcher) Dispatch(ctx context.Context, submissionID string) error {
	sub, err := d.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return common.Errorf("submission %s not found for judging: %w", submissionID, err)
	}
	if sub.Status != model.StatusJudging {
		d.logger.Info("skipping judging run, submission no longer judging",
			zap.String("submission_id", submissionID),
			zap.String("status", string(sub.Status)))
		return nil
	}

	answer, err := d.runner.Run(ctx, sub)
	if err != nil {
		if failErr := d.submissions.MarkFailed(ctx, submissionID); failErr != nil {
			d.logger.Error("failed to mark submission failed after runner error",
				zap.String("submission_id", submissionID),
				zap.Error(failErr))
		}
		return common.Errorf("runner failed for submission %s: %v: %w", submissionID, err, common.ErrRunnerFailure)
	}

	return d.submissions.UpdateAnswer(ctx, submissionID, answer, false)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

type SubmissionRepository interface {
	// CreateSubmission inserts the submission and its paired frozen
	// snapshot atomically.
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)

	// UpdateSubmissionStatusCAS writes (status, answer) only if the
	// current status equals expected, reporting whether it applied.
	// This check-then-write is the sole concurrency control on
	// submission transitions.
	UpdateSubmissionStatusCAS(ctx context.Context, id string, expected, status model.SubmissionStatus, answer model.Answer) (bool, error)
	// SetSubmissionState writes unconditionally (forced judge override, rerun).
	SetSubmissionState(ctx context.Context, id string, status model.SubmissionStatus, answer model.Answer) error

	// SyncFrozenSubmission copies the live status/answer into the frozen
	// snapshot; ResyncFrozenForContest does the same for a whole contest
	// (used on unfreeze to begin the next mirror lifecycle).
	SyncFrozenSubmission(ctx context.Context, id string) error
	ResyncFrozenForContest(ctx context.Context, contestID string) error

	ListByContest(ctx context.Context, contestID string) ([]model.Submission, error)
	ListFrozenByContest(ctx context.Context, contestID string) ([]model.FrozenSubmission, error)
	ListByMemberProblem(ctx context.Context, memberID, problemID string) ([]model.Submission, error)
	ListFrozenByMemberProblem(ctx context.Context, memberID, problemID string) ([]model.FrozenSubmission, error)
	ListByMember(ctx context.Context, memberID string, limit, offset int) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission begin: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO submissions (id, contest_id, member_id, problem_id, language, code, status, answer, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, query, sub.ID, sub.ContestID, sub.MemberID, sub.ProblemID,
		sub.Language, sub.Code, sub.Status, sub.Answer, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}

	frozenQuery := `INSERT INTO frozen_submissions (submission_id, contest_id, member_id, problem_id, status, answer, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.ExecContext(ctx, frozenQuery, sub.ID, sub.ContestID, sub.MemberID, sub.ProblemID,
		sub.Status, sub.Answer, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission frozen snapshot: %w", err)
	}

	return tx.Commit()
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, contest_id, member_id, problem_id, language, code, status, answer, created_at, updated_at
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.ContestID, &sub.MemberID, &sub.ProblemID, &sub.Language, &sub.Code,
		&sub.Status, &sub.Answer, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) UpdateSubmissionStatusCAS(ctx context.Context, id string, expected, status model.SubmissionStatus, answer model.Answer) (bool, error) {
	query := `UPDATE submissions SET status = $1, answer = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, status, answer, id, expected)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.UpdateSubmissionStatusCAS: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.UpdateSubmissionStatusCAS rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) SetSubmissionState(ctx context.Context, id string, status model.SubmissionStatus, answer model.Answer) error {
	query := `UPDATE submissions SET status = $1, answer = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, answer, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.SetSubmissionState: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.SetSubmissionState rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSubmissionRepository) SyncFrozenSubmission(ctx context.Context, id string) error {
	query := `UPDATE frozen_submissions fs SET status = s.status, answer = s.answer
	          FROM submissions s WHERE s.id = $1 AND fs.submission_id = s.id`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("pgSubmissionRepository.SyncFrozenSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) ResyncFrozenForContest(ctx context.Context, contestID string) error {
	query := `UPDATE frozen_submissions fs SET status = s.status, answer = s.answer
	          FROM submissions s WHERE fs.contest_id = $1 AND fs.submission_id = s.id`
	if _, err := r.db.ExecContext(ctx, query, contestID); err != nil {
		return fmt.Errorf("pgSubmissionRepository.ResyncFrozenForContest: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) ListByContest(ctx context.Context, contestID string) ([]model.Submission, error) {
	query := `SELECT id, contest_id, member_id, problem_id, language, status, answer, created_at, updated_at
	          FROM submissions WHERE contest_id = $1 ORDER BY created_at ASC`
	return r.listSubmissions(ctx, query, contestID)
}

func (r *pgSubmissionRepository) ListByMemberProblem(ctx context.Context, memberID, problemID string) ([]model.Submission, error) {
	query := `SELECT id, contest_id, member_id, problem_id, language, status, answer, created_at, updated_at
	          FROM submissions WHERE member_id = $1 AND problem_id = $2 ORDER BY created_at ASC`
	return r.listSubmissions(ctx, query, memberID, problemID)
}

func (r *pgSubmissionRepository) ListByMember(ctx context.Context, memberID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT id, contest_id, member_id, problem_id, language, status, answer, created_at, updated_at
	          FROM submissions WHERE member_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.listSubmissions(ctx, query, memberID, limit, offset)
}

func (r *pgSubmissionRepository) listSubmissions(ctx context.Context, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.listSubmissions query: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.ContestID, &s.MemberID, &s.ProblemID, &s.Language,
			&s.Status, &s.Answer, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.listSubmissions scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.listSubmissions rows.Err: %w", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) ListFrozenByContest(ctx context.Context, contestID string) ([]model.FrozenSubmission, error) {
	query := `SELECT submission_id, contest_id, member_id, problem_id, status, answer, created_at
	          FROM frozen_submissions WHERE contest_id = $1 ORDER BY created_at ASC`
	return r.listFrozen(ctx, query, contestID)
}

func (r *pgSubmissionRepository) ListFrozenByMemberProblem(ctx context.Context, memberID, problemID string) ([]model.FrozenSubmission, error) {
	query := `SELECT submission_id, contest_id, member_id, problem_id, status, answer, created_at
	          FROM frozen_submissions WHERE member_id = $1 AND problem_id = $2 ORDER BY created_at ASC`
	return r.listFrozen(ctx, query, memberID, problemID)
}

func (r *pgSubmissionRepository) listFrozen(ctx context.Context, query string, args ...interface{}) ([]model.FrozenSubmission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.listFrozen query: %w", err)
	}
	defer rows.Close()

	var frozen []model.FrozenSubmission
	for rows.Next() {
		var f model.FrozenSubmission
		if err := rows.Scan(&f.SubmissionID, &f.ContestID, &f.MemberID, &f.ProblemID,
			&f.Status, &f.Answer, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.listFrozen scan: %w", err)
		}
		frozen = append(frozen, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.listFrozen rows.Err: %w", err)
	}
	return frozen, nil
}

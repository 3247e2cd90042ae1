package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ContestRepository interface {
	CreateContest(ctx context.Context, contest *model.Contest) error
	FindContestByID(ctx context.Context, id string) (*model.Contest, error)
	FindContestBySlug(ctx context.Context, slug string) (*model.Contest, error)

	// SetManualFreeze sets manual_freeze_at only if it is currently unset;
	// ClearManualFreeze clears it only if currently set. Both report
	// whether the write applied.
	SetManualFreeze(ctx context.Context, contestID string, frozenAt time.Time) (bool, error)
	ClearManualFreeze(ctx context.Context, contestID string) (bool, error)

	SetAutoFreeze(ctx context.Context, contestID string, at *time.Time) error
	ListDueAutoFreeze(ctx context.Context, now time.Time) ([]model.Contest, error)

	CreateProblem(ctx context.Context, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	ListProblemsByContest(ctx context.Context, contestID string) ([]model.Problem, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `id, slug, name, start_at, end_at, manual_freeze_at, auto_freeze_at, languages, created_at, updated_at`

func (r *pgContestRepository) CreateContest(ctx context.Context, c *model.Contest) error {
	query := `INSERT INTO contests (id, slug, name, start_at, end_at, auto_freeze_at, languages)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	langs := strings.Join(c.Languages, ",")

	_, err := r.db.ExecContext(ctx, query, c.ID, c.Slug, c.Name, c.StartAt, c.EndAt, c.AutoFreezeAt, langs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique constraint for slug
			return fmt.Errorf("contest with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.CreateContest: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	return r.findContest(ctx, `WHERE id = $1`, id)
}

func (r *pgContestRepository) FindContestBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	return r.findContest(ctx, `WHERE slug = $1`, slug)
}

func (r *pgContestRepository) findContest(ctx context.Context, where string, arg interface{}) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests ` + where

	contest := &model.Contest{}
	var langs string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&contest.ID, &contest.Slug, &contest.Name, &contest.StartAt, &contest.EndAt,
		&contest.ManualFreezeAt, &contest.AutoFreezeAt, &langs,
		&contest.CreatedAt, &contest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.findContest: %w", err)
	}
	if langs != "" {
		contest.Languages = strings.Split(langs, ",")
	}
	return contest, nil
}

func (r *pgContestRepository) SetManualFreeze(ctx context.Context, contestID string, frozenAt time.Time) (bool, error) {
	query := `UPDATE contests SET manual_freeze_at = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND manual_freeze_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, frozenAt, contestID)
	if err != nil {
		return false, fmt.Errorf("pgContestRepository.SetManualFreeze: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgContestRepository.SetManualFreeze rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *pgContestRepository) ClearManualFreeze(ctx context.Context, contestID string) (bool, error) {
	query := `UPDATE contests SET manual_freeze_at = NULL, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND manual_freeze_at IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, contestID)
	if err != nil {
		return false, fmt.Errorf("pgContestRepository.ClearManualFreeze: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgContestRepository.ClearManualFreeze rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *pgContestRepository) SetAutoFreeze(ctx context.Context, contestID string, at *time.Time) error {
	query := `UPDATE contests SET auto_freeze_at = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, contestID)
	if err != nil {
		return fmt.Errorf("pgContestRepository.SetAutoFreeze: %w", err)
	}
	return nil
}

func (r *pgContestRepository) ListDueAutoFreeze(ctx context.Context, now time.Time) ([]model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests
	          WHERE auto_freeze_at IS NOT NULL AND auto_freeze_at <= $1
	            AND manual_freeze_at IS NULL AND end_at > $1`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListDueAutoFreeze query: %w", err)
	}
	defer rows.Close()

	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		var langs string
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.StartAt, &c.EndAt,
			&c.ManualFreezeAt, &c.AutoFreezeAt, &langs, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListDueAutoFreeze scan: %w", err)
		}
		if langs != "" {
			c.Languages = strings.Split(langs, ",")
		}
		contests = append(contests, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListDueAutoFreeze rows.Err: %w", err)
	}
	return contests, nil
}

func (r *pgContestRepository) CreateProblem(ctx context.Context, p *model.Problem) error {
	query := `INSERT INTO problems (id, contest_id, letter, title, slug)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.ContestID, p.Letter, p.Title, p.Slug)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique (contest_id, letter)
			return fmt.Errorf("problem with this letter already exists in contest: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT id, contest_id, letter, title, slug, created_at FROM problems WHERE id = $1`
	problem := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&problem.ID, &problem.ContestID, &problem.Letter, &problem.Title, &problem.Slug, &problem.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindProblemByID: %w", err)
	}
	return problem, nil
}

func (r *pgContestRepository) ListProblemsByContest(ctx context.Context, contestID string) ([]model.Problem, error) {
	query := `SELECT id, contest_id, letter, title, slug, created_at
	          FROM problems WHERE contest_id = $1 ORDER BY letter ASC`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListProblemsByContest query: %w", err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.ContestID, &p.Letter, &p.Title, &p.Slug, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListProblemsByContest scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListProblemsByContest rows.Err: %w", err)
	}
	return problems, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, id string) (*model.Member, error)
	FindByUsername(ctx context.Context, username string) (*model.Member, error)
	ListContestants(ctx context.Context, contestID string) ([]model.Member, error)
}

type pgMemberRepository struct {
	db *sql.DB
}

func NewPgMemberRepository(db *sql.DB) MemberRepository {
	return &pgMemberRepository{db: db}
}

func (r *pgMemberRepository) Create(ctx context.Context, m *model.Member) error {
	query := `INSERT INTO members (id, contest_id, username, name, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.ContestID, m.Username, m.Name, m.HashedPassword, m.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique constraint violation
			return fmt.Errorf("member with given username already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgMemberRepository.Create: %w", err)
	}
	return nil
}

func (r *pgMemberRepository) FindByID(ctx context.Context, id string) (*model.Member, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *pgMemberRepository) FindByUsername(ctx context.Context, username string) (*model.Member, error) {
	return r.findOne(ctx, `WHERE username = $1`, username)
}

func (r *pgMemberRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.Member, error) {
	query := `SELECT id, contest_id, username, name, hashed_password, role, created_at
	          FROM members ` + where
	member := &model.Member{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&member.ID, &member.ContestID, &member.Username, &member.Name,
		&member.HashedPassword, &member.Role, &member.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgMemberRepository.findOne: %w", err)
	}
	return member, nil
}

func (r *pgMemberRepository) ListContestants(ctx context.Context, contestID string) ([]model.Member, error) {
	query := `SELECT id, contest_id, username, name, hashed_password, role, created_at
	          FROM members WHERE contest_id = $1 AND role = $2 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, contestID, model.RoleContestant)
	if err != nil {
		return nil, fmt.Errorf("pgMemberRepository.ListContestants query: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.ContestID, &m.Username, &m.Name, &m.HashedPassword, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgMemberRepository.ListContestants scan: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgMemberRepository.ListContestants rows.Err: %w", err)
	}
	return members, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	memberRepo repository.MemberRepository
}

func NewAuthService(memberRepo repository.MemberRepository) *AuthService {
	return &AuthService{memberRepo: memberRepo}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token  string        `json:"token"`
	Member *model.Member `json:"member"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.Errorf("username and password are required: %w", common.ErrValidation)
	}

	member, err := s.memberRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("invalid credentials: %w", common.ErrUnauthorized)
		}
		return nil, common.Errorf("failed to look up member: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.HashedPassword), []byte(req.Password)); err != nil {
		return nil, common.Errorf("invalid credentials: %w", common.ErrUnauthorized)
	}

	contestID := ""
	if member.ContestID != nil {
		contestID = *member.ContestID
	}
	token, err := security.GenerateToken(member.ID, string(member.Role), contestID)
	if err != nil {
		return nil, common.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{Token: token, Member: member}, nil
}

type CreateMemberRequest struct {
	ContestID string     `json:"contest_id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role"`
}

func (s *AuthService) CreateMember(ctx context.Context, actorRole model.Role, req CreateMemberRequest) (*model.Member, error) {
	if !security.Allowed(security.ResourceMemberCreate, actorRole) {
		return nil, common.Errorf("role %s may not create members: %w", actorRole, common.ErrForbidden)
	}
	if req.Username == "" || req.Name == "" || len(req.Password) < 8 {
		return nil, common.Errorf("username, name and a password of at least 8 characters are required: %w", common.ErrValidation)
	}
	switch req.Role {
	case model.RoleRoot, model.RoleAdmin, model.RoleJudge, model.RoleContestant:
	default:
		return nil, common.Errorf("unknown role %q: %w", req.Role, common.ErrValidation)
	}
	if req.Role != model.RoleRoot && req.ContestID == "" {
		return nil, common.Errorf("contest_id is required for non-root members: %w", common.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.Errorf("failed to hash password: %w", err)
	}

	member := &model.Member{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Name:           req.Name,
		HashedPassword: string(hashed),
		Role:           req.Role,
		CreatedAt:      time.Now(),
	}
	if req.ContestID != "" {
		contestID := req.ContestID
		member.ContestID = &contestID
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, common.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

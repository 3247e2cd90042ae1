package middleware

import (
	"context"
	"net/http"
	"strings"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	MemberIDCtxKey  contextKey = "memberID"
	RoleCtxKey      contextKey = "role"
	ContestIDCtxKey contextKey = "contestID"
)

func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}
		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		memberID, err := security.GetMemberIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		role, err := security.GetRoleFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		contestID, err := security.GetContestIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), MemberIDCtxKey, memberID)
		ctx = context.WithValue(ctx, RoleCtxKey, model.Role(role))
		ctx = context.WithValue(ctx, ContestIDCtxKey, contestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require gates a route on the startup-validated policy table.
func Require(resource security.Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(RoleCtxKey).(model.Role)
			if !ok || !security.Allowed(resource, role) {
				common.RespondWithError(w, http.StatusForbidden, "Insufficient role for "+string(resource))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetMemberIDFromContext(ctx context.Context) (string, bool) {
	memberID, ok := ctx.Value(MemberIDCtxKey).(string)
	return memberID, ok
}

func GetRoleFromContext(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(RoleCtxKey).(model.Role)
	return role, ok
}

// ViewerRole resolves the role for public routes where a token is
// optional. Anonymous viewers get the empty role, which the policy
// table treats as non-staff.
func ViewerRole(r *http.Request) model.Role {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return ""
	}
	role, err := security.GetRoleFromClaims(claims)
	if err != nil {
		return ""
	}
	return model.Role(role)
}

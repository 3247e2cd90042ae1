package security

import (
	"errors"
	"time"

	"codearena/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

func GenerateToken(memberID, role, contestID string) (string, error) {
	claims := jwt.MapClaims{
		"member_id":  memberID,
		"role":       role,
		"contest_id": contestID,
		"exp":        time.Now().Add(config.AppConfig.JWTExp).Unix(),
		"iat":        time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

func GetMemberIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["member_id"].(string)
	if !ok {
		return "", errors.New("member_id claim is missing or not a string")
	}
	return id, nil
}

func GetRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}

func GetContestIDFromClaims(claims jwt.MapClaims) (string, error) {
	// Empty for contest-agnostic ROOT accounts.
	id, ok := claims["contest_id"].(string)
	if !ok {
		return "", errors.New("contest_id claim is missing or not a string")
	}
	return id, nil
}

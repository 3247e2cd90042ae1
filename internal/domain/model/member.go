package model

import "time"

type Role string

const (
	RoleRoot       Role = "ROOT"
	RoleAdmin      Role = "ADMIN"
	RoleJudge      Role = "JUDGE"
	RoleContestant Role = "CONTESTANT"
)

// IsStaff reports whether the role always sees live standings,
// freeze or not.
func (r Role) IsStaff() bool {
	return r == RoleRoot || r == RoleAdmin || r == RoleJudge
}

type Member struct {
	ID             string    `json:"id"`
	ContestID      *string   `json:"contest_id,omitempty"` // nil for contest-agnostic ROOT
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

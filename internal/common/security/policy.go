package security

import (
	"fmt"

	"codearena/internal/domain/model"
)

// Resource names an action gated by role.
type Resource string

const (
	ResourceSubmissionCreate Resource = "submission.create"
	ResourceSubmissionRerun  Resource = "submission.rerun"
	ResourceSubmissionCode   Resource = "submission.code"
	ResourceContestManage    Resource = "contest.manage"
	ResourceContestFreeze    Resource = "contest.freeze"
	ResourceMemberCreate     Resource = "member.create"
	ResourceLeaderboardLive  Resource = "leaderboard.live"
)

var allResources = []Resource{
	ResourceSubmissionCreate,
	ResourceSubmissionRerun,
	ResourceSubmissionCode,
	ResourceContestManage,
	ResourceContestFreeze,
	ResourceMemberCreate,
	ResourceLeaderboardLive,
}

var allRoles = []model.Role{model.RoleRoot, model.RoleAdmin, model.RoleJudge, model.RoleContestant}

type policyKey struct {
	Resource Resource
	Role     model.Role
}

// policy is the full (resource, role) -> allow table. Every pair must be
// present; ValidatePolicy checks this at startup so a new resource or
// role cannot silently fall through to deny.
var policy = map[policyKey]bool{
	{ResourceSubmissionCreate, model.RoleRoot}:       false,
	{ResourceSubmissionCreate, model.RoleAdmin}:      false,
	{ResourceSubmissionCreate, model.RoleJudge}:      false,
	{ResourceSubmissionCreate, model.RoleContestant}: true,

	{ResourceSubmissionRerun, model.RoleRoot}:       true,
	{ResourceSubmissionRerun, model.RoleAdmin}:      true,
	{ResourceSubmissionRerun, model.RoleJudge}:      true,
	{ResourceSubmissionRerun, model.RoleContestant}: false,

	{ResourceSubmissionCode, model.RoleRoot}:       true,
	{ResourceSubmissionCode, model.RoleAdmin}:      true,
	{ResourceSubmissionCode, model.RoleJudge}:      true,
	{ResourceSubmissionCode, model.RoleContestant}: false,

	{ResourceContestManage, model.RoleRoot}:       true,
	{ResourceContestManage, model.RoleAdmin}:      true,
	{ResourceContestManage, model.RoleJudge}:      false,
	{ResourceContestManage, model.RoleContestant}: false,

	{ResourceContestFreeze, model.RoleRoot}:       true,
	{ResourceContestFreeze, model.RoleAdmin}:      true,
	{ResourceContestFreeze, model.RoleJudge}:      false,
	{ResourceContestFreeze, model.RoleContestant}: false,

	{ResourceMemberCreate, model.RoleRoot}:       true,
	{ResourceMemberCreate, model.RoleAdmin}:      true,
	{ResourceMemberCreate, model.RoleJudge}:      false,
	{ResourceMemberCreate, model.RoleContestant}: false,

	{ResourceLeaderboardLive, model.RoleRoot}:       true,
	{ResourceLeaderboardLive, model.RoleAdmin}:      true,
	{ResourceLeaderboardLive, model.RoleJudge}:      true,
	{ResourceLeaderboardLive, model.RoleContestant}: false,
}

// Allowed reports whether role may act on resource. Unknown pairs deny.
func Allowed(resource Resource, role model.Role) bool {
	return policy[policyKey{resource, role}]
}

// ValidatePolicy verifies the table is exhaustive. Called once in main.
func ValidatePolicy() error {
	for _, res := range allResources {
		for _, role := range allRoles {
			if _, ok := policy[policyKey{res, role}]; !ok {
				return fmt.Errorf("policy table missing entry for (%s, %s)", res, role)
			}
		}
	}
	return nil
}

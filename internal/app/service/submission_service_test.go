package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/platform/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	config.Load()
	security.InitJWT()
	m.Run()
}

type testEnv struct {
	subs     *fakeSubmissionRepo
	contests *fakeContestRepo
	members  *fakeMemberRepo
	queue    *fakeQueue
	pub      *capturePublisher

	nowAt time.Time

	submissions  *SubmissionService
	leaderboards *LeaderboardService

	contest *model.Contest
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		subs:     newFakeSubmissionRepo(),
		contests: newFakeContestRepo(),
		members:  newFakeMemberRepo(),
		queue:    &fakeQueue{},
		pub:      &capturePublisher{},
		nowAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	logger := zap.NewNop()
	clock := func() time.Time { return env.nowAt }

	env.submissions = NewSubmissionService(env.subs, env.contests, env.members, env.queue, env.pub, logger)
	env.submissions.now = clock
	env.leaderboards = NewLeaderboardService(env.contests, env.members, env.subs, env.pub, logger)
	env.leaderboards.now = clock

	env.contest = &model.Contest{
		ID:        uuid.NewString(),
		Slug:      "spring-open",
		Name:      "Spring Open",
		StartAt:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		EndAt:     time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		Languages: []string{"go", "cpp"},
	}
	require.NoError(t, env.contests.CreateContest(context.Background(), env.contest))
	return env
}

func (env *testEnv) addProblem(t *testing.T, letter string) *model.Problem {
	t.Helper()
	p := &model.Problem{
		ID:        uuid.NewString(),
		ContestID: env.contest.ID,
		Letter:    letter,
		Title:     "Problem " + letter,
		Slug:      "problem-" + letter,
	}
	require.NoError(t, env.contests.CreateProblem(context.Background(), p))
	return p
}

func (env *testEnv) addContestant(t *testing.T, name string) *model.Member {
	t.Helper()
	contestID := env.contest.ID
	m := &model.Member{
		ID:        uuid.NewString(),
		ContestID: &contestID,
		Username:  name,
		Name:      name,
		Role:      model.RoleContestant,
	}
	require.NoError(t, env.members.Create(context.Background(), m))
	return m
}

func (env *testEnv) submit(t *testing.T, member *model.Member, problem *model.Problem) *model.Submission {
	t.Helper()
	sub, err := env.submissions.Create(context.Background(), member.ID, CreateSubmissionRequest{
		ProblemID: problem.ID,
		Language:  "go",
		Code:      "package main",
	})
	require.NoError(t, err)
	return sub
}

func (env *testEnv) frozenFor(t *testing.T, submissionID string) model.FrozenSubmission {
	t.Helper()
	frozen, err := env.subs.ListFrozenByContest(context.Background(), env.contest.ID)
	require.NoError(t, err)
	for _, f := range frozen {
		if f.SubmissionID == submissionID {
			return f
		}
	}
	t.Fatalf("no frozen snapshot for submission %s", submissionID)
	return model.FrozenSubmission{}
}

func TestCreateSubmission(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")

		sub := env.submit(t, alice, problem)

		assert.Equal(t, model.StatusJudging, sub.Status)
		assert.Equal(t, model.AnswerNone, sub.Answer)
		assert.Equal(t, []string{sub.ID}, env.queue.enqueued())
		assert.Len(t, env.pub.byType(model.EventSubmissionCreated), 1)

		// The frozen snapshot is created alongside the live row.
		f := env.frozenFor(t, sub.ID)
		assert.Equal(t, model.StatusJudging, f.Status)
	})

	t.Run("Error_NonContestant", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		contestID := env.contest.ID
		judge := &model.Member{ID: uuid.NewString(), ContestID: &contestID, Username: "judge", Name: "judge", Role: model.RoleJudge}
		require.NoError(t, env.members.Create(context.Background(), judge))

		_, err := env.submissions.Create(context.Background(), judge.ID, CreateSubmissionRequest{
			ProblemID: problem.ID, Language: "go", Code: "x",
		})
		assert.True(t, errors.Is(err, common.ErrForbidden))
	})

	t.Run("Error_ContestNotActive", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		env.nowAt = env.contest.EndAt.Add(time.Minute)

		_, err := env.submissions.Create(context.Background(), alice.ID, CreateSubmissionRequest{
			ProblemID: problem.ID, Language: "go", Code: "x",
		})
		assert.True(t, errors.Is(err, common.ErrForbidden))
	})

	t.Run("Error_LanguageNotPermitted", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")

		_, err := env.submissions.Create(context.Background(), alice.ID, CreateSubmissionRequest{
			ProblemID: problem.ID, Language: "brainfuck", Code: "x",
		})
		assert.True(t, errors.Is(err, common.ErrValidation))
	})

	t.Run("Error_EmptyCode", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")

		_, err := env.submissions.Create(context.Background(), alice.ID, CreateSubmissionRequest{
			ProblemID: problem.ID, Language: "go", Code: "",
		})
		assert.True(t, errors.Is(err, common.ErrValidation))
	})
}

func TestUpdateAnswer(t *testing.T) {
	t.Run("AppliesVerdict", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		err := env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerAccepted, false)
		require.NoError(t, err)

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusJudged, got.Status)
		assert.Equal(t, model.AnswerAccepted, got.Answer)

		// Mirrored into the snapshot while the contest is not frozen.
		f := env.frozenFor(t, sub.ID)
		assert.Equal(t, model.AnswerAccepted, f.Answer)
		assert.Len(t, env.pub.byType(model.EventSubmissionUpdated), 1)
	})

	t.Run("Error_NoAnswerVerdict", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		err := env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerNone, false)
		assert.True(t, errors.Is(err, common.ErrValidation))
		err = env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerNone, true)
		assert.True(t, errors.Is(err, common.ErrValidation))
	})

	t.Run("StaleVerdictIsSilentlyDropped", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		// A judge decides first.
		require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerWrongAnswer, true))

		// The automatic verdict for the same round arrives late: no error,
		// no state change, no event.
		before := len(env.pub.byType(model.EventSubmissionUpdated))
		err := env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerAccepted, false)
		require.NoError(t, err)

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AnswerWrongAnswer, got.Answer)
		assert.Len(t, env.pub.byType(model.EventSubmissionUpdated), before)
	})

	t.Run("ForceOverridesTerminalState", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerWrongAnswer, false))
		require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerAccepted, true))

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusJudged, got.Status)
		assert.Equal(t, model.AnswerAccepted, got.Answer)
	})
}

func TestMarkFailed(t *testing.T) {
	t.Run("TransitionsJudging", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		require.NoError(t, env.submissions.MarkFailed(context.Background(), sub.ID))

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, got.Status)
		assert.Equal(t, model.AnswerNone, got.Answer)
	})

	t.Run("NoOpAfterVerdict", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerAccepted, true))
		require.NoError(t, env.submissions.MarkFailed(context.Background(), sub.ID))

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusJudged, got.Status)
		assert.Equal(t, model.AnswerAccepted, got.Answer)
	})
}

func TestRerun(t *testing.T) {
	t.Run("ResetsTerminalSubmission", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)
		require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerWrongAnswer, false))

		require.NoError(t, env.submissions.Rerun(context.Background(), sub.ID, model.RoleJudge))

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusJudging, got.Status)
		assert.Equal(t, model.AnswerNone, got.Answer)
		assert.Equal(t, []string{sub.ID, sub.ID}, env.queue.enqueued())
		assert.Len(t, env.pub.byType(model.EventSubmissionRerunRequested), 1)
	})

	t.Run("ResetsFailedSubmission", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)
		require.NoError(t, env.submissions.MarkFailed(context.Background(), sub.ID))

		require.NoError(t, env.submissions.Rerun(context.Background(), sub.ID, model.RoleAdmin))

		got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusJudging, got.Status)
	})

	t.Run("Error_AlreadyJudging", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)

		err := env.submissions.Rerun(context.Background(), sub.ID, model.RoleJudge)
		assert.True(t, errors.Is(err, common.ErrConflict))
	})

	t.Run("Error_ContestantForbidden", func(t *testing.T) {
		env := newTestEnv(t)
		problem := env.addProblem(t, "A")
		alice := env.addContestant(t, "alice")
		sub := env.submit(t, alice, problem)
		require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerWrongAnswer, false))

		err := env.submissions.Rerun(context.Background(), sub.ID, model.RoleContestant)
		assert.True(t, errors.Is(err, common.ErrForbidden))
	})
}

func TestGetSubmission(t *testing.T) {
	env := newTestEnv(t)
	problem := env.addProblem(t, "A")
	alice := env.addContestant(t, "alice")
	bob := env.addContestant(t, "bob")
	sub := env.submit(t, alice, problem)

	t.Run("OwnerSeesCode", func(t *testing.T) {
		got, err := env.submissions.GetSubmission(context.Background(), sub.ID, alice.ID, model.RoleContestant)
		require.NoError(t, err)
		assert.NotEmpty(t, got.Code)
	})

	t.Run("OtherContestantDoesNot", func(t *testing.T) {
		got, err := env.submissions.GetSubmission(context.Background(), sub.ID, bob.ID, model.RoleContestant)
		require.NoError(t, err)
		assert.Empty(t, got.Code)
	})

	t.Run("JudgeSeesCode", func(t *testing.T) {
		got, err := env.submissions.GetSubmission(context.Background(), sub.ID, "someone-else", model.RoleJudge)
		require.NoError(t, err)
		assert.NotEmpty(t, got.Code)
	})
}

func TestFrozenSnapshotPinnedWhileFrozen(t *testing.T) {
	env := newTestEnv(t)
	problem := env.addProblem(t, "A")
	alice := env.addContestant(t, "alice")
	sub := env.submit(t, alice, problem)

	require.NoError(t, env.leaderboards.Freeze(context.Background(), env.contest.ID, model.RoleAdmin))

	// The verdict lands on the live row only.
	require.NoError(t, env.submissions.UpdateAnswer(context.Background(), sub.ID, model.AnswerAccepted, false))

	got, err := env.subs.GetSubmissionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusJudged, got.Status)

	f := env.frozenFor(t, sub.ID)
	assert.Equal(t, model.StatusJudging, f.Status)
	assert.Equal(t, model.AnswerNone, f.Answer)

	// Unfreezing resyncs the snapshot with the live state.
	require.NoError(t, env.leaderboards.Unfreeze(context.Background(), env.contest.ID, model.RoleAdmin))
	f = env.frozenFor(t, sub.ID)
	assert.Equal(t, model.StatusJudged, f.Status)
	assert.Equal(t, model.AnswerAccepted, f.Answer)
}

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

// In-memory doubles for the repository and platform interfaces. They
// reproduce the write semantics the services rely on (check-then-write
// status updates, conditional freeze flips, snapshot mirroring).

type fakeSubmissionRepo struct {
	mu     sync.Mutex
	subs   map[string]*model.Submission
	frozen map[string]*model.FrozenSubmission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		subs:   make(map[string]*model.Submission),
		frozen: make(map[string]*model.FrozenSubmission),
	}
}

func (r *fakeSubmissionRepo) CreateSubmission(_ context.Context, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub.ID]; ok {
		return common.ErrConflict
	}
	cp := *sub
	r.subs[sub.ID] = &cp
	r.frozen[sub.ID] = &model.FrozenSubmission{
		SubmissionID: sub.ID,
		ContestID:    sub.ContestID,
		MemberID:     sub.MemberID,
		ProblemID:    sub.ProblemID,
		Status:       sub.Status,
		Answer:       sub.Answer,
		CreatedAt:    sub.CreatedAt,
	}
	return nil
}

func (r *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubmissionRepo) UpdateSubmissionStatusCAS(_ context.Context, id string, expected, status model.SubmissionStatus, answer model.Answer) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if sub.Status != expected {
		return false, nil
	}
	sub.Status = status
	sub.Answer = answer
	return true, nil
}

func (r *fakeSubmissionRepo) SetSubmissionState(_ context.Context, id string, status model.SubmissionStatus, answer model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return common.ErrNotFound
	}
	sub.Status = status
	sub.Answer = answer
	return nil
}

func (r *fakeSubmissionRepo) SyncFrozenSubmission(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil
	}
	if f, ok := r.frozen[id]; ok {
		f.Status = sub.Status
		f.Answer = sub.Answer
	}
	return nil
}

func (r *fakeSubmissionRepo) ResyncFrozenForContest(_ context.Context, contestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.frozen {
		if f.ContestID != contestID {
			continue
		}
		if sub, ok := r.subs[id]; ok {
			f.Status = sub.Status
			f.Answer = sub.Answer
		}
	}
	return nil
}

func (r *fakeSubmissionRepo) ListByContest(_ context.Context, contestID string) ([]model.Submission, error) {
	return r.listSubs(func(s *model.Submission) bool { return s.ContestID == contestID }), nil
}

func (r *fakeSubmissionRepo) ListByMemberProblem(_ context.Context, memberID, problemID string) ([]model.Submission, error) {
	return r.listSubs(func(s *model.Submission) bool {
		return s.MemberID == memberID && s.ProblemID == problemID
	}), nil
}

func (r *fakeSubmissionRepo) ListByMember(_ context.Context, memberID string, limit, offset int) ([]model.Submission, error) {
	subs := r.listSubs(func(s *model.Submission) bool { return s.MemberID == memberID })
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	if offset >= len(subs) {
		return nil, nil
	}
	subs = subs[offset:]
	if limit < len(subs) {
		subs = subs[:limit]
	}
	return subs, nil
}

func (r *fakeSubmissionRepo) listSubs(keep func(*model.Submission) bool) []model.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for _, s := range r.subs {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeSubmissionRepo) ListFrozenByContest(_ context.Context, contestID string) ([]model.FrozenSubmission, error) {
	return r.listFrozen(func(f *model.FrozenSubmission) bool { return f.ContestID == contestID }), nil
}

func (r *fakeSubmissionRepo) ListFrozenByMemberProblem(_ context.Context, memberID, problemID string) ([]model.FrozenSubmission, error) {
	return r.listFrozen(func(f *model.FrozenSubmission) bool {
		return f.MemberID == memberID && f.ProblemID == problemID
	}), nil
}

func (r *fakeSubmissionRepo) listFrozen(keep func(*model.FrozenSubmission) bool) []model.FrozenSubmission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FrozenSubmission
	for _, f := range r.frozen {
		if keep(f) {
			out = append(out, *f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type fakeContestRepo struct {
	mu       sync.Mutex
	contests map[string]*model.Contest
	problems map[string]*model.Problem
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{
		contests: make(map[string]*model.Contest),
		problems: make(map[string]*model.Problem),
	}
}

func (r *fakeContestRepo) CreateContest(_ context.Context, c *model.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.contests {
		if existing.Slug == c.Slug {
			return common.ErrConflict
		}
	}
	cp := *c
	r.contests[c.ID] = &cp
	return nil
}

func (r *fakeContestRepo) FindContestByID(_ context.Context, id string) (*model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContestRepo) FindContestBySlug(_ context.Context, slug string) (*model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contests {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeContestRepo) SetManualFreeze(_ context.Context, contestID string, frozenAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[contestID]
	if !ok {
		return false, common.ErrNotFound
	}
	if c.ManualFreezeAt != nil {
		return false, nil
	}
	at := frozenAt
	c.ManualFreezeAt = &at
	return true, nil
}

func (r *fakeContestRepo) ClearManualFreeze(_ context.Context, contestID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[contestID]
	if !ok {
		return false, common.ErrNotFound
	}
	if c.ManualFreezeAt == nil {
		return false, nil
	}
	c.ManualFreezeAt = nil
	return true, nil
}

func (r *fakeContestRepo) SetAutoFreeze(_ context.Context, contestID string, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[contestID]
	if !ok {
		return common.ErrNotFound
	}
	c.AutoFreezeAt = at
	return nil
}

func (r *fakeContestRepo) ListDueAutoFreeze(_ context.Context, now time.Time) ([]model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []model.Contest
	for _, c := range r.contests {
		if c.AutoFreezeAt != nil && !c.AutoFreezeAt.After(now) && c.ManualFreezeAt == nil && c.EndAt.After(now) {
			due = append(due, *c)
		}
	}
	return due, nil
}

func (r *fakeContestRepo) CreateProblem(_ context.Context, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.problems {
		if existing.ContestID == p.ContestID && existing.Letter == p.Letter {
			return common.ErrConflict
		}
	}
	cp := *p
	r.problems[p.ID] = &cp
	return nil
}

func (r *fakeContestRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeContestRepo) ListProblemsByContest(_ context.Context, contestID string) ([]model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Problem
	for _, p := range r.problems {
		if p.ContestID == contestID {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Letter < out[j].Letter })
	return out, nil
}

type fakeMemberRepo struct {
	mu      sync.Mutex
	members map[string]*model.Member
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[string]*model.Member)}
}

func (r *fakeMemberRepo) Create(_ context.Context, m *model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.Username == m.Username {
			return common.ErrConflict
		}
	}
	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *fakeMemberRepo) FindByID(_ context.Context, id string) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMemberRepo) FindByUsername(_ context.Context, username string) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeMemberRepo) ListContestants(_ context.Context, contestID string) ([]model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Member
	for _, m := range r.members {
		if m.Role == model.RoleContestant && m.ContestID != nil && *m.ContestID == contestID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *capturePublisher) Publish(ev model.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *capturePublisher) byType(t model.EventType) []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeQueue struct {
	mu      sync.Mutex
	ids     []string
	failing bool
}

func (q *fakeQueue) EnqueueJudging(_ context.Context, submissionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failing {
		return errors.New("queue unavailable")
	}
	q.ids = append(q.ids, submissionID)
	return nil
}

func (q *fakeQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

type fakeRunner struct {
	answer model.Answer
	err    error
	calls  int
}

func (r *fakeRunner) Run(_ context.Context, _ *model.Submission) (model.Answer, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.answer, nil
}

package service

import (
	"sort"
	"time"

	"codearena/internal/domain/model"
)

// WrongAttemptPenaltyMinutes is the ICPC penalty added per non-accepted
// judged submission preceding the first acceptance.
const WrongAttemptPenaltyMinutes = 20

// boardEntry is the judge-relevant slice of a submission, drawn either
// from live submissions or from frozen snapshots.
type boardEntry struct {
	MemberID  string
	ProblemID string
	Status    model.SubmissionStatus
	Answer    model.Answer
	CreatedAt time.Time
}

func liveEntries(subs []model.Submission) []boardEntry {
	entries := make([]boardEntry, 0, len(subs))
	for _, s := range subs {
		entries = append(entries, boardEntry{
			MemberID:  s.MemberID,
			ProblemID: s.ProblemID,
			Status:    s.Status,
			Answer:    s.Answer,
			CreatedAt: s.CreatedAt,
		})
	}
	return entries
}

func frozenEntries(subs []model.FrozenSubmission) []boardEntry {
	entries := make([]boardEntry, 0, len(subs))
	for _, s := range subs {
		entries = append(entries, boardEntry{
			MemberID:  s.MemberID,
			ProblemID: s.ProblemID,
			Status:    s.Status,
			Answer:    s.Answer,
			CreatedAt: s.CreatedAt,
		})
	}
	return entries
}

// ceilMinutes returns the contest-relative acceptance time in whole
// minutes, rounded up.
func ceilMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}

// computeCell scores one (member, problem) pair from that member's
// submissions for the problem, in creation order. Only JUDGED
// submissions count; everything after the first acceptance is ignored.
func computeCell(contestStart time.Time, problem model.Problem, entries []boardEntry) model.Cell {
	cell := model.Cell{ProblemID: problem.ID, Letter: problem.Letter}

	for _, e := range entries {
		if e.Status != model.StatusJudged {
			continue
		}
		if e.Answer == model.AnswerAccepted {
			acceptedAt := e.CreatedAt
			cell.IsAccepted = true
			cell.AcceptedAt = &acceptedAt
			cell.Penalty = ceilMinutes(contestStart, acceptedAt) + cell.WrongSubmissions*WrongAttemptPenaltyMinutes
			return cell
		}
		cell.WrongSubmissions++
	}

	// No acceptance: wrong attempts carry no penalty.
	cell.Penalty = 0
	return cell
}

// rowStanding carries the precomputed acceptance minutes used by the
// ranking comparator, most recent first.
type rowStanding struct {
	row             model.Row
	acceptedMinutes []int
}

func newRowStanding(contestStart time.Time, row model.Row) rowStanding {
	var minutes []int
	for _, c := range row.Cells {
		if c.IsAccepted && c.AcceptedAt != nil {
			minutes = append(minutes, ceilMinutes(contestStart, *c.AcceptedAt))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(minutes)))
	return rowStanding{row: row, acceptedMinutes: minutes}
}

// ranksBefore is the standings comparator: higher score, then lower
// total penalty, then pairwise earlier acceptance in
// reverse-chronological order, then display name. The name tie-break
// makes the order total.
func (a rowStanding) ranksBefore(b rowStanding) bool {
	if a.row.Score != b.row.Score {
		return a.row.Score > b.row.Score
	}
	if a.row.Penalty != b.row.Penalty {
		return a.row.Penalty < b.row.Penalty
	}
	// Equal score implies equal acceptance counts.
	for i := 0; i < len(a.acceptedMinutes) && i < len(b.acceptedMinutes); i++ {
		if a.acceptedMinutes[i] != b.acceptedMinutes[i] {
			return a.acceptedMinutes[i] < b.acceptedMinutes[i]
		}
	}
	return a.row.Name < b.row.Name
}

// buildLeaderboard assembles ranked standings from a submission source.
// Pure: no clock, no storage.
func buildLeaderboard(contest *model.Contest, problems []model.Problem, contestants []model.Member, entries []boardEntry) *model.Leaderboard {
	byMemberProblem := make(map[string]map[string][]boardEntry)
	for _, e := range entries {
		byProblem, ok := byMemberProblem[e.MemberID]
		if !ok {
			byProblem = make(map[string][]boardEntry)
			byMemberProblem[e.MemberID] = byProblem
		}
		byProblem[e.ProblemID] = append(byProblem[e.ProblemID], e)
	}

	standings := make([]rowStanding, 0, len(contestants))
	for _, m := range contestants {
		row := model.Row{MemberID: m.ID, Name: m.Name}
		for _, p := range problems {
			var problemEntries []boardEntry
			if byProblem, ok := byMemberProblem[m.ID]; ok {
				problemEntries = byProblem[p.ID]
			}
			sort.SliceStable(problemEntries, func(i, j int) bool {
				return problemEntries[i].CreatedAt.Before(problemEntries[j].CreatedAt)
			})
			cell := computeCell(contest.StartAt, p, problemEntries)
			if cell.IsAccepted {
				row.Score++
				row.Penalty += cell.Penalty
			}
			row.Cells = append(row.Cells, cell)
		}
		standings = append(standings, newRowStanding(contest.StartAt, row))
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].ranksBefore(standings[j])
	})

	rows := make([]model.Row, 0, len(standings))
	for i, st := range standings {
		st.row.Rank = i + 1
		rows = append(rows, st.row)
	}

	return &model.Leaderboard{ContestID: contest.ID, Rows: rows}
}

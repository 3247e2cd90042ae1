package model

import "time"

// Leaderboard is derived on every read, never stored.
type Leaderboard struct {
	ContestID   string     `json:"contest_id"`
	FrozenAt    *time.Time `json:"frozen_at,omitempty"` // set when serving the frozen view
	GeneratedAt time.Time  `json:"generated_at"`
	Rows        []Row      `json:"rows"`
}

type Row struct {
	Rank     int    `json:"rank"`
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Penalty  int    `json:"penalty"`
	Cells    []Cell `json:"cells"`
}

type Cell struct {
	ProblemID        string     `json:"problem_id"`
	Letter           string     `json:"letter"`
	IsAccepted       bool       `json:"is_accepted"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	WrongSubmissions int        `json:"wrong_submissions"`
	Penalty          int        `json:"penalty"`
}

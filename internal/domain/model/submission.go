package model

import "time"

type SubmissionStatus string

const (
	StatusJudging SubmissionStatus = "JUDGING"
	StatusJudged  SubmissionStatus = "JUDGED"
	StatusFailed  SubmissionStatus = "FAILED"
)

type Answer string

const (
	AnswerNone                Answer = "NO_ANSWER"
	AnswerAccepted            Answer = "ACCEPTED"
	AnswerWrongAnswer         Answer = "WRONG_ANSWER"
	AnswerTimeLimitExceeded   Answer = "TIME_LIMIT_EXCEEDED"
	AnswerMemoryLimitExceeded Answer = "MEMORY_LIMIT_EXCEEDED"
	AnswerRuntimeError        Answer = "RUNTIME_ERROR"
	AnswerCompilationError    Answer = "COMPILATION_ERROR"
)

type Submission struct {
	ID        string           `json:"id"`
	ContestID string           `json:"contest_id"`
	MemberID  string           `json:"member_id"`
	ProblemID string           `json:"problem_id"`
	Language  string           `json:"language"`
	Code      string           `json:"code,omitempty"`
	Status    SubmissionStatus `json:"status"`
	Answer    Answer           `json:"answer"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// FrozenSubmission is the snapshot serving frozen leaderboard reads.
// It mirrors its submission's judge-relevant fields until the first
// freeze fixes it; unfreezing resyncs it and a new mirror lifecycle
// begins.
type FrozenSubmission struct {
	SubmissionID string           `json:"submission_id"`
	ContestID    string           `json:"contest_id"`
	MemberID     string           `json:"member_id"`
	ProblemID    string           `json:"problem_id"`
	Status       SubmissionStatus `json:"status"`
	Answer       Answer           `json:"answer"`
	CreatedAt    time.Time        `json:"created_at"`
}

package model

import "time"

type EventType string

const (
	EventSubmissionCreated        EventType = "submission.created"
	EventSubmissionUpdated        EventType = "submission.updated"
	EventSubmissionRerunRequested EventType = "submission.rerun_requested"
	EventLeaderboardFrozen        EventType = "leaderboard.frozen"
	EventLeaderboardUnfrozen      EventType = "leaderboard.unfrozen"
)

// Event is broadcast after a committed transition; EntityID is the
// submission id for submission events and the contest id otherwise.
type Event struct {
	Type      EventType `json:"type"`
	ContestID string    `json:"contest_id"`
	EntityID  string    `json:"entity_id"`
	At        time.Time `json:"at"`
}

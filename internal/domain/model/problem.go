package model

import "time"

type Problem struct {
	ID        string    `json:"id"`
	ContestID string    `json:"contest_id"`
	Letter    string    `json:"letter"` // display order key: "A", "B", ...
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

package model

import "time"

type Contest struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          time.Time  `json:"end_at"`
	ManualFreezeAt *time.Time `json:"manual_freeze_at,omitempty"`
	AutoFreezeAt   *time.Time `json:"auto_freeze_at,omitempty"`
	Languages      []string   `json:"languages"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive reports whether submissions are currently accepted.
func (c *Contest) IsActive(now time.Time) bool {
	return !now.Before(c.StartAt) && !now.After(c.EndAt)
}

// IsFrozen reports whether the standings are frozen for non-staff
// viewers. A freeze holds from ManualFreezeAt until the contest ends;
// unfreezing clears ManualFreezeAt.
func (c *Contest) IsFrozen(now time.Time) bool {
	if c.ManualFreezeAt == nil {
		return false
	}
	return !now.Before(*c.ManualFreezeAt) && !now.After(c.EndAt)
}

func (c *Contest) PermitsLanguage(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

package store

import (
	"time"

	"github.com/joescharf/opsdesk/internal/models"
)

// SeedIssues returns the demo issues a fresh server starts with, all
// stamped with now.
func SeedIssues(now time.Time) []*models.Issue {
	alice, bob := "Alice", "Bob"
	return []*models.Issue{
		{
			ID:          "1",
			Title:       "Video Playback Issue on Disney+",
			Description: "Users are reporting buffering and playback errors on Disney+.",
			Platform:    models.PlatformDisneyPlus,
			Status:      models.StatusOpen,
			Severity:    models.SeverityHigh,
			CreatedAt:   now,
			UpdatedAt:   now,
			Comments:    []*models.Comment{},
		},
		{
			ID:          "2",
			Title:       "Login Failure on ESPN+",
			Description: "Some users are unable to log in to ESPN+ with valid credentials.",
			Platform:    models.PlatformESPNPlus,
			Status:      models.StatusInProgress,
			Severity:    models.SeverityCritical,
			Assignee:    &alice,
			CreatedAt:   now,
			UpdatedAt:   now,
			Comments: []*models.Comment{{
				ID:        "1",
				Text:      "Investigating potential authentication service issues.",
				Author:    "Alice",
				CreatedAt: now,
			}},
		},
		{
			ID:          "3",
			Title:       "Subtitle Sync Issue on Hulu",
			Description: "Subtitles are out of sync on various shows on Hulu.",
			Platform:    models.PlatformHulu,
			Status:      models.StatusResolved,
			Severity:    models.SeverityMedium,
			Assignee:    &bob,
			CreatedAt:   now,
			UpdatedAt:   now,
			Comments: []*models.Comment{{
				ID:        "1",
				Text:      "Deployed a fix for subtitle synchronization.",
				Author:    "Bob",
				CreatedAt: now,
			}},
		},
	}
}

// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for tracker ids, reports, and agent status

package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/beacon/internal/models"
)

// FormatTrackerID renders a tracker id the way the status line shows it.
func FormatTrackerID(id string) string {
	if id == "" || id == models.UnknownTrackerID {
		return color.YellowString(models.UnknownTrackerID)
	}
	return color.GreenString(id)
}

// FormatReport formats the latest report of a tracker for terminal display.
func FormatReport(id string, r *models.Report) string {
	if r == nil {
		return fmt.Sprintf("%s - %s",
			FormatTrackerID(id),
			color.New(color.Faint).Sprint("no report"))
	}
	coords := fmt.Sprintf("(%.5f, %.5f)", r.Latitude, r.Longitude)
	relTime := FormatRelativeTime(r.Timestamp)

	if r.Status != "" && r.Status != models.StatusOnline {
		return fmt.Sprintf("%s %s - %s [%s]",
			FormatTrackerID(id),
			color.CyanString(coords),
			color.New(color.Faint).Sprint(relTime),
			r.Status)
	}
	return fmt.Sprintf("%s %s - %s",
		FormatTrackerID(id),
		color.CyanString(coords),
		color.New(color.Faint).Sprint(relTime))
}

// FormatAgent formats the running agent line shown by `beacon status`.
func FormatAgent(id string, pid int, since time.Time) string {
	if since.IsZero() {
		return fmt.Sprintf("ID: %s | Active (pid %d)", FormatTrackerID(id), pid)
	}
	return fmt.Sprintf("ID: %s | Active (pid %d, started %s)",
		FormatTrackerID(id), pid,
		color.New(color.Faint).Sprint(FormatRelativeTime(since)))
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < 10*time.Second {
		return "just now"
	}
	if diff < time.Minute {
		return fmt.Sprintf("%d seconds ago", int(diff.Seconds()))
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

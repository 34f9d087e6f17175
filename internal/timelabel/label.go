// Package timelabel renders relative-time labels for notifications and
// schedules the next UI refresh at the moment any label would change.
package timelabel

import (
	"fmt"
	"time"

	"kasa/internal/core"
)

const (
	// Bucket is the label granularity under one hour.
	Bucket = 15 * time.Minute

	// MinRefresh guards against busy-looping when a boundary is imminent.
	MinRefresh = 30 * time.Second
	// MaxRefresh bounds the wait so the loop re-evaluates even with nothing visible.
	MaxRefresh = 15 * time.Minute
)

// SmartLabel returns the label for a notification created at ts, observed at now.
// The boolean is false when the notification must not be displayed.
func SmartLabel(now, ts time.Time) (string, bool) {
	age := now.Sub(ts)
	if age >= core.NotificationRetention {
		return "", false
	}
	if age < time.Hour {
		minutes := int(age / Bucket * Bucket / time.Minute)
		if minutes <= 0 {
			return "Just now", true
		}
		return fmt.Sprintf("%d minutes ago", minutes), true
	}
	hours := int(age / time.Hour)
	if hours == 1 {
		return "1 hour ago", true
	}
	return fmt.Sprintf("%d hours ago", hours), true
}

// untilNextBoundary is the wait until the label for a timestamp of the given age changes.
func untilNextBoundary(age time.Duration) time.Duration {
	if age < 0 {
		// Timestamps in the future read as "Just now" until they age into the first bucket.
		return -age + Bucket
	}
	step := time.Hour
	if age < time.Hour {
		step = Bucket
	}
	return step - age%step
}

// NextRefresh returns how long to wait before labels need re-rendering.
// Only visible timestamps are considered.
func NextRefresh(now time.Time, timestamps []time.Time) time.Duration {
	wait := MaxRefresh
	for _, ts := range timestamps {
		age := now.Sub(ts)
		if age >= core.NotificationRetention {
			continue
		}
		if w := untilNextBoundary(age); w < wait {
			wait = w
		}
	}
	if wait < MinRefresh {
		wait = MinRefresh
	}
	return wait
}

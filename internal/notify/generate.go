package notify

import (
	"slices"
	"time"

	"kasa/internal/core"
)

// Generate merges session notifications with the ones derived by rules at now.
// Expired entries are dropped, the first occurrence of an id wins, the result
// is ordered newest first and an id in readIDs marks its notification read.
func Generate(now time.Time, categories []core.Category, usage core.UsageCounts, session []core.Notification, readIDs map[string]bool, rules []Rule) []core.Notification {
	merged := make([]core.Notification, 0, len(session)+len(rules))
	merged = append(merged, session...)
	for _, r := range rules {
		d, ok := r.Evaluate(categories, usage)
		if !ok {
			continue
		}
		merged = append(merged, core.Notification{
			ID:        r.ID(),
			Title:     d.Title,
			Message:   d.Message,
			Type:      d.Type,
			Timestamp: now.Add(-r.Offset()),
		})
	}

	seen := make(map[string]bool, len(merged))
	out := make([]core.Notification, 0, len(merged))
	for _, n := range merged {
		if n.Expired(now) || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		n.IsRead = n.IsRead || readIDs[n.ID]
		out = append(out, n)
	}

	slices.SortStableFunc(out, func(a, b core.Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// prune drops notifications that reached the retention boundary at now.
func prune(ns []core.Notification, now time.Time) []core.Notification {
	out := make([]core.Notification, 0, len(ns))
	for _, n := range ns {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}

package app

import (
	"context"
	"time"

	"kasa/internal/core"
	"kasa/internal/timelabel"
)

// Label is a visible notification with its relative time label.
type Label struct {
	core.Notification
	Label string `json:"label"`
}

// RenderNotifications hides notifications that aged out at now and computes
// the labels of the rest. It is the label scheduler's refresh callback.
func (a *App) RenderNotifications(now time.Time) []Label {
	a.notes.Expire(now)
	visible := a.notes.Visible()

	labels := make([]Label, 0, len(visible))
	for _, n := range visible {
		text, ok := timelabel.SmartLabel(now, n.Timestamp)
		if !ok {
			continue
		}
		labels = append(labels, Label{Notification: n, Label: text})
	}

	a.mu.Lock()
	a.labels = labels
	a.mu.Unlock()
	return append([]Label(nil), labels...)
}

// Notifications returns the labels from the last render.
func (a *App) Notifications() []Label {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Label(nil), a.labels...)
}

func (a *App) UnreadCount() int {
	return a.notes.UnreadCount()
}

// MarkNotificationRead marks one notification read and re-renders the labels.
func (a *App) MarkNotificationRead(ctx context.Context, id string) error {
	err := a.notes.MarkRead(ctx, id)
	a.RenderNotifications(a.clock.Now())
	return err
}

// MarkAllNotificationsRead marks every visible notification read.
func (a *App) MarkAllNotificationsRead(ctx context.Context) error {
	err := a.notes.MarkAllRead(ctx)
	a.RenderNotifications(a.clock.Now())
	return err
}

// Notify records a session notification, for example to report a failed
// user action, and reschedules the label refresh.
func (a *App) Notify(ctx context.Context, typ core.NotificationType, title, message string) error {
	_, err := a.notes.Add(ctx, typ, title, message)
	a.RenderNotifications(a.clock.Now())
	a.scheduler.Reschedule()
	return err
}

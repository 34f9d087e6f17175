package notify

import (
	"context"
	"fmt"
	"strings"

	"kasa/internal/core"
)

// CategoryCreated records that c was added.
func (e *Engine) CategoryCreated(ctx context.Context, c core.Category) (core.Notification, error) {
	return e.Add(ctx, core.NotificationSuccess, "Category created",
		fmt.Sprintf("%q was added to your %s categories.", c.Name, typeWord(c.Type)))
}

// CategoryUpdated records that c was edited.
func (e *Engine) CategoryUpdated(ctx context.Context, c core.Category) (core.Notification, error) {
	return e.Add(ctx, core.NotificationSuccess, "Category updated",
		fmt.Sprintf("%q was saved.", c.Name))
}

// CategoryArchived records that c was moved to the archive.
func (e *Engine) CategoryArchived(ctx context.Context, c core.Category) (core.Notification, error) {
	return e.Add(ctx, core.NotificationInfo, "Category archived",
		fmt.Sprintf("%q was archived. You can restore it from the archive.", c.Name))
}

// CategoryRestored records that c was brought back from the archive.
func (e *Engine) CategoryRestored(ctx context.Context, c core.Category) (core.Notification, error) {
	return e.Add(ctx, core.NotificationSuccess, "Category restored",
		fmt.Sprintf("%q is active again.", c.Name))
}

func typeWord(t core.CategoryType) string {
	return strings.ToLower(string(t))
}

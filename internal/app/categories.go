package app

import (
	"context"
	"errors"
	"strings"

	"kasa/internal/amqp"
	"kasa/internal/core"
	klog "kasa/internal/log"
)

// Messages for validation failures that depend on existing categories.
const (
	msgDefaultCategory = "Default categories cannot be deleted"
	msgDuplicateName   = "A category with this name already exists"
)

// CreateCategory validates in, creates the category on the backend and
// reloads the page data.
func (a *App) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	in = normalizeInput(in)
	if err := a.validate(in, 0); err != nil {
		return core.Category{}, err
	}
	c, err := a.backend.CreateCategory(ctx, in)
	if err != nil {
		return core.Category{}, a.failed(ctx, klog.OpCreate, err)
	}
	a.changed(ctx, klog.OpCreate, amqp.EventCreated, c, a.notes.CategoryCreated)
	return c, nil
}

func (a *App) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error) {
	in = normalizeInput(in)
	if err := a.validate(in, id); err != nil {
		return core.Category{}, err
	}
	c, err := a.backend.UpdateCategory(ctx, id, in)
	if err != nil {
		return core.Category{}, a.failed(ctx, klog.OpUpdate, err)
	}
	a.changed(ctx, klog.OpUpdate, amqp.EventUpdated, c, a.notes.CategoryUpdated)
	return c, nil
}

// ArchiveCategory soft-deletes a category. Default categories are refused
// before any request is made.
func (a *App) ArchiveCategory(ctx context.Context, id int64) (core.Category, error) {
	c, known := a.category(id)
	if known && !c.Deletable() {
		return core.Category{}, core.NewValidationError("", msgDefaultCategory)
	}
	if err := a.backend.ArchiveCategory(ctx, id); err != nil {
		return core.Category{}, a.failed(ctx, klog.OpArchive, err)
	}
	if !known {
		c = core.Category{ID: id}
	}
	c.IsDeleted = true
	a.changed(ctx, klog.OpArchive, amqp.EventArchived, c, a.notes.CategoryArchived)
	return c, nil
}

// RestoreCategory brings an archived category back unless an active category
// of the same type already uses its name.
func (a *App) RestoreCategory(ctx context.Context, id int64) (core.Category, error) {
	if c, ok := a.category(id); ok {
		in := core.CategoryInput{Name: c.Name, Type: c.Type}
		if a.nameTaken(in, id) {
			return core.Category{}, core.NewValidationError("name", msgDuplicateName)
		}
	}
	c, err := a.backend.RestoreCategory(ctx, id)
	if err != nil {
		return core.Category{}, a.failed(ctx, klog.OpRestore, err)
	}
	a.changed(ctx, klog.OpRestore, amqp.EventRestored, c, a.notes.CategoryRestored)
	return c, nil
}

// Categories returns every known category, archived ones included.
func (a *App) Categories() []core.Category {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Category(nil), a.categories...)
}

func normalizeInput(in core.CategoryInput) core.CategoryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = core.CategoryType(strings.ToUpper(strings.TrimSpace(string(in.Type))))
	in.Color = strings.TrimSpace(in.Color)
	return in
}

// validate checks the input fields and that no other active category of the
// same type has the same name, ignoring case.
func (a *App) validate(in core.CategoryInput, exceptID int64) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if a.nameTaken(in, exceptID) {
		return core.NewValidationError("name", msgDuplicateName)
	}
	return nil
}

func (a *App) nameTaken(in core.CategoryInput, exceptID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.categories {
		if c.ID != exceptID && !c.IsDeleted && c.Type == in.Type && strings.EqualFold(c.Name, in.Name) {
			return true
		}
	}
	return false
}

func (a *App) category(id int64) (core.Category, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

// failed logs a backend failure. Stale-state failures reload the list so the
// page shows what the backend has now.
func (a *App) failed(ctx context.Context, op string, err error) error {
	a.log.WarnContext(ctx, "Category change failed", klog.FieldOperation, op, klog.FieldError, err)
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrConflict) {
		_ = a.Reload(ctx)
	}
	return err
}

// changed runs the follow-ups of a successful change: a session
// notification, a change event and a reload. None of them fails the change.
func (a *App) changed(ctx context.Context, op string, kind amqp.EventKind, c core.Category, note func(context.Context, core.Category) (core.Notification, error)) {
	fields := klog.NewFields().WithOperation(op).WithCategory(c.ID, c.Name, string(c.Type))
	a.log.InfoContext(ctx, "Category changed", fields.Args()...)

	if _, err := note(ctx, c); err != nil {
		a.log.WarnContext(ctx, "Failed to persist notification", klog.FieldError, err)
	}
	a.publish(ctx, amqp.NewCategoryEvent(kind, c, a.clock.Now()))
	if err := a.Reload(ctx); err != nil {
		a.log.WarnContext(ctx, "Reload after change incomplete", klog.FieldError, err)
	}
}

func (a *App) publish(ctx context.Context, ev amqp.CategoryEvent) {
	if a.publisher == nil {
		a.log.DebugContext(ctx, "No event publisher configured, skipping", "kind", ev.Kind)
		return
	}
	if err := a.publisher.PublishCategoryEvent(ctx, ev); err != nil {
		a.log.WarnContext(ctx, "Failed to publish category event",
			klog.FieldOperation, klog.OpPublish,
			"kind", ev.Kind,
			klog.FieldError, err)
	}
}

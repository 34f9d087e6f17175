// Package app holds the categories page state and coordinates the data
// source, the filter engine, the notification engine and the label
// scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kasa/internal/amqp"
	"kasa/internal/core"
	klog "kasa/internal/log"
	"kasa/internal/notify"
	"kasa/internal/source"
	"kasa/internal/timelabel"
	"kasa/internal/view"
)

// Publisher receives category change events. Publishing is best effort.
type Publisher interface {
	PublishCategoryEvent(ctx context.Context, ev amqp.CategoryEvent) error
}

// App is the explicit application state of one categories page.
type App struct {
	backend   source.Backend
	notes     *notify.Engine
	publisher Publisher
	clock     timelabel.Clock
	log       *klog.Logger
	scheduler *timelabel.Scheduler

	mu         sync.Mutex
	view       *view.State
	categories []core.Category
	usage      core.UsageCounts
	labels     []Label
	loaded     bool
}

type Option func(*App)

// WithPublisher sets where change events go. Without one, events are skipped.
func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publisher = p }
}

func WithClock(c timelabel.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithViewEngine sets the filter engine, for example one with a locale collator.
func WithViewEngine(e *view.Engine) Option {
	return func(a *App) { a.view = view.NewState(e) }
}

func WithLogger(l *klog.Logger) Option {
	return func(a *App) { a.log = l }
}

func New(backend source.Backend, notes *notify.Engine, opts ...Option) *App {
	a := &App{
		backend: backend,
		notes:   notes,
		clock:   timelabel.SystemClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.view == nil {
		a.view = view.NewState(nil)
	}
	if a.log == nil {
		a.log = klog.For(klog.ComponentApp)
	}
	a.scheduler = timelabel.NewScheduler(a.clock, notes.Timestamps, func(now time.Time) {
		a.RenderNotifications(now)
	})
	return a
}

// Start begins the label refresh loop.
func (a *App) Start() {
	a.scheduler.Start()
}

// Stop cancels the label refresh loop.
func (a *App) Stop() {
	a.scheduler.Stop()
}

// SetVisible pauses label refreshes while the page is hidden and re-evaluates
// them as soon as it is shown again.
func (a *App) SetVisible(visible bool) {
	if visible {
		a.scheduler.Resume()
		return
	}
	a.scheduler.Pause()
}

// Scheduler exposes the label scheduler for status reporting.
func (a *App) Scheduler() *timelabel.Scheduler {
	return a.scheduler
}

// Ready reports whether at least one reload has completed.
func (a *App) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// Reload fetches categories and transactions concurrently. A failing source
// keeps its previous data; the view and notifications are recomputed from
// whatever is available. The returned error joins the per-source failures.
func (a *App) Reload(ctx context.Context) error {
	var (
		cats          []core.Category
		txs           []core.Transaction
		catErr, txErr error
	)

	// Each source reports its own error so one failure never discards the
	// other's result; the goroutines always return nil.
	var g errgroup.Group
	g.Go(func() error {
		cats, catErr = a.backend.ListCategories(ctx, true)
		return nil
	})
	g.Go(func() error {
		txs, txErr = a.backend.ListTransactions(ctx)
		return nil
	})
	g.Wait()

	if catErr != nil {
		a.log.ErrorContext(ctx, "Failed to load categories", klog.FieldSource, "categories", klog.FieldError, catErr)
	}
	if txErr != nil {
		a.log.ErrorContext(ctx, "Failed to load transactions", klog.FieldSource, "transactions", klog.FieldError, txErr)
	}

	a.mu.Lock()
	if catErr == nil {
		a.categories = cats
	}
	if txErr == nil {
		a.usage = core.CountUsage(txs)
	}
	a.view.SetData(a.categories, a.usage)
	a.loaded = true
	categories, usage := a.categories, a.usage
	a.mu.Unlock()

	a.notes.Refresh(ctx, categories, usage)
	a.RenderNotifications(a.clock.Now())
	a.scheduler.Reschedule()

	a.log.InfoContext(ctx, "Reloaded categories",
		klog.FieldOperation, klog.OpReload,
		klog.FieldCount, len(categories),
		"transactions", len(txs))

	if err := errors.Join(catErr, txErr); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

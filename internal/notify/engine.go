// Package notify produces, persists and ages the notifications shown on the
// categories page.
//
// Notifications come from two places: session notifications recorded when
// the user changes a category, and derived notifications computed from the
// current categories by a fixed set of rules. Session notifications and the
// set of read ids are kept in a key-value store; derived ones are recomputed
// on every refresh.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"kasa/internal/core"
	klog "kasa/internal/log"
	"kasa/internal/storage"
)

// Store keys.
const (
	KeyNotifications = "categoryNotifications"
	KeyReadIDs       = "readNotificationIds"
)

// Engine owns the visible notification list. It is safe for concurrent use.
// Read-modify-write cycles against the store are serialized within the
// process only; two processes sharing a store race with last-writer-wins.
type Engine struct {
	store storage.Store
	clock func() time.Time
	newID func() string
	rules []Rule
	log   *klog.Logger

	mu      sync.Mutex
	visible []core.Notification
}

type Option func(*Engine)

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

func WithLogger(l *klog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: time.Now,
		newID: uuid.NewString,
		rules: DefaultRules(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = klog.For(klog.ComponentNotify)
	}
	return e
}

// Refresh regenerates the visible list from the stored session notifications
// and the given category data. Expired session entries are removed from the
// store as a side effect.
func (e *Engine) Refresh(ctx context.Context, categories []core.Category, usage core.UsageCounts) []core.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	stored := e.loadSession(ctx)
	session := prune(stored, now)
	if len(session) != len(stored) {
		if err := e.saveSession(ctx, session, now); err != nil {
			e.log.WarnContext(ctx, "Failed to persist pruned notifications", klog.FieldError, err)
		}
	}

	e.visible = Generate(now, categories, usage, session, e.loadReadIDs(ctx), e.rules)
	e.log.DebugContext(ctx, "Notifications refreshed",
		klog.FieldCount, len(e.visible),
		"session", len(session))
	return slices.Clone(e.visible)
}

// MarkRead marks one notification read. Marking an already read id is not
// an error; an id that is neither a rule id nor a stored session
// notification is ignored and never persisted.
func (e *Engine) MarkRead(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.visible {
		if e.visible[i].ID == id {
			e.visible[i].IsRead = true
		}
	}
	return e.persistRead(ctx, map[string]bool{id: true})
}

// MarkAllRead marks every visible notification read.
func (e *Engine) MarkAllRead(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make(map[string]bool, len(e.visible))
	for i := range e.visible {
		e.visible[i].IsRead = true
		ids[e.visible[i].ID] = true
	}
	if len(ids) == 0 {
		return nil
	}
	return e.persistRead(ctx, ids)
}

// Add records a new unread session notification stamped now and puts it at
// the top of the visible list. The notification is kept in memory even when
// persisting it fails.
func (e *Engine) Add(ctx context.Context, typ core.NotificationType, title, message string) (core.Notification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	n := core.Notification{
		ID:        e.newID(),
		Title:     title,
		Message:   message,
		Type:      typ,
		Timestamp: now,
	}
	e.visible = append([]core.Notification{n}, e.visible...)

	session := append([]core.Notification{n}, e.loadSession(ctx)...)
	if err := e.saveSession(ctx, session, now); err != nil {
		return n, err
	}
	e.log.InfoContext(ctx, "Notification added",
		klog.FieldNotificationID, n.ID,
		"type", n.Type,
		"title", n.Title)
	return n, nil
}

// Visible returns the current notifications, newest first.
func (e *Engine) Visible() []core.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.visible)
}

func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, v := range e.visible {
		if !v.IsRead {
			n++
		}
	}
	return n
}

// Expire hides notifications that aged out by now without touching the
// store. It returns how many were hidden.
func (e *Engine) Expire(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := len(e.visible)
	e.visible = prune(e.visible, now)
	return before - len(e.visible)
}

// Timestamps returns the timestamps of the visible notifications.
func (e *Engine) Timestamps() []time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := make([]time.Time, len(e.visible))
	for i, n := range e.visible {
		ts[i] = n.Timestamp
	}
	return ts
}

// persistRead adds ids to the stored read set and marks them read in the
// stored session. The read set only keeps rule ids and ids of unexpired
// session notifications; anything else, including stale entries, is dropped.
func (e *Engine) persistRead(ctx context.Context, ids map[string]bool) error {
	now := e.clock()
	session := prune(e.loadSession(ctx), now)

	live := make(map[string]bool, len(e.rules)+len(session))
	for _, r := range e.rules {
		live[r.ID()] = true
	}
	for _, n := range session {
		live[n.ID] = true
	}

	stored := e.loadReadIDs(ctx)
	read := make(map[string]bool, len(stored)+len(ids))
	for id := range stored {
		if live[id] {
			read[id] = true
		}
	}
	for id := range ids {
		if live[id] {
			read[id] = true
		}
	}
	if !maps.Equal(read, stored) {
		if err := e.saveReadIDs(ctx, read); err != nil {
			return err
		}
	}

	changed := false
	for i := range session {
		if ids[session[i].ID] && !session[i].IsRead {
			session[i].IsRead = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return e.saveSession(ctx, session, now)
}

// loadSession returns the stored session notifications. A missing or
// unreadable value yields an empty list.
func (e *Engine) loadSession(ctx context.Context) []core.Notification {
	var ns []core.Notification
	if !e.load(ctx, KeyNotifications, &ns) {
		return nil
	}
	return ns
}

func (e *Engine) loadReadIDs(ctx context.Context) map[string]bool {
	var ids []string
	read := make(map[string]bool)
	if !e.load(ctx, KeyReadIDs, &ids) {
		return read
	}
	for _, id := range ids {
		read[id] = true
	}
	return read
}

func (e *Engine) load(ctx context.Context, key string, v any) bool {
	raw, err := e.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		e.log.WarnContext(ctx, "Failed to read notification state", klog.FieldStoreKey, key, klog.FieldError, err)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		e.log.WarnContext(ctx, "Discarding unreadable notification state",
			klog.FieldStoreKey, key,
			klog.FieldOperation, klog.OpParse,
			klog.FieldError, err)
		return false
	}
	return true
}

// saveSession writes the session list, dropping entries expired at now.
func (e *Engine) saveSession(ctx context.Context, ns []core.Notification, now time.Time) error {
	return e.save(ctx, KeyNotifications, prune(ns, now))
}

func (e *Engine) saveReadIDs(ctx context.Context, read map[string]bool) error {
	return e.save(ctx, KeyReadIDs, slices.Sorted(maps.Keys(read)))
}

func (e *Engine) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := e.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Package session holds the authoritative in-memory state for a tracking
// session and mirrors every mutation to the durable store. Mutations are
// optimistic: memory changes first, the aggregate document is replaced on
// the backend, and a failed replacement restores the captured pre-mutation
// value before the failure is surfaced.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astromechza/ticktrack/pkg/model"
)

var (
	ErrEmptyField     = errors.New("project and task must not be empty")
	ErrDuplicateTimer = errors.New("a timer for this project and task already exists")
	ErrTimerNotFound  = errors.New("no such timer")
	ErrNotRunning     = errors.New("timer is not running")
	ErrNotPaused      = errors.New("timer is not paused")
)

// Backend is the durable store contract the session synchronizes against.
// Each replace call submits the entire aggregate for its document.
type Backend interface {
	FetchEntries(ctx context.Context) ([]model.HistoricalEntry, error)
	FetchActive(ctx context.Context) (map[string]model.ActiveTimer, error)
	FetchSuggestions(ctx context.Context) ([]string, error)
	ReplaceEntries(ctx context.Context, entries []model.HistoricalEntry) error
	ReplaceActive(ctx context.Context, timers map[string]model.ActiveTimer) error
}

// Notifier receives re-render and failure notifications. The view layer
// implements it; the default discards everything.
type Notifier interface {
	StateChanged()
	SyncFailed(op string, err error)
}

type nopNotifier struct{}

func (nopNotifier) StateChanged() {}

func (nopNotifier) SyncFailed(op string, err error) {}

type Option func(*Session)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDFunc injects the timer id generator.
func WithIDFunc(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// WithNotifier injects the view-layer notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// Session is the single owner of the in-memory aggregate. The mutex is held
// for the whole of each mutation including its backend round trip, so two
// user actions can never interleave their rollbacks.
type Session struct {
	mu       sync.Mutex
	backend  Backend
	now      func() time.Time
	newID    func() string
	notifier Notifier

	entries     []model.HistoricalEntry
	active      map[string]model.ActiveTimer
	suggestions []string
}

func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		now:      time.Now,
		newID:    uuid.NewString,
		notifier: nopNotifier{},
		active:   make(map[string]model.ActiveTimer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the three documents. A history fetch failure is fatal —
// proceeding silently with an empty history would present losing the record
// of truth as a clean slate. Active timers and suggestions are recoverable
// and fall back to empty.
func (s *Session) Load(ctx context.Context) error {
	entries, err := s.backend.FetchEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	active, err := s.backend.FetchActive(ctx)
	if err != nil {
		slog.Error("failed to load active timers, starting empty", "err", err)
		active = make(map[string]model.ActiveTimer)
	}
	suggestions, err := s.backend.FetchSuggestions(ctx)
	if err != nil {
		slog.Error("failed to load suggestions, starting empty", "err", err)
		suggestions = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	if active == nil {
		active = make(map[string]model.ActiveTimer)
	}
	s.active = active
	s.suggestions = suggestions
	s.notifier.StateChanged()
	return nil
}

// finish resolves an optimistic mutation: on failure the rollback runs
// before any notification, so observers never see the half-applied state.
func (s *Session) finish(op string, err error, rollback func()) error {
	if err != nil {
		rollback()
		s.notifier.StateChanged()
		s.notifier.SyncFailed(op, err)
		return fmt.Errorf("%s failed: %w", op, err)
	}
	s.notifier.StateChanged()
	return nil
}

// Start creates a running timer. At most one timer may exist per
// case- and whitespace-folded (project, task) pair.
func (s *Session) Start(ctx context.Context, project, task, notes string) (string, error) {
	project = SanitizeField(project)
	task = SanitizeField(task)
	notes = SanitizeNotes(notes)
	if project == "" || task == "" {
		return "", ErrEmptyField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := timerKey(project, task)
	for _, t := range s.active {
		if timerKey(t.Project, t.Task) == key {
			return "", fmt.Errorf("%w: %s / %s", ErrDuplicateTimer, t.Project, t.Task)
		}
	}

	id := s.newID()
	now := model.Millis(s.now())
	start := now
	s.active[id] = model.ActiveTimer{
		Project:   project,
		Task:      task,
		StartTime: &start,
		Notes:     notes,
		CreatedAt: now,
	}

	err := s.backend.ReplaceActive(ctx, s.active)
	if err2 := s.finish("start", err, func() { delete(s.active, id) }); err2 != nil {
		return "", err2
	}
	return id, nil
}

// Pause banks the elapsed running time and freezes the timer.
func (s *Session) Pause(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTimerNotFound, id)
	}
	if prev.IsPaused || prev.StartTime == nil {
		return ErrNotRunning
	}

	t := prev
	t.AccumulatedMs += model.Millis(s.now()) - *t.StartTime
	if t.AccumulatedMs < 0 {
		t.AccumulatedMs = 0
	}
	t.StartTime = nil
	t.IsPaused = true
	s.active[id] = t

	err := s.backend.ReplaceActive(ctx, s.active)
	return s.finish("pause", err, func() { s.active[id] = prev })
}

// Resume restarts a paused timer; banked time is untouched until the next
// pause or stop.
func (s *Session) Resume(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTimerNotFound, id)
	}
	if !prev.IsPaused {
		return ErrNotPaused
	}

	t := prev
	start := model.Millis(s.now())
	t.StartTime = &start
	t.IsPaused = false
	s.active[id] = t

	err := s.backend.ReplaceActive(ctx, s.active)
	return s.finish("resume", err, func() { s.active[id] = prev })
}

// Stop finalizes the timer. Timers whose elapsed time rounds to zero
// seconds are discarded without a history record; otherwise the removal
// from the active set and the history append succeed or fail as one
// outcome.
func (s *Session) Stop(ctx context.Context, id string) (*model.HistoricalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTimerNotFound, id)
	}

	now := s.now()
	elapsed := prev.ElapsedMs(now)
	durationSeconds := (elapsed + 500) / 1000

	if durationSeconds == 0 {
		delete(s.active, id)
		err := s.backend.ReplaceActive(ctx, s.active)
		return nil, s.finish("stop", err, func() { s.active[id] = prev })
	}

	entry := model.HistoricalEntry{
		Project:         prev.Project,
		Task:            prev.Task,
		TotalDurationMs: elapsed,
		DurationSeconds: durationSeconds,
		EndTime:         model.Millis(now),
		CreatedAt:       prev.CreatedAt,
		Notes:           prev.Notes,
	}

	prevEntries := s.entries
	s.entries = append(s.entries, entry)
	delete(s.active, id)

	rollback := func() {
		s.entries = prevEntries
		s.active[id] = prev
	}

	// History first: if it fails nothing has been committed anywhere. If the
	// active write then fails, undo the history append so the documents do
	// not double count; should even that fail, the documents reconverge on
	// the next successful wholesale replacement.
	if err := s.backend.ReplaceEntries(ctx, s.entries); err != nil {
		return nil, s.finish("stop", err, rollback)
	}
	if err := s.backend.ReplaceActive(ctx, s.active); err != nil {
		if cerr := s.backend.ReplaceEntries(ctx, prevEntries); cerr != nil {
			slog.Error("failed to undo history append after active write failure", "err", cerr)
		}
		return nil, s.finish("stop", err, rollback)
	}
	s.notifier.StateChanged()
	return &entry, nil
}

// Delete discards the timer without leaving any historical trace.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTimerNotFound, id)
	}
	delete(s.active, id)

	err := s.backend.ReplaceActive(ctx, s.active)
	return s.finish("delete", err, func() { s.active[id] = prev })
}

// SetNotes replaces the timer's notes.
func (s *Session) SetNotes(ctx context.Context, id, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTimerNotFound, id)
	}
	t := prev
	t.Notes = SanitizeNotes(notes)
	s.active[id] = t

	err := s.backend.ReplaceActive(ctx, s.active)
	return s.finish("notes", err, func() { s.active[id] = prev })
}

// Entries returns a copy of the historical entries in insertion order.
func (s *Session) Entries() []model.HistoricalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.HistoricalEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ActiveTimers returns a copy of the active timer aggregate.
func (s *Session) ActiveTimers() map[string]model.ActiveTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.ActiveTimer, len(s.active))
	for id, t := range s.active {
		out[id] = t
	}
	return out
}

// Suggestions returns the input suggestion list.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Timer returns the timer with the given id, if present.
func (s *Session) Timer(id string) (model.ActiveTimer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.active[id]
	return t, ok
}

// ElapsedMs reports the timer's tracked time at this instant. Display
// refresh recomputes from the persisted fields each tick rather than
// accumulating drift.
func (s *Session) ElapsedMs(id string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.active[id]
	if !ok {
		return 0, false
	}
	return t.ElapsedMs(s.now()), true
}

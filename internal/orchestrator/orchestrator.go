// Package orchestrator turns user questions into backend queries for the active
// filter selection and keeps the resulting transcript.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/logger"
	"github.com/Yates-Labs/permitdesk/internal/selection"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a single query.
const DefaultTimeout = 90 * time.Second

var ErrNoSelection = errors.New("selection state is required")

// Querier sends one retrieval query. *backend.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, req backend.QueryRequest, opts *backend.QueryOptions) (*backend.QueryResponse, error)
}

// Phase is the submission state of the orchestrator.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// Config holds the orchestrator settings.
type Config struct {
	// Timeout bounds each query. Zero means DefaultTimeout.
	Timeout time.Duration

	// Overrides are optional retrieval parameters sent with every query.
	Overrides *backend.QueryOptions
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout}
}

// Snapshot is a consistent copy of the orchestrator's observable state.
type Snapshot struct {
	SessionID    string
	Phase        Phase
	Entries      []ConversationEntry
	ErrorMessage string
	Selection    selection.FilterSelection
}

// Orchestrator owns the transcript for the current filter selection. The
// transcript is discarded whenever the selection changes.
type Orchestrator struct {
	querier   Querier
	selection *selection.State
	cfg       Config
	log       logger.Logger

	mu         sync.Mutex
	sessionID  string
	phase      Phase
	entries    []ConversationEntry
	banner     string
	generation uint64

	observerMu   sync.Mutex
	observers    map[int]func(Snapshot)
	nextObserver int

	unsubscribe func()
}

// New creates an orchestrator bound to sel. Close releases the selection subscription.
func New(querier Querier, sel *selection.State, cfg Config, log logger.Logger) (*Orchestrator, error) {
	if querier == nil {
		return nil, errors.New("querier is required")
	}
	if sel == nil {
		return nil, ErrNoSelection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}

	o := &Orchestrator{
		querier:   querier,
		selection: sel,
		cfg:       cfg,
		log:       log,
		sessionID: uuid.NewString(),
		phase:     PhaseIdle,
		observers: make(map[int]func(Snapshot)),
	}
	o.unsubscribe = sel.Subscribe(o.onSelectionChange)
	return o, nil
}

// Close stops listening for selection changes.
func (o *Orchestrator) Close() {
	o.unsubscribe()
}

// Submit sends text as a question for the current selection and appends the
// user entry plus exactly one assistant entry. It returns false without sending
// anything when text is blank, a query is already in flight, or no category is
// selected. Submit blocks until the query finishes.
func (o *Orchestrator) Submit(ctx context.Context, text string) bool {
	query := strings.TrimSpace(text)
	if query == "" {
		return false
	}

	o.mu.Lock()
	// Read under mu so sel and generation describe the same session.
	sel := o.selection.Current()
	if o.phase != PhaseIdle || !sel.HasCategory() {
		o.mu.Unlock()
		return false
	}
	o.phase = PhaseSubmitting
	o.banner = ""
	o.entries = append(o.entries, userEntry(query))
	generation := o.generation
	sessionID := o.sessionID
	o.mu.Unlock()
	o.emit()

	req := backend.QueryRequest{Query: query, Folder: sel.Category, Region: sel.Region}

	o.log.Info("orchestrator", "query submitted", map[string]interface{}{
		"session_id": sessionID,
		"folder":     sel.CategoryValue(),
		"region":     sel.RegionValue(),
	})

	start := time.Now()
	resp, err := o.query(ctx, req)
	outcome := Classify(resp, err)

	details := map[string]interface{}{
		"session_id": sessionID,
		"latency_ms": time.Since(start).Milliseconds(),
		"failed":     outcome.Entry.Failed,
	}
	if err != nil {
		details["error"] = err
		o.log.Error("orchestrator", "query failed", details)
	} else {
		details["chunks"] = len(outcome.Entry.Evidence)
		o.log.Info("orchestrator", "query answered", details)
	}

	o.mu.Lock()
	o.phase = PhaseIdle
	stale := generation != o.generation
	if !stale {
		o.entries = append(o.entries, outcome.Entry)
		if outcome.Banner != "" {
			o.banner = outcome.Banner
		}
	}
	o.mu.Unlock()

	if stale {
		o.log.Warn("orchestrator", "dropped response for a discarded session", map[string]interface{}{
			"session_id": sessionID,
		})
	}
	o.emit()
	return true
}

func (o *Orchestrator) query(ctx context.Context, req backend.QueryRequest) (*backend.QueryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.querier.Query(ctx, req, o.cfg.Overrides)
	if err != nil && (errors.Is(err, backend.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, fmt.Errorf("%w after %s", backend.ErrTimeout, o.cfg.Timeout)
	}
	return resp, err
}

func (o *Orchestrator) onSelectionChange(prev, next selection.FilterSelection) {
	o.mu.Lock()
	o.entries = nil
	o.banner = ""
	o.generation++
	o.sessionID = uuid.NewString()
	sessionID := o.sessionID
	o.mu.Unlock()

	o.log.Debug("orchestrator", "selection changed, transcript cleared", map[string]interface{}{
		"session_id": sessionID,
		"folder":     next.CategoryValue(),
		"region":     next.RegionValue(),
	})
	o.emit()
}

// Transcript returns a copy of the current entries.
func (o *Orchestrator) Transcript() []ConversationEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneEntries(o.entries)
}

// ErrorMessage returns the error indicator text, or "" when it is clear.
func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.banner
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// DismissError clears the error indicator and leaves the transcript alone.
func (o *Orchestrator) DismissError() {
	o.mu.Lock()
	changed := o.banner != ""
	o.banner = ""
	o.mu.Unlock()
	if changed {
		o.emit()
	}
}

// Reset discards the transcript and starts a new session without touching
// the error indicator. A response still in flight is dropped.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.entries = nil
	o.generation++
	o.sessionID = uuid.NewString()
	o.mu.Unlock()
	o.emit()
}

// Snapshot returns a consistent copy of the observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	sel := o.selection.Current()
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		SessionID:    o.sessionID,
		Phase:        o.phase,
		Entries:      cloneEntries(o.entries),
		ErrorMessage: o.banner,
		Selection:    sel,
	}
}

// OnChange registers fn to be called after every state change and returns a
// func that removes it.
func (o *Orchestrator) OnChange(fn func(Snapshot)) func() {
	o.observerMu.Lock()
	id := o.nextObserver
	o.nextObserver++
	o.observers[id] = fn
	o.observerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.observerMu.Lock()
			delete(o.observers, id)
			o.observerMu.Unlock()
		})
	}
}

func (o *Orchestrator) emit() {
	o.observerMu.Lock()
	if len(o.observers) == 0 {
		o.observerMu.Unlock()
		return
	}
	ids := make([]int, 0, len(o.observers))
	for id := range o.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		observers = append(observers, o.observers[id])
	}
	o.observerMu.Unlock()

	snap := o.Snapshot()
	for _, fn := range observers {
		fn(snap)
	}
}

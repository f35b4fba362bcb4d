package service

import (
	"context"
	"errors"
	"sync"

	"voicebatch/internal/core/domain"
)

// ErrBatchAlreadyRunning is returned when starting a second active batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// ErrNoRunningBatch is returned when cancel is requested in idle state.
var ErrNoRunningBatch = errors.New("no running batch")

// BatchSnapshot is a point-in-time view of the most recent batch.
type BatchSnapshot struct {
	Session *domain.BatchSession `json:"session,omitempty"`
	Summary *domain.Summary      `json:"summary,omitempty"`
	Running bool                 `json:"running"`
}

// Runner owns the single allowed active batch. It executes the
// orchestrator on its own goroutine and mirrors progress onto an event bus
// so a host surface can poll without holding a callback into the run.
type Runner struct {
	orchestrator *Orchestrator
	bus          *EventBus

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	// view is the runner's own copy of the session, updated only through
	// the progress observer. The orchestrator mutates the original session
	// on its goroutine; Current never touches it.
	view    *domain.BatchSession
	summary *domain.Summary
}

// NewRunner creates an idle Runner publishing to the given bus.
func NewRunner(orchestrator *Orchestrator, bus *EventBus) *Runner {
	return &Runner{
		orchestrator: orchestrator,
		bus:          bus,
	}
}

// Start launches the session in the background. Only one batch may be
// active at a time.
func (r *Runner) Start(session *domain.BatchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrBatchAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	view := *session
	view.Jobs = append([]domain.ConversionJob(nil), session.Jobs...)
	r.view = &view
	r.summary = nil

	go r.run(ctx, session)
	return nil
}

func (r *Runner) run(ctx context.Context, session *domain.BatchSession) {
	observer := func(p domain.Progress) {
		r.mu.Lock()
		if p.Index >= 0 && p.Index < len(r.view.Jobs) {
			r.view.Jobs[p.Index] = p.Job
		}
		r.mu.Unlock()

		progress := p
		r.bus.Publish(Event{
			SessionID: session.ID,
			Type:      EventTypeProgress,
			Progress:  &progress,
		})
	}

	summary, err := r.orchestrator.Run(ctx, session, observer)

	r.mu.Lock()
	r.running = false
	r.cancel = nil
	r.summary = &summary
	r.mu.Unlock()

	if err != nil {
		r.bus.Publish(Event{
			SessionID: session.ID,
			Type:      EventTypeError,
			Message:   err.Error(),
		})
		return
	}
	r.bus.Publish(Event{
		SessionID: session.ID,
		Type:      EventTypeSummary,
		Summary:   &summary,
	})
}

// Cancel requests cooperative cancellation of the active batch. The job in
// flight finishes before the remaining queue is marked cancelled.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.cancel == nil {
		return ErrNoRunningBatch
	}
	r.cancel()
	return nil
}

// Current returns a snapshot of the most recent batch, if any.
func (r *Runner) Current() BatchSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := BatchSnapshot{Running: r.running}
	if r.view != nil {
		sessionCopy := *r.view
		sessionCopy.Jobs = append([]domain.ConversionJob(nil), r.view.Jobs...)
		snapshot.Session = &sessionCopy
	}
	if r.summary != nil {
		summaryCopy := *r.summary
		snapshot.Summary = &summaryCopy
	}
	return snapshot
}

// Events returns bus events newer than seq.
func (r *Runner) Events(seq int64) []Event {
	return r.bus.Since(seq)
}

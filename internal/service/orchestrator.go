package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"voicebatch/internal/core/domain"
	"voicebatch/internal/core/ports"
)

// Orchestrator drives the sequential batch-conversion workflow: one
// conversion at a time, per-job status tracking, and progress reporting.
type Orchestrator struct {
	converter ports.Converter
	store     ports.OutputStore
	logger    *zap.SugaredLogger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(converter ports.Converter, store ports.OutputStore, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		converter: converter,
		store:     store,
		logger:    logger,
	}
}

// Run processes every job in the session strictly in order. A failing job
// is recorded and the batch moves on; it never aborts the run. When ctx is
// cancelled the in-flight conversion finishes, and the remaining pending
// jobs are marked cancelled. The observer, when non-nil, is notified after
// every status transition.
func (o *Orchestrator) Run(ctx context.Context, session *domain.BatchSession, observer ports.ProgressObserver) (domain.Summary, error) {
	if session == nil {
		return domain.Summary{}, fmt.Errorf("batch session is required")
	}
	if session.Voice.ID == "" {
		return domain.Summary{}, fmt.Errorf("batch session has no target voice")
	}

	summary := domain.Summary{}
	total := len(session.Jobs)
	o.logger.Infow("starting batch",
		"session_id", session.ID,
		"voice", session.Voice.Name,
		"jobs", total,
	)

	for i := range session.Jobs {
		job := &session.Jobs[i]

		// Cooperative cancellation, checked only at job boundaries so an
		// in-flight conversion always runs to completion.
		if err := ctx.Err(); err != nil {
			o.markCancelled(session, i, total, &summary, observer)
			break
		}

		o.runJob(ctx, session, i, total, observer)

		switch job.Status {
		case domain.JobStatusSucceeded:
			summary.Succeeded++
			summary.TotalBytes += job.OutputBytes
		case domain.JobStatusFailed:
			summary.Failed++
		}
	}

	o.logger.Infow("batch finished",
		"session_id", session.ID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
	)
	return summary, nil
}

// runJob converts a single file and moves the job to a terminal status.
func (o *Orchestrator) runJob(ctx context.Context, session *domain.BatchSession, index, total int, observer ports.ProgressObserver) {
	job := &session.Jobs[index]

	_ = job.Transition(domain.JobStatusInProgress)
	o.notify(observer, index, total, *job)
	o.logger.Infow("converting file",
		"session_id", session.ID,
		"job_id", job.ID,
		"source", job.SourcePath,
	)

	source, err := os.Open(job.SourcePath)
	if err != nil {
		o.fail(job, index, total, observer, domain.NewConversionError(domain.ErrorKindIO,
			fmt.Sprintf("cannot open %s", job.SourcePath), err))
		return
	}

	// Cancellation is honored only between jobs: the conversion in flight
	// and its output write always run to completion, so they get a context
	// detached from the batch's cancellation signal.
	callCtx := context.WithoutCancel(ctx)

	audio, err := o.converter.Convert(callCtx, session.Voice.ID, source, session.Settings)
	source.Close()
	if err != nil {
		o.fail(job, index, total, observer, err)
		return
	}

	outPath, err := o.store.Write(callCtx, session.OutputDir, filepath.Base(job.SourcePath), audio)
	if err != nil {
		o.fail(job, index, total, observer, err)
		return
	}

	job.OutputPath = outPath
	job.OutputBytes = int64(len(audio))
	_ = job.Transition(domain.JobStatusSucceeded)
	o.notify(observer, index, total, *job)
	o.logger.Infow("file converted",
		"session_id", session.ID,
		"job_id", job.ID,
		"output", outPath,
		"bytes", len(audio),
	)
}

// fail records the error message on the job and reports the transition.
func (o *Orchestrator) fail(job *domain.ConversionJob, index, total int, observer ports.ProgressObserver, err error) {
	job.ErrorMessage = err.Error()
	_ = job.Transition(domain.JobStatusFailed)
	o.notify(observer, index, total, *job)
	o.logger.Errorw("conversion failed",
		"job_id", job.ID,
		"source", job.SourcePath,
		"kind", domain.KindOf(err),
		"error", err,
	)
}

// markCancelled moves every still-pending job from index on to cancelled.
func (o *Orchestrator) markCancelled(session *domain.BatchSession, from, total int, summary *domain.Summary, observer ports.ProgressObserver) {
	for i := from; i < len(session.Jobs); i++ {
		job := &session.Jobs[i]
		if job.Status != domain.JobStatusPending {
			continue
		}
		_ = job.Transition(domain.JobStatusCancelled)
		summary.Cancelled++
		o.notify(observer, i, total, *job)
	}
	o.logger.Infow("batch cancelled",
		"session_id", session.ID,
		"remaining", summary.Cancelled,
	)
}

func (o *Orchestrator) notify(observer ports.ProgressObserver, index, total int, job domain.ConversionJob) {
	if observer != nil {
		observer(domain.Progress{Index: index, Total: total, Job: job})
	}
}

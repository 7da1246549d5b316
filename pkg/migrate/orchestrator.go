// Package migrate is the migration engine : it moves table data between a
// source and a target endpoint, table by table, with bounded parallelism and
// per table failure isolation.
package migrate

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

// Orchestrator runs one job : it admits table migrators FIFO under the job's
// concurrency limit and aggregates their results. Snapshot may be called at
// any time, including mid run. One table's failure never stops its siblings.
type Orchestrator struct {
	provider connection.Provider
	job      Job
	runID    string
	progress *tracker
	stop     chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

// New validates the job and prepares an orchestrator for it.
func New(provider connection.Provider, job Job, log zerolog.Logger) (*Orchestrator, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		provider: provider,
		job:      job,
		runID:    uid.String(),
		progress: newTracker(uid.String(), job.Tables),
		stop:     make(chan struct{}),
		log:      log.With().Str("run_id", uid.String()).Logger(),
	}, nil
}

func (o *Orchestrator) RunID() string { return o.runID }

// Snapshot returns a point-in-time copy of the report.
func (o *Orchestrator) Snapshot() *Report { return o.progress.snapshot() }

// Cancel stops admitting new tables and signals active migrators to stop
// after their current batch. Safe to call more than once.
func (o *Orchestrator) Cancel() {
	o.stopOnce.Do(func() { close(o.stop) })
}

// Run executes the job to completion and returns the final report. The
// returned error is non nil only for whole job failures (connection errors);
// per table failures are captured in the report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.progress.start()

	source, err := o.provider.Connect(ctx, o.job.Source)
	if err != nil {
		return o.fatal(&ConnectionError{Endpoint: "source", Err: err})
	}
	defer source.Close()
	target, err := o.provider.Connect(ctx, o.job.Target)
	if err != nil {
		return o.fatal(&ConnectionError{Endpoint: "target", Err: err})
	}
	defer target.Close()
	if err := o.provider.TestConnection(ctx, source); err != nil {
		return o.fatal(&ConnectionError{Endpoint: "source", Err: err})
	}
	if err := o.provider.TestConnection(ctx, target); err != nil {
		return o.fatal(&ConnectionError{Endpoint: "target", Err: err})
	}
	o.log.Info().Int("tables", len(o.job.Tables)).
		Int("batch_size", o.job.BatchSize).
		Int("concurrency", o.job.Concurrency).
		Msg("job started")

	// fold parent context cancellation into the shared stop token so active
	// workers still stop at a batch boundary
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			o.Cancel()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	var g errgroup.Group
	g.SetLimit(o.job.Concurrency)
	for _, spec := range o.job.Tables {
		if o.stopped() {
			// tables never admitted stay pending
			break
		}
		w := &tableMigrator{
			provider:  o.provider,
			source:    source,
			target:    target,
			table:     spec.Name,
			batchSize: o.job.BatchSize,
			progress:  o.progress,
			stop:      o.stop,
			log:       o.log,
		}
		g.Go(func() error {
			w.migrate(ctx)
			return nil
		})
	}
	_ = g.Wait()

	o.progress.finish()
	rep := o.progress.snapshot()
	o.log.Info().Str("overall", string(rep.Overall)).
		Int64("rows_migrated", rep.RowsMigrated).
		Msg("job finished")
	return rep, nil
}

func (o *Orchestrator) fatal(err *ConnectionError) (*Report, error) {
	o.progress.finish()
	o.log.Error().Err(err).Msg("job aborted before dispatch")
	return o.progress.snapshot(), err
}

func (o *Orchestrator) stopped() bool {
	select {
	case <-o.stop:
		return true
	default:
		return false
	}
}

package migrate

import (
	"sync"
	"time"
)

// tracker is the synchronized progress aggregator. It is owned by the
// Orchestrator and injected into every table migrator; all mutating calls are
// safe under concurrent use. Snapshots are deep copies and never block the
// migrators for longer than the copy.
type tracker struct {
	mu         sync.Mutex
	runID      string
	order      []string
	tables     map[string]*TableResult
	startedAt  time.Time
	finishedAt time.Time
}

func newTracker(runID string, specs []TableSpec) *tracker {
	t := &tracker{
		runID:  runID,
		order:  make([]string, 0, len(specs)),
		tables: make(map[string]*TableResult, len(specs)),
	}
	for _, s := range specs {
		t.order = append(t.order, s.Name)
		t.tables[s.Name] = &TableResult{Table: s.Name, Status: StatusPending}
	}
	return t
}

func (t *tracker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = time.Now()
}

func (t *tracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = time.Now()
}

// record adds a completed batch's row count to a table. Only called after the
// batch was written, so partially failed batches contribute nothing.
func (t *tracker) record(table string, rowsInBatch int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.tables[table]; ok && !tr.Status.Terminal() {
		tr.RowsMigrated += int64(rowsInBatch)
	}
}

// setStatus transitions a table. Transitions out of a terminal status are
// ignored, which keeps already succeeded tables untouched on cancellation.
func (t *tracker) setStatus(table string, s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.tables[table]
	if !ok || tr.Status.Terminal() {
		return
	}
	tr.Status = s
	now := time.Now()
	if s == StatusRunning && tr.StartedAt.IsZero() {
		tr.StartedAt = now
	}
	if s.Terminal() {
		tr.FinishedAt = now
	}
}

// fail marks a table failed and captures the error detail.
func (t *tracker) fail(table string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.tables[table]
	if !ok || tr.Status.Terminal() {
		return
	}
	tr.Status = StatusFailed
	tr.Error = err.Error()
	tr.FinishedAt = time.Now()
}

// snapshot returns a point-in-time copy of the whole report.
func (t *tracker) snapshot() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	rep := &Report{
		RunID:      t.runID,
		Tables:     make(map[string]TableResult, len(t.tables)),
		Order:      append([]string(nil), t.order...),
		StartedAt:  t.startedAt,
		FinishedAt: t.finishedAt,
	}
	for name, tr := range t.tables {
		rep.Tables[name] = *tr
		rep.RowsMigrated += tr.RowsMigrated
		switch tr.Status {
		case StatusSucceeded:
			rep.TablesSucceeded++
		case StatusFailed:
			rep.TablesFailed++
		case StatusCancelled:
			rep.TablesCancelled++
		case StatusRunning:
			rep.TablesRunning++
		case StatusPending:
			rep.TablesPending++
		}
	}
	rep.Overall = deriveOverall(rep.Tables)
	return rep
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/snowferry/snowferry/pkg/migrate"
	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/state"
)

// RunningJob wraps one orchestrator run for API consumption.
type RunningJob struct {
	ID   string
	orch *migrate.Orchestrator
	done chan struct{}

	mu     sync.Mutex
	runErr error
}

// Snapshot returns the current point-in-time report.
func (j *RunningJob) Snapshot() *migrate.Report { return j.orch.Snapshot() }

// Cancel asks the run to stop after current batches.
func (j *RunningJob) Cancel() { j.orch.Cancel() }

// Done reports whether the run goroutine has finished.
func (j *RunningJob) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// RunErr is the whole-job error (connection failure), nil otherwise.
func (j *RunningJob) RunErr() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runErr
}

func (j *RunningJob) setRunErr(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runErr = err
}

// JobStore is an in-memory registry of submitted jobs keyed by run id.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*RunningJob
	ids  []string
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*RunningJob)}
}

func (s *JobStore) Add(j *RunningJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	s.ids = append(s.ids, j.ID)
}

func (s *JobStore) Get(id string) *RunningJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) All() []*RunningJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RunningJob, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.jobs[id])
	}
	return out
}

type jobResponse struct {
	RunID  string          `json:"run_id"`
	Report *migrate.Report `json:"report"`
	Error  string          `json:"error,omitempty"`
}

// SubmitJob accepts a job config, starts it and returns the run id handle.
func (s *Server) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid job body: "+err.Error(), http.StatusBadRequest)
		return
	}
	job := migrate.JobFromConfig(&cfg)
	orch, err := migrate.New(s.Provider, job, s.Log)
	if err != nil {
		if errors.Is(err, migrate.ErrInvalidJobConfig) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rj := &RunningJob{ID: orch.RunID(), orch: orch, done: make(chan struct{})}
	s.Jobs.Add(rj)
	if s.State != nil {
		s.State.InitRunLog(rj.ID, len(job.Tables))
		for _, t := range job.Tables {
			s.State.InitTableRunLog(rj.ID, t.Name)
		}
	}

	go func() {
		defer close(rj.done)
		rep, runErr := orch.Run(context.Background())
		rj.setRunErr(runErr)
		state.RecordReport(s.State, rep, runErr)
		s.Log.Info().Str("run_id", rj.ID).Str("overall", string(rep.Overall)).Msg("submitted job finished")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(jobResponse{RunID: rj.ID, Report: orch.Snapshot()})
}

// ListJobs returns a snapshot of every submitted job, oldest first.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.Jobs.All()
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, s.jobResponse(j))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// GetJob returns the current snapshot of one job.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	j := s.Jobs.Get(chi.URLParam(r, "id"))
	if j == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.jobResponse(j))
}

// CancelJob requests cooperative cancellation of a running job.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	j := s.Jobs.Get(chi.URLParam(r, "id"))
	if j == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	j.Cancel()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) jobResponse(j *RunningJob) jobResponse {
	resp := jobResponse{RunID: j.ID, Report: j.Snapshot()}
	if err := j.RunErr(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}


package migrate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

// TableSpec : one selected table. Unique by name within a job.
type TableSpec struct {
	Name         string `json:"name"`
	RowCountHint int64  `json:"row_count_hint,omitempty"`
}

// Job describes one migration run. Immutable once handed to an Orchestrator.
type Job struct {
	Source      config.Endpoint `json:"source"`
	Target      config.Endpoint `json:"target"`
	Tables      []TableSpec     `json:"tables"`
	BatchSize   int             `json:"batch_size"`
	Concurrency int             `json:"concurrency"`
}

// JobFromConfig maps a decoded job.json onto a Job.
func JobFromConfig(cfg *config.Config) Job {
	tables := make([]TableSpec, 0, len(cfg.TableList))
	for _, t := range cfg.TableList {
		tables = append(tables, TableSpec{Name: t})
	}
	return Job{
		Source:      cfg.Source,
		Target:      cfg.Target,
		Tables:      tables,
		BatchSize:   cfg.BatchRecordSize,
		Concurrency: cfg.MaxConcurrency,
	}
}

// Validate rejects unusable jobs before any work starts.
func (j Job) Validate() error {
	var verr error
	if len(j.Tables) == 0 {
		verr = multierror.Append(verr, fmt.Errorf("table list must not be empty"))
	}
	if j.BatchSize < 1 {
		verr = multierror.Append(verr, fmt.Errorf("batch size must be >= 1, got %d", j.BatchSize))
	}
	if j.Concurrency < 1 {
		verr = multierror.Append(verr, fmt.Errorf("concurrency must be >= 1, got %d", j.Concurrency))
	}
	seen := make(map[string]bool, len(j.Tables))
	for _, t := range j.Tables {
		if t.Name == "" {
			verr = multierror.Append(verr, fmt.Errorf("table name must not be empty"))
			continue
		}
		if seen[t.Name] {
			verr = multierror.Append(verr, fmt.Errorf("table %s selected more than once", t.Name))
		}
		seen[t.Name] = true
	}
	if verr != nil {
		return fmt.Errorf("%w : %v", ErrInvalidJobConfig, verr)
	}
	return nil
}

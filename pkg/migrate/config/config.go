package config

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// Config : configuration for one migration job, usually decoded from job.json
type Config struct {
	MaxConcurrency  int      `json:"max_concurrency"`
	BatchRecordSize int      `json:"max_batch_record_size"`
	TableList       []string `json:"table_list"`
	Source          Endpoint `json:"source"`
	Target          Endpoint `json:"target"`
}

// Load reads a job config file off the given filesystem.
func Load(fs afero.Fs, path string) (*Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("could not read job config %s : %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse job config %s : %w", path, err)
	}
	return &cfg, nil
}

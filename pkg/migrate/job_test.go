package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

func TestJobFromConfig(t *testing.T) {
	cfg := &config.Config{
		MaxConcurrency:  4,
		BatchRecordSize: 2000,
		TableList:       []string{"users", "orders"},
		Source:          config.Endpoint{Driver: config.DriverMySQL, DB: "app"},
		Target:          config.Endpoint{Driver: config.DriverSnowflake, Schema: "PUBLIC"},
	}

	job := JobFromConfig(cfg)
	assert.Equal(t, 4, job.Concurrency)
	assert.Equal(t, 2000, job.BatchSize)
	assert.Equal(t, []TableSpec{{Name: "users"}, {Name: "orders"}}, job.Tables)
	assert.Equal(t, config.DriverMySQL, job.Source.Driver)
	assert.Equal(t, config.DriverSnowflake, job.Target.Driver)
	assert.NoError(t, job.Validate())
}

func TestJobValidateAggregatesProblems(t *testing.T) {
	err := Job{Tables: []TableSpec{{Name: ""}, {Name: "t"}, {Name: "t"}}}.Validate()
	assert.ErrorIs(t, err, ErrInvalidJobConfig)
	assert.ErrorContains(t, err, "batch size must be >= 1")
	assert.ErrorContains(t, err, "concurrency must be >= 1")
	assert.ErrorContains(t, err, "table name must not be empty")
	assert.ErrorContains(t, err, "selected more than once")
}

package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "job.json", []byte(`
	{
		"max_concurrency": 4,
		"max_batch_record_size": 2000,
		"table_list": ["users", "orders"],
		"source": {
			"driver": "mysql",
			"host": "127.0.0.1",
			"port": 3306,
			"user_name": "root",
			"password": "hunter2",
			"db": "app"
		},
		"target": {
			"driver": "snowflake",
			"user_name": "loader",
			"password": "hunter2",
			"account": "xy12345",
			"db": "ANALYTICS",
			"schema": "PUBLIC",
			"ware_house": "LOAD_WH",
			"role": "SYSADMIN"
		}
	}`), 0o644))

	cfg, err := Load(fs, "job.json")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 2000, cfg.BatchRecordSize)
	assert.Equal(t, []string{"users", "orders"}, cfg.TableList)
	assert.Equal(t, DriverMySQL, cfg.Source.Driver)
	assert.Equal(t, "app", cfg.Source.DB)
	assert.Equal(t, DriverSnowflake, cfg.Target.Driver)
	assert.Equal(t, "LOAD_WH", cfg.Target.Warehouse)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "nope.json")
	assert.ErrorContains(t, err, "could not read job config")
}

func TestLoadMalformedJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "job.json", []byte(`{"max_concurrency": `), 0o644))
	_, err := Load(fs, "job.json")
	assert.ErrorContains(t, err, "could not parse job config")
}

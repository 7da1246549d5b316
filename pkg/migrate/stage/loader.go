// Package stage implements the bulk-load path for snowflake targets : each
// batch is spilled to CSV, uploaded to the stage's S3 bucket and loaded with
// COPY INTO. Plain INSERTs round-trip every value through the query protocol;
// COPY keeps large tables off that path.
package stage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

const defaultMaxRetry = 3

// Loader satisfies connection.Stager.
type Loader struct {
	FS           afero.Fs
	Uploader     s3iface.S3API
	Bucket       string
	KeyPrefix    string
	StageName    string
	MaxRetry     int
	TmpDirPrefix string
	Log          zerolog.Logger
}

// NewLoader builds a loader for a snowflake target endpoint. Spill and key
// prefixes are run scoped so concurrent runs never collide.
func NewLoader(target config.Endpoint, log zerolog.Logger) (*Loader, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	writeDir := os.Getenv("WRITE_DIR")
	if writeDir == "" {
		writeDir = "./tmp"
	}
	keyPrefix := target.S3.PrefixOverride
	if keyPrefix == "" {
		keyPrefix = "files"
	}
	return &Loader{
		FS:           afero.NewOsFs(),
		Uploader:     s3.New(session.Must(session.NewSession(aws.NewConfig()))),
		Bucket:       target.S3.Bucket,
		KeyPrefix:    filepath.Join(keyPrefix, "run_id="+uid.String()),
		StageName:    target.Stage,
		MaxRetry:     defaultMaxRetry,
		TmpDirPrefix: filepath.Join(writeDir, "run_id="+uid.String()),
		Log:          log,
	}, nil
}

// Load spills one batch to CSV, uploads it and COPYs it into the table.
func (l *Loader) Load(ctx context.Context, sess connection.Session, table string, cols []string, rows []connection.Row) error {
	db, err := connection.SQLDB(sess)
	if err != nil {
		return err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.csv", filepath.Base(table), uid.String())
	local := filepath.Join(l.TmpDirPrefix, name)
	key := filepath.Join(l.KeyPrefix, name)

	if err := l.writeCSV(local, rows); err != nil {
		return err
	}
	defer func() {
		_ = l.FS.Remove(local)
	}()
	if err := l.upload(local, key); err != nil {
		return err
	}

	copyStmt := fmt.Sprintf(
		"COPY INTO %s FROM '@%s/%s' FILE_FORMAT = (TYPE = CSV FIELD_OPTIONALLY_ENCLOSED_BY = '\"' NULL_IF = ('')) ON_ERROR = 'ABORT_STATEMENT'",
		table, l.StageName, key)
	if _, err := db.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("%s : COPY INTO from stage key %s failed : %w", table, key, err)
	}
	l.Log.Debug().Str("table", table).Str("key", key).Int("rows", len(rows)).Msg("staged batch loaded")
	return nil
}

func (l *Loader) writeCSV(path string, rows []connection.Row) error {
	if err := l.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := l.FS.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	record := make([]string, 0, 16)
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			if v == nil {
				record = append(record, "")
			} else {
				record = append(record, fmt.Sprint(v))
			}
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// upload pushes the spilled file with a bounded retry. Exhausting the retry
// budget fails the batch, and with it the owning table.
func (l *Loader) upload(local string, key string) error {
	var (
		retryCtr int
		err      error
	)
	maxRetry := l.MaxRetry
	if maxRetry < 1 {
		maxRetry = defaultMaxRetry
	}
	for retryCtr < maxRetry {
		var f afero.File
		f, err = l.FS.Open(local)
		if err != nil {
			return err
		}
		_, err = l.Uploader.PutObject(&s3.PutObjectInput{
			Body:   f,
			Bucket: &l.Bucket,
			Key:    &key,
		})
		f.Close()
		if err == nil {
			return nil
		}
		retryCtr++
	}
	return fmt.Errorf("attempted uploading key (%s) %d times with no success : original_err=%w", key, retryCtr, err)
}

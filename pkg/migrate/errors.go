package migrate

import (
	"errors"
	"fmt"
)

// ErrInvalidJobConfig is returned before any work starts when the job
// description is unusable (empty table list, bad batch size or concurrency).
var ErrInvalidJobConfig = errors.New("invalid job config")

// ConnectionError : session establishment or connectivity probe failure.
// Fatal to the whole job, no table is dispatched.
type ConnectionError struct {
	Endpoint string // "source" or "target"
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection : %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ReadError : a batch read failed. Local to the owning table.
type ReadError struct {
	Table string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s : batch read : %v", e.Table, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError : a batch write failed. Local to the owning table.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s : batch write : %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

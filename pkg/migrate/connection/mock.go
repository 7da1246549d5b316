package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

// MockProvider is an in-memory Provider used by the test suites and for
// wiring the engine up without real databases. Failures can be injected at
// specific batch numbers to exercise the failure isolation paths.
type MockProvider struct {
	mu      sync.Mutex
	source  map[string][]Row
	target  map[string][]Row
	fetches map[string]int
	inserts map[string]int

	failReadAt  map[string]int // 1-based batch number that errors on fetch
	failWriteAt map[string]int // 1-based batch number that errors on insert
	connectErr  error

	// FetchHook and InsertHook run before the corresponding call is served,
	// outside the provider lock. batch is 1-based.
	FetchHook  func(table string, batch int)
	InsertHook func(table string, batch int)
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		source:      make(map[string][]Row),
		target:      make(map[string][]Row),
		fetches:     make(map[string]int),
		inserts:     make(map[string]int),
		failReadAt:  make(map[string]int),
		failWriteAt: make(map[string]int),
	}
}

// SeedSource replaces the source rows of a table.
func (m *MockProvider) SeedSource(table string, rows []Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source[table] = rows
}

// SeedRowCount seeds n generated rows into a source table.
func (m *MockProvider) SeedRowCount(table string, n int) {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{int64(i + 1), fmt.Sprintf("%s-%d", table, i+1)}
	}
	m.SeedSource(table, rows)
}

// TargetRows returns a copy of what has been inserted into a target table.
func (m *MockProvider) TargetRows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.target[table]))
	copy(out, m.target[table])
	return out
}

// FailReadAtBatch makes the n-th (1-based) fetch of table error.
func (m *MockProvider) FailReadAtBatch(table string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReadAt[table] = n
}

// FailWriteAtBatch makes the n-th (1-based) insert into table error.
func (m *MockProvider) FailWriteAtBatch(table string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWriteAt[table] = n
}

// SetConnectErr makes Connect and TestConnection fail.
func (m *MockProvider) SetConnectErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// Fetches returns how many FetchBatch calls table has served.
func (m *MockProvider) Fetches(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[table]
}

// Inserts returns how many InsertBatch calls table has served.
func (m *MockProvider) Inserts(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts[table]
}

type mockSession struct{}

func (mockSession) Ping(context.Context) error { return nil }
func (mockSession) Close() error               { return nil }

func (m *MockProvider) Connect(_ context.Context, _ config.Endpoint) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return mockSession{}, nil
}

func (m *MockProvider) TestConnection(_ context.Context, _ Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectErr
}

func (m *MockProvider) FetchBatch(_ context.Context, _ Session, table string, cur Cursor, size int) ([]Row, Cursor, bool, error) {
	m.mu.Lock()
	m.fetches[table]++
	batch := m.fetches[table]
	hook := m.FetchHook
	m.mu.Unlock()
	if hook != nil {
		hook(table, batch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.failReadAt[table]; n != 0 && n == batch {
		return nil, nil, false, fmt.Errorf("injected read failure on %s batch %d", table, batch)
	}
	src := m.source[table]
	off := int(offsetOf(cur))
	if off > len(src) {
		off = len(src)
	}
	end := off + size
	if end > len(src) {
		end = len(src)
	}
	out := make([]Row, end-off)
	copy(out, src[off:end])
	return out, int64(end), len(out) < size, nil
}

func (m *MockProvider) InsertBatch(_ context.Context, _ Session, table string, rows []Row) error {
	m.mu.Lock()
	m.inserts[table]++
	batch := m.inserts[table]
	hook := m.InsertHook
	m.mu.Unlock()
	if hook != nil {
		hook(table, batch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.failWriteAt[table]; n != 0 && n == batch {
		return fmt.Errorf("injected write failure on %s batch %d", table, batch)
	}
	m.target[table] = append(m.target[table], rows...)
	return nil
}

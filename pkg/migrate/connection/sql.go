package connection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

// SQLProvider implements Provider on top of database/sql. Reads page through
// the table with LIMIT/OFFSET, writes are multi row INSERTs. When a Stager is
// configured, snowflake targets load through it instead of plain INSERTs.
type SQLProvider struct {
	MaxConcurrency int
	Stager         Stager
	Log            zerolog.Logger
}

func NewSQLProvider(maxConc int, log zerolog.Logger) *SQLProvider {
	return &SQLProvider{MaxConcurrency: maxConc, Log: log}
}

type sqlSession struct {
	db *sql.DB
	ep config.Endpoint

	mu   sync.Mutex
	cols map[string][]string
}

func (s *sqlSession) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlSession) Close() error {
	return s.db.Close()
}

// NewSQLSession wraps an already dialed db handle in a Session. Dialing
// through Connect is the usual path; this exists for callers that manage
// their own handles.
func NewSQLSession(db *sql.DB, ep config.Endpoint) Session {
	return &sqlSession{db: db, ep: ep, cols: make(map[string][]string)}
}

// SQLDB unwraps the raw db handle behind a Session dialed by SQLProvider.
// Used by table discovery and the stage loader, never by the engine.
func SQLDB(sess Session) (*sql.DB, error) {
	s, ok := sess.(*sqlSession)
	if !ok {
		return nil, fmt.Errorf("session is not backed by database/sql")
	}
	return s.db, nil
}

// Endpoint returns the endpoint a Session was dialed against.
func EndpointOf(sess Session) (config.Endpoint, error) {
	s, ok := sess.(*sqlSession)
	if !ok {
		return config.Endpoint{}, fmt.Errorf("session is not backed by database/sql")
	}
	return s.ep, nil
}

func (p *SQLProvider) Connect(ctx context.Context, ep config.Endpoint) (Session, error) {
	db, err := Dial(ep, p.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s : could not ping endpoint : %w", ep.Driver, err)
	}
	return &sqlSession{db: db, ep: ep, cols: make(map[string][]string)}, nil
}

func (p *SQLProvider) TestConnection(ctx context.Context, sess Session) error {
	s, ok := sess.(*sqlSession)
	if !ok {
		return fmt.Errorf("session is not backed by database/sql")
	}
	var res string
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&res); err != nil {
		return fmt.Errorf("%s : connectivity probe failed : %w", s.ep.Driver, err)
	}
	if res != "1" {
		return fmt.Errorf("%s : connectivity probe returned %q", s.ep.Driver, res)
	}
	return nil
}

func (p *SQLProvider) FetchBatch(ctx context.Context, sess Session, table string, cur Cursor, size int) ([]Row, Cursor, bool, error) {
	s, ok := sess.(*sqlSession)
	if !ok {
		return nil, nil, false, fmt.Errorf("session is not backed by database/sql")
	}
	off := offsetOf(cur)
	cols, err := s.columns(ctx, table)
	if err != nil {
		return nil, nil, false, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s LIMIT %d OFFSET %d",
		s.columnList(cols), s.qualify(table), size, off)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%s : batch read failed : %w", table, err)
	}
	defer rows.Close()

	out := make([]Row, 0, size)
	holders := make([]any, len(cols))
	raw := make([]sql.RawBytes, len(cols))
	for i := range raw {
		holders[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(holders...); err != nil {
			return nil, nil, false, fmt.Errorf("%s : batch scan failed : %w", table, err)
		}
		row := make(Row, len(cols))
		for i, v := range raw {
			if v == nil {
				row[i] = nil
			} else {
				row[i] = string(v)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, fmt.Errorf("%s : batch read failed : %w", table, err)
	}
	next := off + int64(len(out))
	return out, next, len(out) < size, nil
}

func (p *SQLProvider) InsertBatch(ctx context.Context, sess Session, table string, batch []Row) error {
	if len(batch) == 0 {
		return nil
	}
	s, ok := sess.(*sqlSession)
	if !ok {
		return fmt.Errorf("session is not backed by database/sql")
	}
	cols, err := s.columns(ctx, table)
	if err != nil {
		return err
	}
	if p.Stager != nil && s.ep.Driver == config.DriverSnowflake {
		return p.Stager.Load(ctx, sess, s.qualify(table), cols, batch)
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(batch)*len(cols))
	)
	sb.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES ", s.qualify(table), s.columnList(cols)))
	n := 0
	for i, row := range batch {
		if len(row) != len(cols) {
			return fmt.Errorf("%s : row has %d values, table has %d columns", table, len(row), len(cols))
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			n++
			if s.ep.Driver == config.DriverPostgres {
				sb.WriteString(fmt.Sprintf("$%d", n))
			} else {
				sb.WriteByte('?')
			}
			args = append(args, row[j])
		}
		sb.WriteByte(')')
	}
	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("%s : batch write failed : %w", table, err)
	}
	return nil
}

// columns resolves and caches the column order of a table. Fetch and insert
// both use it so the row shape lines up on either side.
func (s *sqlSession) columns(ctx context.Context, table string) ([]string, error) {
	s.mu.Lock()
	if cols, ok := s.cols[table]; ok {
		s.mu.Unlock()
		return cols, nil
	}
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", s.qualify(table)))
	if err != nil {
		return nil, fmt.Errorf("%s : could not resolve columns : %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s : could not resolve columns : %w", table, err)
	}

	s.mu.Lock()
	s.cols[table] = cols
	s.mu.Unlock()
	return cols, nil
}

func (s *sqlSession) qualify(table string) string {
	return s.quoteIdent(s.ep.QualifyTable(table))
}

func (s *sqlSession) columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.quoteIdent(c)
	}
	return strings.Join(quoted, ",")
}

// quoteIdent backtick-quotes identifiers on mysql. Snowflake and postgres
// resolve unquoted identifiers case insensitively, so they pass through.
func (s *sqlSession) quoteIdent(ident string) string {
	if s.ep.Driver != config.DriverMySQL {
		return ident
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = "`" + p + "`"
	}
	return strings.Join(parts, ".")
}

func offsetOf(cur Cursor) int64 {
	if cur == nil {
		return 0
	}
	off, _ := cur.(int64)
	return off
}

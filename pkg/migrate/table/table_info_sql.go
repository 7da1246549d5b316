package table

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

// NewInfoFetcher builds a fetcher for a session dialed by the SQL provider.
func NewInfoFetcher(sess connection.Session) (InfoFetcher, error) {
	db, err := connection.SQLDB(sess)
	if err != nil {
		return nil, err
	}
	ep, err := connection.EndpointOf(sess)
	if err != nil {
		return nil, err
	}
	return &infoFetcherSQL{db: db, ep: ep}, nil
}

type infoFetcherSQL struct {
	db *sql.DB
	ep config.Endpoint
}

func (m *infoFetcherSQL) All(ctx context.Context, f *FetchOptions) ([]*Info, error) {
	var (
		res []*Info
		err error
	)
	switch m.ep.Driver {
	case config.DriverPostgres:
		res, err = m.allPostgres(ctx)
	default:
		res, err = m.allInformationSchema(ctx)
	}
	if err != nil {
		return nil, err
	}
	if f != nil && f.SortByCol != "" {
		isAsc := f.SortByDirection == SortDirectionASC
		sort.Slice(res, func(i, j int) bool {
			var less bool
			if f.SortByCol == SortByRows {
				less = res[i].Rows < res[j].Rows
			} else {
				less = res[i].Name < res[j].Name
			}
			if isAsc {
				return less
			}
			return !less
		})
	}
	return res, nil
}

// allInformationSchema serves mysql and snowflake, whose catalogs carry the
// row estimate in the same view as the table list.
func (m *infoFetcherSQL) allInformationSchema(ctx context.Context) ([]*Info, error) {
	var (
		q      string
		schema string
	)
	if m.ep.Driver == config.DriverMySQL {
		q = `SELECT TABLE_NAME, COALESCE(TABLE_ROWS, 0)
		FROM information_schema.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`
		schema = m.ep.DB
	} else {
		q = `SELECT TABLE_NAME, COALESCE(ROW_COUNT, 0)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`
		schema = m.ep.Schema
	}
	rows, err := m.db.QueryContext(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("could not list tables : %w", err)
	}
	defer rows.Close()
	var res []*Info
	for rows.Next() {
		var ifo Info
		if err := rows.Scan(&ifo.Name, &ifo.Rows); err != nil {
			return nil, err
		}
		res = append(res, &ifo)
	}
	return res, rows.Err()
}

// allPostgres lists names from information_schema and row estimates from
// pg_class, fetched in parallel.
func (m *infoFetcherSQL) allPostgres(ctx context.Context) ([]*Info, error) {
	var (
		res    []*Info
		counts = make(map[string]int64)
		wg     errgroup.Group
	)
	wg.Go(func() error {
		rows, err := m.db.QueryContext(ctx, `SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE' AND table_schema = $1
		ORDER BY table_name`, m.ep.Schema)
		if err != nil {
			return fmt.Errorf("could not list tables : %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ifo Info
			if err := rows.Scan(&ifo.Name); err != nil {
				return err
			}
			res = append(res, &ifo)
		}
		return rows.Err()
	})
	wg.Go(func() error {
		rows, err := m.db.QueryContext(ctx, `SELECT c.relname, GREATEST(c.reltuples::bigint, 0)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind = 'r'`, m.ep.Schema)
		if err != nil {
			return fmt.Errorf("could not estimate row counts : %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				name string
				n    int64
			)
			if err := rows.Scan(&name, &n); err != nil {
				return err
			}
			counts[name] = n
		}
		return rows.Err()
	})
	if err := wg.Wait(); err != nil {
		return nil, err
	}
	for _, ifo := range res {
		ifo.Rows = counts[ifo.Name]
	}
	return res, nil
}

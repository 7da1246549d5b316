package table

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

func newMockFetcher(t *testing.T, ep config.Endpoint) (*infoFetcherSQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &infoFetcherSQL{db: db, ep: ep}, mock
}

func TestAllMySQL(t *testing.T) {
	f, mock := newMockFetcher(t, config.Endpoint{Driver: config.DriverMySQL, DB: "app"})
	mock.ExpectQuery("FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_ROWS"}).
			AddRow("orders", 120).
			AddRow("users", 7))

	res, err := f.All(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "orders", res[0].Name)
	assert.Equal(t, int64(120), res[0].Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllSnowflakeUsesSchema(t *testing.T) {
	f, mock := newMockFetcher(t, config.Endpoint{Driver: config.DriverSnowflake, Schema: "PUBLIC"})
	mock.ExpectQuery("FROM INFORMATION_SCHEMA.TABLES").
		WithArgs("PUBLIC").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "ROW_COUNT"}).
			AddRow("EVENTS", 99))

	res, err := f.All(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "EVENTS", res[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllPostgresJoinsCatalogEstimates(t *testing.T) {
	f, mock := newMockFetcher(t, config.Endpoint{Driver: config.DriverPostgres, Schema: "public"})
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("orders").
			AddRow("users"))
	mock.ExpectQuery("FROM pg_class c").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "reltuples"}).
			AddRow("users", 7).
			AddRow("orders", 120))

	res, err := f.All(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res, 2)
	byName := map[string]int64{}
	for _, ifo := range res {
		byName[ifo.Name] = ifo.Rows
	}
	assert.Equal(t, int64(120), byName["orders"])
	assert.Equal(t, int64(7), byName["users"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllSortsByOptions(t *testing.T) {
	f, mock := newMockFetcher(t, config.Endpoint{Driver: config.DriverMySQL, DB: "app"})
	mock.ExpectQuery("FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_ROWS"}).
			AddRow("a", 5).
			AddRow("b", 500).
			AddRow("c", 50))

	res, err := f.All(context.Background(), &FetchOptions{
		SortByCol:       SortByRows,
		SortByDirection: SortDirectionDESC,
	})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "b", res[0].Name)
	assert.Equal(t, "c", res[1].Name)
	assert.Equal(t, "a", res[2].Name)
}

func TestAllListFailure(t *testing.T) {
	f, mock := newMockFetcher(t, config.Endpoint{Driver: config.DriverMySQL, DB: "app"})
	mock.ExpectQuery("FROM information_schema.TABLES").
		WillReturnError(assert.AnError)

	_, err := f.All(context.Background(), nil)
	assert.ErrorContains(t, err, "could not list tables")
}

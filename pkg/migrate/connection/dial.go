package connection

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

// AddLogger wraps a db handle so every statement is logged through zerolog.
func AddLogger(db *sql.DB, dsn string, driverName string) *sql.DB {
	loggerAdapter := zerologadapter.New(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Str("driver", driverName).Logger())
	db = sqldblogger.OpenDriver(dsn, db.Driver(), loggerAdapter,
		sqldblogger.WithWrapResult(false),
		sqldblogger.WithDurationFieldname("dur_ms"),
		sqldblogger.WithDurationUnit(sqldblogger.DurationMillisecond),
		sqldblogger.WithSQLQueryAsMessage(true),
		sqldblogger.WithSQLQueryFieldname("sql_query"),
	)
	return db
}

// Dial opens a db handle for the endpoint with a pool sized to the job's
// concurrency, so workers sharing the session never starve each other.
func Dial(ep config.Endpoint, maxConc int) (*sql.DB, error) {
	dsn := ep.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("%s : unsupported driver %q", ep.Host, ep.Driver)
	}
	db, err := sql.Open(ep.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s : could not dial connection due to : %w", ep.Driver, err)
	}
	if ep.QueryLogging {
		db = AddLogger(db, dsn, ep.DriverName())
	}
	if maxConc < 1 {
		maxConc = 1
	}
	db.SetMaxOpenConns(maxConc)
	db.SetMaxIdleConns(maxConc)
	return db, nil
}

package config

import (
	"fmt"
	"strings"
)

// Driver identifies which database/sql driver an endpoint dials.
type Driver string

const (
	DriverMySQL     Driver = "mysql"
	DriverPostgres  Driver = "postgres"
	DriverSnowflake Driver = "snowflake"
)

// Endpoint : one side of a migration (source or target)
type Endpoint struct {
	Driver       Driver     `json:"driver"`
	Host         string     `json:"host"`
	Port         int        `json:"port"`
	UserName     string     `json:"user_name"`
	Password     string     `json:"password"`
	DB           string     `json:"db"`
	Schema       string     `json:"schema"`
	Account      string     `json:"account"`    // snowflake only
	Warehouse    string     `json:"ware_house"` // snowflake only
	Role         string     `json:"role"`       // snowflake only
	Stage        string     `json:"stage"`      // snowflake only, named stage for bulk loads
	S3           S3Options  `json:"s3"`
	SessionVars  map[string]string `json:"session_vars"`
	QueryLogging bool       `json:"query_log"`
}

type S3Options struct {
	Bucket         string `json:"bucket"`
	PrefixOverride string `json:"prefix_override"`
}

// GetDSN builds the driver specific connection string.
func (e *Endpoint) GetDSN() string {
	switch e.Driver {
	case DriverMySQL:
		return fmt.Sprintf(`%s:%s@tcp(%s:%d)/%s?parseTime=true&collation=utf8mb4_general_ci&autocommit=true`,
			e.UserName, e.Password, e.Host, e.Port, e.DB)
	case DriverPostgres:
		return fmt.Sprintf(`postgres://%s:%s@%s:%d/%s?sslmode=disable`,
			e.UserName, e.Password, e.Host, e.Port, e.DB)
	case DriverSnowflake:
		return fmt.Sprintf("%s:%s@%s.snowflakecomputing.com/%s/%s?protocol=https&role=%s&timezone=UTC&warehouse=%s",
			e.UserName, e.Password, e.Account, e.DB, e.Schema, e.Role, e.Warehouse)
	}
	return ""
}

// DriverName is the name registered with database/sql.
func (e *Endpoint) DriverName() string {
	return string(e.Driver)
}

// QualifyTable prefixes a bare table name with the endpoint's db/schema
// qualification. Already qualified names pass through untouched.
func (e *Endpoint) QualifyTable(table string) string {
	if strings.Contains(table, ".") {
		return table
	}
	switch e.Driver {
	case DriverMySQL:
		if e.DB != "" {
			return e.DB + "." + table
		}
	default:
		if e.Schema != "" {
			return e.Schema + "." + table
		}
	}
	return table
}

// Redacted returns a copy safe for logging and API echoes.
func (e Endpoint) Redacted() Endpoint {
	if e.Password != "" {
		e.Password = "****"
	}
	return e
}

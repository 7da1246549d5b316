// Package table discovers which tables exist on a source endpoint, with
// approximate row counts used as progress hints. Counts are estimates from
// the catalog, never exact.
package table

import "context"

type Info struct {
	Name string `db:"table_name"`
	Rows int64  `db:"row_count"`
}

type InfoSortBy string
type InfoSortByDirection string

const (
	SortByRows      InfoSortBy = "Rows"
	SortByTableName InfoSortBy = "TableName"
)

const (
	SortDirectionASC  InfoSortByDirection = "ASC"
	SortDirectionDESC InfoSortByDirection = "DESC"
)

type FetchOptions struct {
	SortByCol       InfoSortBy
	SortByDirection InfoSortByDirection
}

type InfoFetcher interface {
	// All lists the base tables of the endpoint's schema.
	All(ctx context.Context, f *FetchOptions) ([]*Info, error)
}

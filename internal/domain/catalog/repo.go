package catalog

import "context"

// Repository introspects the live database schema.
type Repository interface {
	TableNames(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]Column, error)
	RowCount(ctx context.Context, table string) (int64, error)
}

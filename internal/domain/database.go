package domain

import "context"

// TableQuery selects the rows of one table. An empty TenantColumn reads the
// whole table.
type TableQuery struct {
	Table        string
	TenantColumn string
	TenantID     string
}

type DataStore interface {
	ReadTable(ctx context.Context, q TableQuery) ([]Row, error)
	Ping(ctx context.Context) error
	GetType() string
}

package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// RowWriter replaces the contents of a sheet with the given rows.
	// The first row is the header.
	RowWriter interface {
		ReplaceRows(ctx context.Context, rows [][]string) (updatedRange string, err error)
	}
)

// Package load persists the transformed star schema. Each run fully
// replaces the destination tables, so the store always reflects exactly one
// run's output.
package load

import (
	"context"

	"github.com/dfarias/escrow-etl/internal/table"
)

// Destination table names.
const (
	TableAccounts    = "accounts"
	TableBalances    = "balances"
	TableWithdrawals = "withdrawals"
)

// DestinationTables lists every table a run writes, in load order.
var DestinationTables = []string{TableAccounts, TableBalances, TableWithdrawals}

// Loader writes finished tables to a relational store.
type Loader interface {
	// Ping verifies the store is reachable before a run starts writing.
	Ping(ctx context.Context) error

	// Replace drops any existing destination table and writes t in its
	// place. The write is atomic per table: on error the previous contents
	// are either intact or the table is absent, never half-written.
	Replace(ctx context.Context, tableName string, t *table.Table) error

	// Stats reports the row count of each destination table that exists.
	Stats(ctx context.Context) (map[string]int, error)

	Close() error
}

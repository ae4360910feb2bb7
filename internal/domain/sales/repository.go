package sales

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// RebuildOptions is the isolation and locking contract of a full-refresh rebuild.
type RebuildOptions struct {
	// Isolation is the transaction isolation level; LevelDefault leaves the driver default.
	Isolation sql.IsolationLevel
	// LockTables takes exclusive locks on every derived relation before clearing them,
	// where the storage engine supports it.
	LockTables bool
	// BatchSize bounds the rows per INSERT statement.
	BatchSize int
}

// DefaultRebuildOptions returns the options used when none are configured.
func DefaultRebuildOptions() RebuildOptions {
	return RebuildOptions{
		Isolation:  sql.LevelDefault,
		LockTables: true,
		BatchSize:  1000,
	}
}

// ParseIsolation maps a config string onto a sql.IsolationLevel.
func ParseIsolation(s string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", s)
}

// StagingRepository stores the unfiltered raw extract.
type StagingRepository interface {
	// ReplaceRaw replaces the staged extract with rows in a single transaction.
	ReplaceRaw(ctx context.Context, rows []RawRow) error
	// LoadRaw returns the staged extract with the columns the staging relation exposes.
	LoadRaw(ctx context.Context) (RawRowSet, error)
}

// DimensionalRepository stores the derived relations.
type DimensionalRepository interface {
	// Replace clears and repopulates all four relations atomically. Any failure
	// leaves the previously committed contents untouched and returns an error
	// matching ErrTransactionFailure.
	Replace(ctx context.Context, tables *Tables, opts RebuildOptions) error
	// Load reads back every derived relation in deterministic order.
	Load(ctx context.Context) (*Tables, error)
}

package ingestion

import (
	"context"

	"github.com/google/uuid"
)

// RunRepository persists run history outside any rebuild transaction,
// so failed runs stay visible.
type RunRepository interface {
	// Save creates or updates a run
	Save(ctx context.Context, run *Run) error

	// FindByID finds a run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// FindRecent returns the latest runs, newest first
	FindRecent(ctx context.Context, limit int) ([]*Run, error)

	// FindLastSuccessful returns the most recent completed run, or ErrNotFound
	FindLastSuccessful(ctx context.Context) (*Run, error)
}

package sales

import (
	"fmt"
	"strings"

	"github.com/salesbi/backend/internal/domain/shared"
)

// Error taxonomy of the normalization engine.
var (
	// ErrSchemaMismatch is fatal: the input lacks required columns.
	ErrSchemaMismatch = shared.NewDomainError("SCHEMA_MISMATCH", "Raw row set is missing required columns")
	// ErrReferentialGap is logged, never fatal: customer linkage is optional.
	ErrReferentialGap = shared.NewDomainError("REFERENTIAL_GAP", "Fact row references an unknown customer")
	// ErrTransactionFailure is fatal for the run; retry means re-running the whole rebuild.
	ErrTransactionFailure = shared.NewDomainError("TRANSACTION_FAILURE", "Rebuild could not complete atomically")
	// ErrReconciliation signals that derived orders disagree with their items.
	ErrReconciliation = shared.NewDomainError("RECONCILIATION_FAILED", "Order totals do not match order item totals")
)

// SchemaMismatchError names the columns that were absent.
type SchemaMismatchError struct {
	Missing []string
}

// NewSchemaMismatchError creates a SchemaMismatchError
func NewSchemaMismatchError(missing []string) *SchemaMismatchError {
	return &SchemaMismatchError{Missing: missing}
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchemaMismatch.Message, strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrSchemaMismatch.
func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// TransactionError wraps the storage error that aborted a rebuild.
type TransactionError struct {
	Stage string
	Err   error
}

// NewTransactionError creates a TransactionError for the given stage
func NewTransactionError(stage string, err error) *TransactionError {
	return &TransactionError{Stage: stage, Err: err}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s (stage %s): %v", ErrTransactionFailure.Message, e.Stage, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *TransactionError) Unwrap() []error {
	return []error{ErrTransactionFailure, e.Err}
}

// ReferentialGap describes a fact row whose customer is not in the Customer relation.
type ReferentialGap struct {
	Table      string
	OrderID    string
	Region     string
	CustomerID int64
}

func (g ReferentialGap) Error() string {
	return fmt.Sprintf("%s: %s %s/%s references customer %d", ErrReferentialGap.Message, g.Table, g.OrderID, g.Region, g.CustomerID)
}

// Unwrap lets errors.Is match ErrReferentialGap.
func (g ReferentialGap) Unwrap() error {
	return ErrReferentialGap
}

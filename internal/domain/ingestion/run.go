package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/salesbi/backend/internal/domain/shared"
)

// Stage names the pipeline steps a run can cover.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageTransform Stage = "transform"
	StageAudit     Stage = "audit"
	StageExport    Stage = "export"
	StageRun       Stage = "run"
)

// IsValid checks if the stage is valid
func (s Stage) IsValid() bool {
	switch s {
	case StageIngest, StageTransform, StageAudit, StageExport, StageRun:
		return true
	}
	return false
}

// Status is the lifecycle state of a run
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run records one execution of the pipeline against one extract.
type Run struct {
	shared.BaseAggregateRoot
	Stage          Stage          `json:"stage"`
	Source         string         `json:"source"`
	Status         Status         `json:"status"`
	RawRows        int            `json:"raw_rows"`
	KeptRows       int            `json:"kept_rows"`
	DroppedRows    int            `json:"dropped_rows"`
	DropReasons    map[string]int `json:"drop_reasons,omitempty"`
	TableCounts    map[string]int `json:"table_counts,omitempty"`
	CoercionErrors int            `json:"coercion_errors"`
	ErrorCode      string         `json:"error_code,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewRun creates a pending run for source
func NewRun(stage Stage, source string) (*Run, error) {
	if !stage.IsValid() {
		return nil, shared.NewDomainError("INVALID_STAGE", fmt.Sprintf("Invalid stage: %s", stage))
	}
	if source == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source cannot be empty")
	}
	return &Run{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Stage:             stage,
		Source:            source,
		Status:            StatusPending,
		DropReasons:       make(map[string]int),
		TableCounts:       make(map[string]int),
	}, nil
}

// Start marks the run as processing
func (r *Run) Start() error {
	if r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", r.Status))
	}
	now := time.Now()
	r.Status = StatusProcessing
	r.StartedAt = &now
	r.Touch(now)
	r.IncrementVersion()
	return nil
}

// RecordIngest stores the extract size and coercion error total
func (r *Run) RecordIngest(rawRows, coercionErrors int) {
	r.RawRows = rawRows
	r.CoercionErrors = coercionErrors
	r.Touch(time.Now())
}

// RecordFilter stores the outcome of the critical-field filter
func (r *Run) RecordFilter(f sales.FilterResult) {
	r.KeptRows = len(f.Kept)
	r.DroppedRows = f.DroppedCount()
	r.DropReasons = make(map[string]int, len(f.Dropped))
	for reason, n := range f.Dropped {
		r.DropReasons[string(reason)] = n
	}
	if r.RawRows == 0 {
		r.RawRows = r.KeptRows + r.DroppedRows
	}
	r.Touch(time.Now())
}

// RecordTables stores the row count of each rebuilt relation
func (r *Run) RecordTables(counts map[string]int) {
	r.TableCounts = make(map[string]int, len(counts))
	for k, v := range counts {
		r.TableCounts[k] = v
	}
	r.Touch(time.Now())
}

// Complete marks the run as successfully completed
func (r *Run) Complete() error {
	if r.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", r.Status))
	}
	r.finish(StatusCompleted)
	return nil
}

// Fail marks the run as failed with cause
func (r *Run) Fail(cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", r.Status))
	}
	if cause != nil {
		r.ErrorCode = shared.CodeOf(cause)
		r.ErrorMessage = cause.Error()
	}
	r.finish(StatusFailed)
	return nil
}

func (r *Run) finish(status Status) {
	now := time.Now()
	r.Status = status
	r.CompletedAt = &now
	r.Touch(now)
	r.IncrementVersion()
}

// Duration returns how long the run took, or has taken so far
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}

// DropReasonsJSON returns the drop reasons as a JSON object
func (r *Run) DropReasonsJSON() (string, error) {
	return countsJSON(r.DropReasons)
}

// TableCountsJSON returns the table counts as a JSON object
func (r *Run) TableCountsJSON() (string, error) {
	return countsJSON(r.TableCounts)
}

// SetDropReasonsFromJSON parses drop reasons from a JSON object
func (r *Run) SetDropReasonsFromJSON(s string) error {
	m, err := parseCounts(s)
	if err != nil {
		return fmt.Errorf("failed to unmarshal drop reasons: %w", err)
	}
	r.DropReasons = m
	return nil
}

// SetTableCountsFromJSON parses table counts from a JSON object
func (r *Run) SetTableCountsFromJSON(s string) error {
	m, err := parseCounts(s)
	if err != nil {
		return fmt.Errorf("failed to unmarshal table counts: %w", err)
	}
	r.TableCounts = m
	return nil
}

func countsJSON(m map[string]int) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal counts: %w", err)
	}
	return string(data), nil
}

func parseCounts(s string) (map[string]int, error) {
	m := make(map[string]int)
	if s == "" || s == "{}" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

package ingestion

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/salesbi/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  bool
	}{
		{"ingest", StageIngest, true},
		{"transform", StageTransform, true},
		{"audit", StageAudit, true},
		{"export", StageExport, true},
		{"run", StageRun, true},
		{"invalid", Stage("load"), false},
		{"empty", Stage(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stage.IsValid())
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"pending", StatusPending, false},
		{"processing", StatusProcessing, false},
		{"completed", StatusCompleted, true},
		{"failed", StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
			assert.True(t, tt.status.IsValid())
		})
	}
}

func TestNewRun(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		run, err := NewRun(StageRun, "data/online_retail.csv")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, run.Status)
		assert.Equal(t, 1, run.Version)
		assert.NotEqual(t, uuid.Nil, run.ID)
		assert.Nil(t, run.StartedAt)
	})

	t.Run("invalid stage", func(t *testing.T) {
		_, err := NewRun(Stage("x"), "file.csv")
		assert.Equal(t, "INVALID_STAGE", shared.CodeOf(err))
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := NewRun(StageIngest, "")
		assert.Equal(t, "INVALID_SOURCE", shared.CodeOf(err))
	})
}

func TestRun_Lifecycle(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		run, err := NewRun(StageRun, "file.csv")
		require.NoError(t, err)

		require.NoError(t, run.Start())
		assert.Equal(t, StatusProcessing, run.Status)
		assert.NotNil(t, run.StartedAt)

		run.RecordIngest(10, 2)
		run.RecordFilter(sales.FilterResult{
			Kept:    make([]sales.RawRow, 7),
			Dropped: map[sales.DropReason]int{sales.DropMissingTimestamp: 2, sales.DropMissingCountry: 1},
		})
		run.RecordTables(map[string]int{"orders": 3})

		require.NoError(t, run.Complete())
		assert.Equal(t, StatusCompleted, run.Status)
		assert.Equal(t, 10, run.RawRows)
		assert.Equal(t, 7, run.KeptRows)
		assert.Equal(t, 3, run.DroppedRows)
		assert.Equal(t, 2, run.DropReasons["missing_timestamp"])
		assert.Equal(t, 3, run.TableCounts["orders"])
		assert.NotNil(t, run.CompletedAt)
		assert.GreaterOrEqual(t, run.Duration().Nanoseconds(), int64(0))
		assert.Equal(t, 3, run.Version)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		run, _ := NewRun(StageRun, "file.csv")
		require.NoError(t, run.Start())
		assert.ErrorIs(t, run.Start(), shared.ErrInvalidState)
	})

	t.Run("cannot complete before start", func(t *testing.T) {
		run, _ := NewRun(StageRun, "file.csv")
		assert.ErrorIs(t, run.Complete(), shared.ErrInvalidState)
	})

	t.Run("fail keeps error code", func(t *testing.T) {
		run, _ := NewRun(StageTransform, "file.csv")
		require.NoError(t, run.Start())

		cause := sales.NewTransactionError("insert", errors.New("connection reset"))
		require.NoError(t, run.Fail(cause))

		assert.Equal(t, StatusFailed, run.Status)
		assert.Equal(t, "TRANSACTION_FAILURE", run.ErrorCode)
		assert.Contains(t, run.ErrorMessage, "connection reset")
		assert.ErrorIs(t, run.Fail(nil), shared.ErrInvalidState)
	})

	t.Run("duration before start is zero", func(t *testing.T) {
		run, _ := NewRun(StageRun, "file.csv")
		assert.Zero(t, run.Duration())
	})
}

func TestRun_CountsJSON(t *testing.T) {
	run, _ := NewRun(StageRun, "file.csv")

	s, err := run.DropReasonsJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", s)

	run.DropReasons = map[string]int{"missing_country": 4}
	s, err = run.DropReasonsJSON()
	require.NoError(t, err)

	restored, _ := NewRun(StageRun, "file.csv")
	require.NoError(t, restored.SetDropReasonsFromJSON(s))
	assert.Equal(t, run.DropReasons, restored.DropReasons)

	assert.Error(t, restored.SetTableCountsFromJSON("not json"))
}

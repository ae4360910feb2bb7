package models

import (
	"time"

	"github.com/salesbi/backend/internal/domain/ingestion"
)

// IngestionRunModel is the persistence model for the ingestion Run entity.
type IngestionRunModel struct {
	AggregateModel
	Stage          ingestion.Stage  `gorm:"type:varchar(16);not null"`
	Source         string           `gorm:"type:varchar(1024);not null"`
	Status         ingestion.Status `gorm:"type:varchar(16);not null;default:'pending';index"`
	RawRows        int              `gorm:"not null;default:0"`
	KeptRows       int              `gorm:"not null;default:0"`
	DroppedRows    int              `gorm:"not null;default:0"`
	DropReasons    string           `gorm:"type:text;not null;default:'{}'"`
	TableCounts    string           `gorm:"type:text;not null;default:'{}'"`
	CoercionErrors int              `gorm:"not null;default:0"`
	ErrorCode      string           `gorm:"type:varchar(64)"`
	ErrorMessage   string           `gorm:"type:text"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (IngestionRunModel) TableName() string {
	return "ingestion_runs"
}

// ToDomain converts the persistence model to a domain Run.
func (m *IngestionRunModel) ToDomain() *ingestion.Run {
	run := &ingestion.Run{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Stage:             m.Stage,
		Source:            m.Source,
		Status:            m.Status,
		RawRows:           m.RawRows,
		KeptRows:          m.KeptRows,
		DroppedRows:       m.DroppedRows,
		CoercionErrors:    m.CoercionErrors,
		ErrorCode:         m.ErrorCode,
		ErrorMessage:      m.ErrorMessage,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
	}
	_ = run.SetDropReasonsFromJSON(m.DropReasons)
	_ = run.SetTableCountsFromJSON(m.TableCounts)
	return run
}

// FromDomain populates the persistence model from a domain Run.
func (m *IngestionRunModel) FromDomain(r *ingestion.Run) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Stage = r.Stage
	m.Source = r.Source
	m.Status = r.Status
	m.RawRows = r.RawRows
	m.KeptRows = r.KeptRows
	m.DroppedRows = r.DroppedRows
	m.CoercionErrors = r.CoercionErrors
	m.ErrorCode = r.ErrorCode
	m.ErrorMessage = r.ErrorMessage
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt

	if s, err := r.DropReasonsJSON(); err == nil {
		m.DropReasons = s
	} else {
		m.DropReasons = "{}"
	}
	if s, err := r.TableCountsJSON(); err == nil {
		m.TableCounts = s
	} else {
		m.TableCounts = "{}"
	}
}

// IngestionRunModelFromDomain creates a new persistence model from a domain Run.
func IngestionRunModelFromDomain(r *ingestion.Run) *IngestionRunModel {
	m := &IngestionRunModel{}
	m.FromDomain(r)
	return m
}

package persistence

import (
	"context"
	"fmt"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/salesbi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStagingRepository implements sales.StagingRepository on the retail_raw table
type GormStagingRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewGormStagingRepository creates a new GormStagingRepository
func NewGormStagingRepository(db *gorm.DB, batchSize int) *GormStagingRepository {
	if batchSize <= 0 {
		batchSize = sales.DefaultRebuildOptions().BatchSize
	}
	return &GormStagingRepository{db: db, batchSize: batchSize}
}

// ReplaceRaw swaps the staged extract for rows in one transaction.
// Row order is kept in line_no, starting at 1.
func (r *GormStagingRepository) ReplaceRaw(ctx context.Context, rows []sales.RawRow) error {
	staged := make([]models.RetailRawModel, len(rows))
	for i, row := range rows {
		staged[i] = models.RetailRawModelFromDomain(i+1, row)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM retail_raw").Error; err != nil {
			return fmt.Errorf("failed to clear staging: %w", err)
		}
		if len(staged) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(staged, r.batchSize).Error; err != nil {
			return fmt.Errorf("failed to stage rows: %w", err)
		}
		return nil
	})
}

// LoadRaw returns the staged extract in line order. When the relation lacks
// any required column the set carries the columns found and no rows, so the
// caller reports the mismatch instead of deriving from partial data.
func (r *GormStagingRepository) LoadRaw(ctx context.Context) (sales.RawRowSet, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&models.RetailRawModel{}) {
		return sales.RawRowSet{}, nil
	}

	types, err := db.Migrator().ColumnTypes(&models.RetailRawModel{})
	if err != nil {
		return sales.RawRowSet{}, fmt.Errorf("failed to inspect staging columns: %w", err)
	}
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}

	set := sales.RawRowSet{Columns: columns}
	if len(set.MissingColumns()) > 0 {
		return set, nil
	}

	var staged []models.RetailRawModel
	if err := db.Order("line_no").Find(&staged).Error; err != nil {
		return sales.RawRowSet{}, fmt.Errorf("failed to load staging: %w", err)
	}
	set.Rows = make([]sales.RawRow, len(staged))
	for i := range staged {
		set.Rows[i] = staged[i].ToDomain()
	}
	return set, nil
}

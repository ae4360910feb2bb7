package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/salesbi/backend/internal/domain/ingestion"
	"github.com/salesbi/backend/internal/domain/shared"
	"github.com/salesbi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIngestionRunRepository implements ingestion.RunRepository using GORM
type GormIngestionRunRepository struct {
	db *gorm.DB
}

// NewGormIngestionRunRepository creates a new GormIngestionRunRepository
func NewGormIngestionRunRepository(db *gorm.DB) *GormIngestionRunRepository {
	return &GormIngestionRunRepository{db: db}
}

// Save creates or updates a run
func (r *GormIngestionRunRepository) Save(ctx context.Context, run *ingestion.Run) error {
	model := models.IngestionRunModelFromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a run by ID
func (r *GormIngestionRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*ingestion.Run, error) {
	var model models.IngestionRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns the latest runs, newest first
func (r *GormIngestionRunRepository) FindRecent(ctx context.Context, limit int) ([]*ingestion.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runModels []models.IngestionRunModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]*ingestion.Run, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs, nil
}

// FindLastSuccessful returns the most recently completed run
func (r *GormIngestionRunRepository) FindLastSuccessful(ctx context.Context) (*ingestion.Run, error) {
	var model models.IngestionRunModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", ingestion.StatusCompleted).
		Order("completed_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var (
	_ ingestion.RunRepository = (*GormIngestionRunRepository)(nil)
)

package repository

import (
	"context"
	"time"

	"github.com/dockhand-io/dockhand/internal/models"
	"github.com/dockhand-io/dockhand/internal/storage"
)

type MetricsRepository struct {
	db *storage.Postgres
}

func NewMetricsRepository(db *storage.Postgres) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// Inserts multiple snapshots (for batch insertion)
func (r *MetricsRepository) CreateBatch(ctx context.Context, snapshots []models.MetricSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&snapshots).Error
}

// Retrieves snapshots within a time range, newest first
func (r *MetricsRepository) FindByTimeRange(ctx context.Context, from, to time.Time, limit int) ([]models.MetricSnapshot, error) {
	var snapshots []models.MetricSnapshot

	err := r.db.DB.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp DESC").
		Limit(limit).
		Find(&snapshots).Error

	return snapshots, err
}

// Deletes snapshots older than the specified time
func (r *MetricsRepository) DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.MetricSnapshot{})

	return result.RowsAffected, result.Error
}

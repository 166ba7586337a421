package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dockhand-io/dockhand/internal/models"
	"github.com/dockhand-io/dockhand/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeploymentRepository struct {
	db *storage.Postgres
}

func NewDeploymentRepository(db *storage.Postgres) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// Inserts a new deployment
func (r *DeploymentRepository) Create(ctx context.Context, d *models.Deployment) error {
	return r.db.DB.WithContext(ctx).Create(d).Error
}

// Retrieves a deployment by ID; returns nil without error when absent
func (r *DeploymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	var d models.Deployment

	err := r.db.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// Retrieves all deployments for an owner, newest first
func (r *DeploymentRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Deployment, error) {
	var deployments []models.Deployment

	err := r.db.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&deployments).Error

	return deployments, err
}

// Updates the deployment status and bumps the deploy timestamp for running
func (r *DeploymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.DeploymentRunning {
		now := time.Now().UTC()
		updates["last_deployed_at"] = &now
	}

	return r.db.DB.WithContext(ctx).
		Model(&models.Deployment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Increments the restart counter
func (r *DeploymentRepository) IncrementRestarts(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Deployment{}).
		Where("id = ?", id).
		UpdateColumn("restart_count", gorm.Expr("restart_count + 1")).Error
}

// Deletes a deployment
func (r *DeploymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Delete(&models.Deployment{}, "id = ?", id).Error
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dockhand-io/dockhand/internal/models"
	"github.com/dockhand-io/dockhand/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrDeploymentNotFound = errors.New("deployment not found")
	ErrNotOwner           = errors.New("deployment belongs to another user")
)

type DeploymentService struct {
	repo *repository.DeploymentRepository
}

func NewDeploymentService(repo *repository.DeploymentRepository) *DeploymentService {
	return &DeploymentService{repo: repo}
}

// Creates a deployment record in pending state. The node agent picks it up
// and transitions it to running out of band.
func (s *DeploymentService) Create(ctx context.Context, ownerID uuid.UUID, name, image string) (*models.Deployment, error) {
	if name == "" || image == "" {
		return nil, errors.New("name and image are required")
	}

	d := &models.Deployment{
		OwnerID: ownerID,
		Name:    name,
		Image:   image,
		Status:  models.DeploymentPending,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}

	return d, nil
}

func (s *DeploymentService) List(ctx context.Context, ownerID uuid.UUID) ([]models.Deployment, error) {
	return s.repo.FindByOwner(ctx, ownerID)
}

// Retrieves a deployment, enforcing ownership unless the caller is admin
func (s *DeploymentService) Get(ctx context.Context, id, callerID uuid.UUID, isAdmin bool) (*models.Deployment, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDeploymentNotFound
	}
	if !isAdmin && d.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	return d, nil
}

// Requests a restart: bumps the counter and re-enters pending
func (s *DeploymentService) Restart(ctx context.Context, id, callerID uuid.UUID, isAdmin bool) (*models.Deployment, error) {
	d, err := s.Get(ctx, id, callerID, isAdmin)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IncrementRestarts(ctx, d.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, d.ID, models.DeploymentPending); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, d.ID)
}

func (s *DeploymentService) Delete(ctx context.Context, id, callerID uuid.UUID, isAdmin bool) error {
	d, err := s.Get(ctx, id, callerID, isAdmin)
	if err != nil {
		return err
	}

	return s.repo.Delete(ctx, d.ID)
}

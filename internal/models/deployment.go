package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deployment statuses.
const (
	DeploymentPending  = "pending"
	DeploymentRunning  = "running"
	DeploymentStopped  = "stopped"
	DeploymentFailed   = "failed"
	DeploymentRemoving = "removing"
)

// Represents one managed container workload. Runtime stats columns are
// updated out of band by the node agent.
type Deployment struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name"`
	Image        string    `gorm:"not null" json:"image"`
	Status       string    `gorm:"index;default:'pending'" json:"status"`
	ContainerID  string    `json:"container_id,omitempty"`
	RestartCount int       `json:"restart_count"`

	CPUPercent    float64    `json:"cpu_percent"`
	MemoryUsageMB float64    `json:"memory_usage_mb"`
	StatsUpdated  *time.Time `json:"stats_updated_at,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastDeployedAt *time.Time `json:"last_deployed_at,omitempty"`
}

func (d *Deployment) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	return nil
}

func (Deployment) TableName() string {
	return "deployments"
}

package handler

import (
	"errors"
	"net/http"

	"github.com/dockhand-io/dockhand/internal/models"
	"github.com/dockhand-io/dockhand/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeploymentHandler struct {
	service *service.DeploymentService
}

func NewDeploymentHandler(service *service.DeploymentService) *DeploymentHandler {
	return &DeploymentHandler{service: service}
}

type createDeploymentRequest struct {
	Name  string `json:"name" binding:"required"`
	Image string `json:"image" binding:"required"`
}

// Handles POST /deployments
func (h *DeploymentHandler) Create(c *gin.Context) {
	var req createDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	d, err := h.service.Create(c.Request.Context(), ownerID, req.Name, req.Image)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deployment"})
		return
	}

	c.JSON(http.StatusCreated, d)
}

// Handles GET /deployments
func (h *DeploymentHandler) List(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	deployments, err := h.service.List(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deployments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployments": deployments})
}

// Handles GET /deployments/:id
func (h *DeploymentHandler) Get(c *gin.Context) {
	d, err := h.lookup(c)
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, d)
}

// Handles GET /deployments/:id/stats
func (h *DeploymentHandler) Stats(c *gin.Context) {
	d, err := h.lookup(c)
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deployment_id":    d.ID,
		"status":           d.Status,
		"cpu_percent":      d.CPUPercent,
		"memory_usage_mb":  d.MemoryUsageMB,
		"restart_count":    d.RestartCount,
		"stats_updated_at": d.StatsUpdated,
	})
}

// Handles POST /deployments/:id/restart
func (h *DeploymentHandler) Restart(c *gin.Context) {
	id, callerUID, isAdmin, ok := requestScope(c)
	if !ok {
		return
	}

	d, err := h.service.Restart(c.Request.Context(), id, callerUID, isAdmin)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// Handles DELETE /deployments/:id
func (h *DeploymentHandler) Delete(c *gin.Context) {
	id, callerUID, isAdmin, ok := requestScope(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, callerUID, isAdmin); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deployment removed"})
}

func (h *DeploymentHandler) lookup(c *gin.Context) (*models.Deployment, error) {
	id, callerUID, isAdmin, ok := requestScope(c)
	if !ok {
		return nil, errors.New("bad request scope")
	}

	d, err := h.service.Get(c.Request.Context(), id, callerUID, isAdmin)
	if err != nil {
		writeServiceError(c, err)
		return nil, err
	}

	return d, nil
}

func requestScope(c *gin.Context) (id, caller uuid.UUID, isAdmin, ok bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deployment ID"})
		return uuid.Nil, uuid.Nil, false, false
	}

	caller, found := callerID(c)
	if !found {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, uuid.Nil, false, false
	}

	return id, caller, c.GetString("role") == "admin", true
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDeploymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/constants"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/dto"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/executor"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetAvailableMigrations lists the legacy plugins that can be migrated
	// GET /api/v1/migrations/available-migrations
	GetAvailableMigrations(c *gin.Context)

	// GetMigrationStatistics compares source and migrated row counts
	// GET /api/v1/migrations/migration-statistics?migrator=<source>
	GetMigrationStatistics(c *gin.Context)

	// StartMigration resets the progress of a source, optionally truncating migrated data
	// POST /api/v1/migrations/start-migration
	StartMigration(c *gin.Context)

	// GetPollingStatus runs one time-boxed slice of the migration and returns its progress
	// GET /api/v1/migrations/polling-status?migrator=<source>
	GetPollingStatus(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{
		executor: exec,
	}
}

// GetAvailableMigrations lists the legacy plugins that can be migrated
func (h *handler) GetAvailableMigrations(c *gin.Context) {
	response, err := h.executor.GetAvailableMigrations(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get available migrations")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetMigrationStatistics compares source and migrated row counts
func (h *handler) GetMigrationStatistics(c *gin.Context) {
	src, err := dto.ParseMigrator(c.Query(constants.MIGRATOR_PARAM))
	if err != nil {
		respondError(c, err, "Invalid migrator")
		return
	}

	response, err := h.executor.GetMigrationStatistics(c.Request.Context(), src)
	if err != nil {
		respondError(c, err, "Failed to get migration statistics")
		return
	}

	c.JSON(http.StatusOK, response)
}

// StartMigration resets the progress of a source, optionally truncating migrated data
func (h *handler) StartMigration(c *gin.Context) {
	var req dto.StartMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	src, err := req.Validate()
	if err != nil {
		respondError(c, err, "Invalid migrator")
		return
	}

	response, err := h.executor.StartMigration(c.Request.Context(), src, req.ResetMigration)
	if err != nil {
		respondError(c, err, "Failed to start migration")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetPollingStatus runs one time-boxed slice of the migration and returns its progress
func (h *handler) GetPollingStatus(c *gin.Context) {
	src, err := dto.ParseMigrator(c.Query(constants.MIGRATOR_PARAM))
	if err != nil {
		respondError(c, err, "Invalid migrator")
		return
	}

	response, err := h.executor.GetPollingStatus(c.Request.Context(), src)
	if err != nil {
		respondError(c, err, "Failed to run migration")
		return
	}

	c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-affiliate-migrator-api",
	})
}

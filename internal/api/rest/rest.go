package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-affiliate-migrator/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	read := middleware.RequireScope(authCfg, middleware.ScopeMigrationsRead)
	write := middleware.RequireScope(authCfg, middleware.ScopeMigrationsWrite)

	// Migration endpoints (requires authentication)
	migrations := router.Group("/api/v1/migrations", middleware.Auth(authCfg))
	{
		migrations.GET("/available-migrations", read, handler.GetAvailableMigrations)
		migrations.GET("/migration-statistics", read, handler.GetMigrationStatistics)
		// polling advances the migration, so it needs the same scope as starting one
		migrations.POST("/start-migration", write, handler.StartMigration)
		migrations.GET("/polling-status", write, handler.GetPollingStatus)
	}
}

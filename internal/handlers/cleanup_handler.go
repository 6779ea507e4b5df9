package handlers

import (
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/labstack/echo/v4"
)

// CleanupHandler exposes the cleanup-job journal to operators. Jobs that end
// in partial_failure are reported here and retried manually, never silently.
type CleanupHandler struct {
	cleanupService *services.CleanupService
}

// NewCleanupHandler creates a new CleanupHandler
func NewCleanupHandler(cleanupService *services.CleanupService) *CleanupHandler {
	return &CleanupHandler{cleanupService: cleanupService}
}

// RegisterCleanupRoutes registers the admin cleanup routes
func (h *CleanupHandler) RegisterCleanupRoutes(g *echo.Group) {
	g.GET("/cleanup/jobs", h.ListJobs)
	g.POST("/cleanup/jobs/:id/retry", h.RetryJob)
}

// ListJobs returns journaled cleanup jobs, optionally filtered by state
func (h *CleanupHandler) ListJobs(c echo.Context) error {
	jobs, err := h.cleanupService.ListJobs(c.Request().Context(), c.QueryParam("state"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// RetryJob re-runs a job's remaining steps; retrying a done job is a no-op
func (h *CleanupHandler) RetryJob(c echo.Context) error {
	job, err := h.cleanupService.RetryJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, job)
}

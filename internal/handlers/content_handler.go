package handlers

import (
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/labstack/echo/v4"
)

// ContentHandler handles HTTP requests for snaps, tips, signals and stories
type ContentHandler struct {
	contentService *services.ContentService
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(contentService *services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// RegisterContentRoutes registers content-related routes
func (h *ContentHandler) RegisterContentRoutes(g *echo.Group) {
	g.POST("/content", h.CreateContent)
	g.GET("/content/inbox", h.GetInbox)
	g.GET("/content/:id", h.GetContent)
	g.PUT("/content/:id/consumed", h.MarkConsumed)
	g.DELETE("/content/:id", h.DeleteContent)
}

// CreateContent creates a send: direct, to a group, or broadcast to friends
func (h *ContentHandler) CreateContent(c echo.Context) error {
	uid := currentUID(c)

	var req models.CreateContentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	items, err := h.contentService.Create(c.Request().Context(), uid, &req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"delivered": len(items),
		"items":     items,
	})
}

// GetInbox lists the caller's visible items, optionally filtered by kind
func (h *ContentHandler) GetInbox(c echo.Context) error {
	uid := currentUID(c)
	kind := c.QueryParam("kind")

	items, err := h.contentService.Inbox(c.Request().Context(), uid, kind)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetContent fetches a single item the caller is allowed to see
func (h *ContentHandler) GetContent(c echo.Context) error {
	uid := currentUID(c)
	item, err := h.contentService.Get(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// MarkConsumed flips the consumed flag, idempotently
func (h *ContentHandler) MarkConsumed(c echo.Context) error {
	uid := currentUID(c)
	if err := h.contentService.MarkConsumed(c.Request().Context(), uid, c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "consumed"})
}

// DeleteContent removes an item and unbinds its media
func (h *ContentHandler) DeleteContent(c echo.Context) error {
	uid := currentUID(c)
	if err := h.contentService.Delete(c.Request().Context(), uid, c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/labstack/echo/v4"
)

// MediaHandler is the upload boundary between clients and the blob store
type MediaHandler struct {
	mediaService *services.MediaService
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// RegisterMediaRoutes registers media-related routes
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.POST("/media", h.UploadMedia)
	g.GET("/media/resolve", h.ResolveMedia)
}

// UploadMedia accepts a multipart upload and returns the opaque reference a
// content item stores as its media_ref
func (h *MediaHandler) UploadMedia(c echo.Context) error {
	uid := currentUID(c)

	category := c.FormValue("category")
	if category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Form value 'category' is required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Form file 'file' is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded file")
	}
	defer src.Close()

	ref, err := h.mediaService.Bind(c.Request().Context(), uid, category, fileHeader.Header.Get("Content-Type"), src)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"media_ref": ref})
}

// ResolveMedia verifies a reference still points at a live blob
func (h *MediaHandler) ResolveMedia(c echo.Context) error {
	ref := c.QueryParam("ref")
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query parameter 'ref' is required")
	}

	if err := h.mediaService.Resolve(c.Request().Context(), ref); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"media_ref": ref})
}

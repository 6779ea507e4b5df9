package handlers

import (
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/labstack/echo/v4"
)

// FriendshipHandler handles HTTP requests related to the friend graph
type FriendshipHandler struct {
	relationshipService *services.RelationshipService
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(relationshipService *services.RelationshipService) *FriendshipHandler {
	return &FriendshipHandler{relationshipService: relationshipService}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/request", h.SendFriendRequest)
	g.GET("/friends/requests/pending", h.GetPendingFriendRequests)
	g.PUT("/friends/:id/accept", h.AcceptFriendRequest)
	g.DELETE("/friends/:id", h.RemoveFriend)
	g.GET("/friends", h.GetFriends)
}

// SendFriendRequest handles sending a friend request by username
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	uid := currentUID(c)

	var req models.CreateFriendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	rel, err := h.relationshipService.Request(c.Request().Context(), uid, req.Username)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rel)
}

// GetPendingFriendRequests lists incoming pending requests
func (h *FriendshipHandler) GetPendingFriendRequests(c echo.Context) error {
	uid := currentUID(c)
	views, err := h.relationshipService.ListPending(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, views)
}

// AcceptFriendRequest accepts a pending request addressed to the caller
func (h *FriendshipHandler) AcceptFriendRequest(c echo.Context) error {
	uid := currentUID(c)
	pairID := c.Param("id")

	rel, err := h.relationshipService.Accept(c.Request().Context(), uid, pairID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rel)
}

// RemoveFriend declines a pending request or unfriends an accepted one
func (h *FriendshipHandler) RemoveFriend(c echo.Context) error {
	uid := currentUID(c)
	pairID := c.Param("id")

	if err := h.relationshipService.Remove(c.Request().Context(), uid, pairID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetFriends returns the caller's friends, derived from accepted relationships
func (h *FriendshipHandler) GetFriends(c echo.Context) error {
	uid := currentUID(c)
	friends, err := h.relationshipService.ListFriends(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, friends)
}

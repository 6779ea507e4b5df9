package handlers

import (
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/labstack/echo/v4"
)

// GroupHandler handles HTTP requests related to groups
type GroupHandler struct {
	groupService *services.GroupService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// RegisterGroupRoutes registers group-related routes
func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.POST("/groups", h.CreateGroup)
	g.GET("/groups", h.GetGroups)
	g.PUT("/groups/:id/members", h.AddGroupMember)
	g.DELETE("/groups/:id/members/:uid", h.RemoveGroupMember)
}

// CreateGroup creates a group containing the caller plus the listed members
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	uid := currentUID(c)

	var req models.CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	group, err := h.groupService.Create(c.Request().Context(), uid, req.Name, req.Members)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, group)
}

// GetGroups lists the caller's groups
func (h *GroupHandler) GetGroups(c echo.Context) error {
	uid := currentUID(c)
	groups, err := h.groupService.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

// AddGroupMember adds a user to a group the caller belongs to
func (h *GroupHandler) AddGroupMember(c echo.Context) error {
	uid := currentUID(c)

	var req models.AddGroupMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.groupService.AddMember(c.Request().Context(), uid, c.Param("id"), req.UID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "member added"})
}

// RemoveGroupMember removes a user from a group; removing the last member
// deletes the group
func (h *GroupHandler) RemoveGroupMember(c echo.Context) error {
	uid := currentUID(c)
	if err := h.groupService.RemoveMember(c.Request().Context(), uid, c.Param("id"), c.Param("uid")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

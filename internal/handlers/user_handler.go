package handlers

import (
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to user profiles
type UserHandler struct {
	userRepository repositories.UserRepository
	bus            *events.Bus
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, bus *events.Bus) *UserHandler {
	return &UserHandler{userRepository: userRepo, bus: bus}
}

// RegisterProfileRoutes registers profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.PUT("/users/me", h.UpdateMe)
	g.DELETE("/users/me", h.DeleteMe)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:username", h.GetByUsername)
}

// GetMe returns the caller's own profile
func (h *UserHandler) GetMe(c echo.Context) error {
	uid := currentUID(c)
	user, err := h.userRepository.GetUserByUID(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe updates the mutable parts of the caller's profile. The username is
// immutable once claimed; a request that tries to change it is refused.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid := currentUID(c)

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByUID(ctx, uid)
	if err != nil {
		return toHTTPError(err)
	}
	if req.Username != "" && req.Username != user.Username {
		return toHTTPError(apperror.InvalidOperation("username cannot be changed"))
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.AvatarRef != "" {
		user.AvatarRef = req.AvatarRef
	}
	if req.DeviceToken != "" {
		user.DeviceToken = req.DeviceToken
	}
	if err := h.userRepository.UpdateProfile(ctx, user); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteMe schedules the account-deletion cascade. The username is captured
// here, while the profile document still exists, and rides along on the
// event; the response is accepted-for-processing rather than done.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	uid := currentUID(c)

	user, err := h.userRepository.GetUserByUID(c.Request().Context(), uid)
	if err != nil {
		return toHTTPError(err)
	}

	h.bus.Publish(c.Request().Context(), events.AccountDeleted{
		UID:      uid,
		Username: user.Username,
	})
	return c.JSON(http.StatusAccepted, map[string]string{"status": "account deletion scheduled"})
}

// SearchUsers finds profiles by username prefix
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query parameter 'q' is required")
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, 20)
	if err != nil {
		return toHTTPError(err)
	}
	results := make([]models.UserCompact, 0, len(users))
	for i := range users {
		results = append(results, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, results)
}

// GetByUsername returns another user's public profile
func (h *UserHandler) GetByUsername(c echo.Context) error {
	username := c.Param("username")
	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}

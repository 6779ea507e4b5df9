package handlers

import (
	"net/http"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles account provisioning. Authentication itself is the
// platform's job; signup only claims a username and creates the profile for
// an already-verified Firebase identity.
type AuthHandler struct {
	userRepository repositories.UserRepository
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository) *AuthHandler {
	return &AuthHandler{userRepository: userRepo}
}

// RegisterAuthRoutes registers auth-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/auth/signup", h.Signup)
}

// Signup claims a username and creates the profile in one transaction. The
// UID comes from the verified ID token, never from the payload.
func (h *AuthHandler) Signup(c echo.Context) error {
	uid := currentUID(c)

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	now := time.Now().UTC()
	user := &models.User{
		UID:         uid,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		DeviceToken: req.DeviceToken,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.userRepository.CreateUserWithUsername(c.Request().Context(), user); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

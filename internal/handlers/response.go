package handlers

import (
	"errors"
	"net/http"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps the service error taxonomy onto transport status codes.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, apperror.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, apperror.ErrInvalidOperation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperror.ErrInvalidSymbolTag):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperror.ErrPartialFailure):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// currentUID returns the Firebase UID the auth middleware stored on the
// context.
func currentUID(c echo.Context) string {
	uid, _ := c.Get("firebaseUID").(string)
	return uid
}

package validators

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CJonesCode/SnapConnect/internal/models"
)

func TestValidateRequestStructs(t *testing.T) {
	v := NewValidator()

	t.Run("accepts a well-formed send", func(t *testing.T) {
		assert.NoError(t, v.Validate(&models.CreateContentRequest{
			Kind:     models.KindSnap,
			MediaRef: "snap/u1/1",
		}))
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		err := v.Validate(&models.CreateContentRequest{
			Kind:     "poke",
			MediaRef: "poke/u1/1",
		})
		requireBadRequest(t, err)
	})

	t.Run("rejects a missing media reference", func(t *testing.T) {
		err := v.Validate(&models.CreateContentRequest{Kind: models.KindStory})
		requireBadRequest(t, err)
	})

	t.Run("caps the annotation length", func(t *testing.T) {
		err := v.Validate(&models.CreateContentRequest{
			Kind:       models.KindSnap,
			MediaRef:   "snap/u1/1",
			Annotation: strings.Repeat("a", 241),
		})
		requireBadRequest(t, err)
	})

	t.Run("enforces username bounds on signup", func(t *testing.T) {
		assert.NoError(t, v.Validate(&models.SignupRequest{Username: "alice", DisplayName: "Alice"}))
		requireBadRequest(t, v.Validate(&models.SignupRequest{Username: "al", DisplayName: "Alice"}))
		requireBadRequest(t, v.Validate(&models.SignupRequest{DisplayName: "Alice"}))
	})
}

func requireBadRequest(t *testing.T, err error) {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chefbot_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	HandleError(c, err)
	return w
}

func TestHandleErrorEnvelope(t *testing.T) {
	w := serve(New429Error("Daily limit reached"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TOO_MANY_REQUESTS", body.Error.Type)
	assert.Equal(t, "Daily limit reached", body.Error.Message)
}

func TestHandleErrorHidesInternals(t *testing.T) {
	w := serve(fmt.Errorf("pq: password authentication failed for user chefbot"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestFromServiceMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get user: %w", services.ErrUserNotFound), http.StatusNotFound},
		{services.ErrDishNotFound, http.StatusNotFound},
		{services.ErrSessionExpired, http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", services.ErrBackendFailure), http.StatusServiceUnavailable},
		{New403Error(), http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, FromService(tc.err).StatusCode, tc.err.Error())
	}
}

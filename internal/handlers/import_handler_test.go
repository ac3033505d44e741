package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
)

func newTestImportHandler() *ImportHandler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &ImportHandler{logger: logger.WithField("component", "import-handler")}
}

func TestRespondRowError_StatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestImportHandler()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"row not found", services.ErrRowNotFound, http.StatusNotFound, "ROW_NOT_FOUND"},
		{"image not found", services.ErrImageNotFound, http.StatusNotFound, "IMAGE_NOT_FOUND"},
		{"field not allowed", &services.FieldNotAllowedError{Field: "status"}, http.StatusBadRequest, "FIELD_NOT_ALLOWED"},
		{"bad field value", &services.InvalidFieldValueError{Field: "price"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"infrastructure", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			h.respondRowError(c, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationLine struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Debit     string `json:"debit" binding:"omitempty,amount"`
}

type validationRequest struct {
	Currency string           `json:"currency" binding:"required,currency"`
	Lines    []validationLine `json:"lines" binding:"required,min=2,dive"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req validationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestValidation(t *testing.T) {
	line := `{"account_id":"8f14e45f-ceea-467f-a53b-2c7c3f6b9b10","debit":"10.00"}`

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{"valid", `{"currency":"USD","lines":[` + line + `,` + line + `]}`, http.StatusOK, nil},
		{"lowercase currency", `{"currency":"usd","lines":[` + line + `,` + line + `]}`, http.StatusBadRequest, []string{"currency"}},
		{"single line", `{"currency":"USD","lines":[` + line + `]}`, http.StatusBadRequest, []string{"lines"}},
		{"negative amount", `{"currency":"USD","lines":[` + line + `,{"account_id":"8f14e45f-ceea-467f-a53b-2c7c3f6b9b10","debit":"-1"}]}`, http.StatusBadRequest, []string{"debit"}},
		{"bad uuid", `{"currency":"USD","lines":[` + line + `,{"account_id":"x","debit":"1"}]}`, http.StatusBadRequest, []string{"account_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			validationRouter().ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantFields == nil {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
			var fields []string
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestFormatValidationErrors_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"currency":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	validationRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"details"`)
}

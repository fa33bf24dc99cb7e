package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"casino-ledger/internal/adapter/http/middleware"
	"casino-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBindJSON(t *testing.T) {
	type payload struct {
		Side string `json:"side" binding:"required,oneof=PLAYER BANKER TIE"`
	}

	router := gin.New()
	router.Use(middleware.MaxBodySize(64))
	router.POST("/bind", func(c *gin.Context) {
		var p payload
		if !bindJSON(c, &p, apperror.ErrInvalidBet) {
			return
		}
		c.String(http.StatusOK, p.Side)
	})

	tests := []struct {
		name       string
		body       string
		chunked    bool
		wantStatus int
		wantBody   string
	}{
		{"valid", `{"side":"BANKER"}`, false, http.StatusOK, "BANKER"},
		{"fails validation", `{"side":"DRAGON"}`, false, http.StatusBadRequest, apperror.CodeInvalidBet},
		{"malformed json", `{"side":`, false, http.StatusBadRequest, apperror.CodeInvalidBet},
		{"oversized chunked body", `{"side":"` + strings.Repeat("B", 200) + `"}`, true, http.StatusRequestEntityTooLarge, apperror.CodeBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

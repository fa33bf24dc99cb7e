package handler

import (
	"errors"
	"net/http"

	"casino-ledger/pkg/apperror"
	"casino-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// bindJSON binds the request body into obj. A body cut off by MaxBodySize is
// REQ_413; any other decoding or validation failure goes through invalid.
func bindJSON(c *gin.Context, obj any, invalid func(string) *apperror.AppError) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, apperror.ErrBodyTooLarge())
	} else {
		response.Error(c, invalid(err.Error()))
	}
	return false
}

package middleware

import (
"net/http"

"casino-ledger/pkg/apperror"
"casino-ledger/pkg/response"

"github.com/gin-gonic/gin"
)

// MaxBodySize limits the request body to maxBytes. A declared Content-Length
// over the limit is refused up front; otherwise the reader fails once the
// limit is crossed and the handler's bind answers REQ_413.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
return func(c *gin.Context) {
if c.Request.ContentLength > maxBytes {
response.Error(c, apperror.ErrBodyTooLarge())
c.Abort()
return
}
if c.Request.Body != nil {
c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
}
c.Next()
}
}

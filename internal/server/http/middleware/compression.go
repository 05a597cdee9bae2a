package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

// DecompressRequest inflates gzip request bodies. A positive limit caps the inflated size.
func DecompressRequest(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if req.Body == nil || !isGzip(req.Header.Get("Content-Encoding")) {
			c.Next()
			return
		}

		compressed := req.Body
		inflated, err := gzip.NewReader(compressed)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed gzip body"})
			return
		}
		defer func() {
			_ = inflated.Close()
			_ = compressed.Close()
		}()

		req.Body = inflated
		if limit > 0 {
			req.Body = http.MaxBytesReader(c.Writer, inflated, limit)
		}
		req.Header.Del("Content-Encoding")
		req.ContentLength = -1
		c.Next()
	}
}

func isGzip(encoding string) bool {
	for _, part := range strings.Split(encoding, ",") {
		if strings.EqualFold(strings.TrimSpace(part), "gzip") {
			return true
		}
	}
	return false
}

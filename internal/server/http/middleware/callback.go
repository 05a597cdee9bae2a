package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallbackTokenParam names the route parameter carrying the callback token.
const CallbackTokenParam = "token"

// CallbackToken admits only requests whose path token matches token. An empty
// token rejects every request.
func CallbackToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.Param(CallbackTokenParam))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}

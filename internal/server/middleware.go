package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerIdempotencyKey = "Idempotency-Key"

// CORS allows any origin: the simulator is pointed at from arbitrary test
// harnesses and browser consoles.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

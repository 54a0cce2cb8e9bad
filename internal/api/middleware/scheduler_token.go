package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sentinela-app/sentinela/internal/utils"
)

// SchedulerToken guards the internal maintenance routes with a static
// shared secret. The external scheduler is a cron job, not a token-minting
// client, so a plain header check is enough here.
func SchedulerToken() gin.HandlerFunc {
	secret := os.Getenv("SCHEDULER_TOKEN")

	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "SCHEDULER_TOKEN is not set",
			})
			return
		}

		got := c.GetHeader("X-Scheduler-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "invalid scheduler token",
			})
			return
		}
		c.Next()
	}
}

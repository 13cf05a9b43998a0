package middleware

import (
	"net/http"
	"strconv"

	"github.com/beaconhub/beacon-registry/internal/ratelimit"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ClientRateLimit rejects callers that exceed the manager's per-client
// budget with 429 and a Retry-After header.
func ClientRateLimit(manager *ratelimit.Manager, logger log.FieldLogger) gin.HandlerFunc {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return func(c *gin.Context) {
		if manager == nil {
			c.Next()
			return
		}
		result, errAllow := manager.Allow(c.Request.Context(), ratelimit.KeyForClient(c.ClientIP()))
		if errAllow != nil {
			logger.WithError(errAllow).Warn("rate limit check failed, allowing request")
			c.Next()
			return
		}
		if !result.Allowed {
			retry := result.RetryAfter(manager.Now())
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			RecordLookup(LookupThrottled)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Next()
	}
}

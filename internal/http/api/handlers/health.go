package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports database reachability.
type HealthHandler struct {
	db     Pinger
	logger log.FieldLogger
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db Pinger, logger log.FieldLogger) *HealthHandler {
	return &HealthHandler{db: db, logger: handlerLogger(logger)}
}

// Healthz returns 200 when the database answers a ping.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if errPing := h.db.Ping(ctx); errPing != nil {
		h.logger.WithError(errPing).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

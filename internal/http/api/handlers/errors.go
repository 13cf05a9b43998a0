package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// writeError maps a service error onto a status code and JSON body.
// notConfirmed is the status used for service.ErrNotConfirmed.
func writeError(c *gin.Context, logger log.FieldLogger, action string, err error, notConfirmed int) {
	var validationErr *service.ValidationError
	var duplicateErr *service.DuplicateError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      validationErr.Error(),
			"violations": validationErr.Violations,
		})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": duplicateErr.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotConfirmed):
		if notConfirmed == 0 {
			notConfirmed = http.StatusPreconditionFailed
		}
		c.JSON(notConfirmed, gin.H{"error": "deletion requires confirm=yes"})
	default:
		logger.WithError(err).Error(action + " failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed"})
	}
}

// parseID reads a positive numeric path parameter. IDs must fit a signed
// 64-bit column.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 63)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// parseQueryID reads a positive numeric query parameter.
func parseQueryID(c *gin.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + name})
		return 0, false
	}
	id, errParse := strconv.ParseUint(raw, 10, 63)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// confirmed reports whether the caller passed confirm=yes.
func confirmed(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.Query("confirm")), "yes")
}

func bindJSON(c *gin.Context, dst any) bool {
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

func handlerLogger(logger log.FieldLogger) log.FieldLogger {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return logger.WithField("component", "http")
}

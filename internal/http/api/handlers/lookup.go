package handlers

import (
	"errors"
	"net/http"

	"github.com/beaconhub/beacon-registry/internal/http/middleware"
	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LookupHandler serves device lookups authenticated by project secret.
type LookupHandler struct {
	svc    *service.Service
	logger log.FieldLogger
}

// NewLookupHandler constructs a LookupHandler.
func NewLookupHandler(svc *service.Service, logger log.FieldLogger) *LookupHandler {
	return &LookupHandler{svc: svc, logger: handlerLogger(logger)}
}

// Query finds the beacon matching the fingerprint whose project secret
// verifies.
func (h *LookupHandler) Query(c *gin.Context) {
	var body service.LookupRequest
	if !bindJSON(c, &body) {
		middleware.RecordLookup(middleware.LookupInvalid)
		return
	}
	beacon, errLookup := h.svc.AuthenticateBeaconLookup(c.Request.Context(), body)
	if errLookup != nil {
		var validationErr *service.ValidationError
		switch {
		case errors.As(errLookup, &validationErr):
			middleware.RecordLookup(middleware.LookupInvalid)
		case errors.Is(errLookup, service.ErrNotFound):
			middleware.RecordLookup(middleware.LookupNotFound)
		default:
			middleware.RecordLookup(middleware.LookupError)
		}
		writeError(c, h.logger, "beacon lookup", errLookup, 0)
		return
	}
	middleware.RecordLookup(middleware.LookupFound)
	c.JSON(http.StatusOK, beaconView(beacon))
}

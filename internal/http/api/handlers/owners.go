package handlers

import (
	"net/http"
	"net/url"

	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// OwnerHandler manages owner endpoints.
type OwnerHandler struct {
	svc    *service.Service
	logger log.FieldLogger
}

// NewOwnerHandler constructs an OwnerHandler.
func NewOwnerHandler(svc *service.Service, logger log.FieldLogger) *OwnerHandler {
	return &OwnerHandler{svc: svc, logger: handlerLogger(logger)}
}

// Create registers a new owner.
func (h *OwnerHandler) Create(c *gin.Context) {
	var body service.OwnerInput
	if !bindJSON(c, &body) {
		return
	}
	owner, errCreate := h.svc.CreateOwner(c.Request.Context(), body)
	if errCreate != nil {
		writeError(c, h.logger, "create owner", errCreate, 0)
		return
	}
	c.Header("Location", "/Owner/"+url.PathEscape(owner.Username))
	c.JSON(http.StatusCreated, ownerView(owner))
}

// Get returns an owner by username.
func (h *OwnerHandler) Get(c *gin.Context) {
	owner, errGet := h.svc.GetOwner(c.Request.Context(), c.Param("username"))
	if errGet != nil {
		writeError(c, h.logger, "get owner", errGet, 0)
		return
	}
	c.JSON(http.StatusOK, ownerView(owner))
}

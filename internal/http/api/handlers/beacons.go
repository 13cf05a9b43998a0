package handlers

import (
	"fmt"
	"net/http"

	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// BeaconHandler manages beacon endpoints of a project.
type BeaconHandler struct {
	svc    *service.Service
	logger log.FieldLogger
}

// NewBeaconHandler constructs a BeaconHandler.
func NewBeaconHandler(svc *service.Service, logger log.FieldLogger) *BeaconHandler {
	return &BeaconHandler{svc: svc, logger: handlerLogger(logger)}
}

// List returns the project's beacons filtered by uuid, major and minor.
func (h *BeaconHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	q := service.BeaconQuery{UUID: c.Query("uuid"), Major: c.Query("major"), Minor: c.Query("minor")}
	rows, errList := h.svc.SearchBeacons(c.Request.Context(), projectID, q)
	if errList != nil {
		writeError(c, h.logger, "list beacons", errList, 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beacons": beaconViews(rows)})
}

// Get returns one beacon.
func (h *BeaconHandler) Get(c *gin.Context) {
	projectID, beaconID, ok := beaconPath(c)
	if !ok {
		return
	}
	beacon, errGet := h.svc.GetBeacon(c.Request.Context(), projectID, beaconID)
	if errGet != nil {
		writeError(c, h.logger, "get beacon", errGet, 0)
		return
	}
	c.JSON(http.StatusOK, beaconView(beacon))
}

// Create registers a beacon in the project.
func (h *BeaconHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	var body service.BeaconInput
	if !bindJSON(c, &body) {
		return
	}
	beacon, errCreate := h.svc.CreateBeacon(c.Request.Context(), projectID, body)
	if errCreate != nil {
		writeError(c, h.logger, "create beacon", errCreate, 0)
		return
	}
	c.Header("Location", fmt.Sprintf("/Project/%d/Beacon/%d", projectID, beacon.ID))
	c.JSON(http.StatusCreated, beaconView(beacon))
}

// Update applies a partial update.
func (h *BeaconHandler) Update(c *gin.Context) {
	projectID, beaconID, ok := beaconPath(c)
	if !ok {
		return
	}
	var body service.BeaconUpdate
	if !bindJSON(c, &body) {
		return
	}
	beacon, errUpdate := h.svc.UpdateBeacon(c.Request.Context(), projectID, beaconID, body)
	if errUpdate != nil {
		writeError(c, h.logger, "update beacon", errUpdate, 0)
		return
	}
	c.JSON(http.StatusOK, beaconView(beacon))
}

// Delete removes a beacon. Requires confirm=yes.
func (h *BeaconHandler) Delete(c *gin.Context) {
	projectID, beaconID, ok := beaconPath(c)
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteBeacon(c.Request.Context(), projectID, beaconID, confirmed(c)); errDelete != nil {
		writeError(c, h.logger, "delete beacon", errDelete, http.StatusNotAcceptable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func beaconPath(c *gin.Context) (uint64, uint64, bool) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return 0, 0, false
	}
	beaconID, ok := parseID(c, "beaconId")
	if !ok {
		return 0, 0, false
	}
	return projectID, beaconID, true
}

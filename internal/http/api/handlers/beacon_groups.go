package handlers

import (
	"fmt"
	"net/http"

	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// BeaconGroupHandler manages beacon group endpoints of a project.
type BeaconGroupHandler struct {
	svc    *service.Service
	logger log.FieldLogger
}

// NewBeaconGroupHandler constructs a BeaconGroupHandler.
func NewBeaconGroupHandler(svc *service.Service, logger log.FieldLogger) *BeaconGroupHandler {
	return &BeaconGroupHandler{svc: svc, logger: handlerLogger(logger)}
}

// List returns the project's groups, filtered by the optional name query.
func (h *BeaconGroupHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	rows, errList := h.svc.SearchGroups(c.Request.Context(), projectID, c.Query("name"))
	if errList != nil {
		writeError(c, h.logger, "list beacon groups", errList, 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beaconGroups": groupViews(rows)})
}

// Get returns one group.
func (h *BeaconGroupHandler) Get(c *gin.Context) {
	projectID, groupID, ok := groupPath(c)
	if !ok {
		return
	}
	group, errGet := h.svc.GetGroup(c.Request.Context(), projectID, groupID)
	if errGet != nil {
		writeError(c, h.logger, "get beacon group", errGet, 0)
		return
	}
	c.JSON(http.StatusOK, groupView(group))
}

// Members returns the beacons linked to the group.
func (h *BeaconGroupHandler) Members(c *gin.Context) {
	projectID, groupID, ok := groupPath(c)
	if !ok {
		return
	}
	rows, errList := h.svc.GroupMembers(c.Request.Context(), projectID, groupID)
	if errList != nil {
		writeError(c, h.logger, "list group beacons", errList, 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beacons": beaconViews(rows)})
}

// Create creates a group in the project.
func (h *BeaconGroupHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	var body service.GroupInput
	if !bindJSON(c, &body) {
		return
	}
	group, errCreate := h.svc.CreateGroup(c.Request.Context(), projectID, body)
	if errCreate != nil {
		writeError(c, h.logger, "create beacon group", errCreate, 0)
		return
	}
	c.Header("Location", fmt.Sprintf("/Project/%d/BeaconGroup/%d", projectID, group.ID))
	c.JSON(http.StatusCreated, groupView(group))
}

// Update applies a partial update.
func (h *BeaconGroupHandler) Update(c *gin.Context) {
	projectID, groupID, ok := groupPath(c)
	if !ok {
		return
	}
	var body service.GroupUpdate
	if !bindJSON(c, &body) {
		return
	}
	group, errUpdate := h.svc.UpdateGroup(c.Request.Context(), projectID, groupID, body)
	if errUpdate != nil {
		writeError(c, h.logger, "update beacon group", errUpdate, 0)
		return
	}
	c.JSON(http.StatusOK, groupView(group))
}

// Delete detaches the group's beacons and removes it. Requires confirm=yes.
func (h *BeaconGroupHandler) Delete(c *gin.Context) {
	projectID, groupID, ok := groupPath(c)
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteGroup(c.Request.Context(), projectID, groupID, confirmed(c)); errDelete != nil {
		writeError(c, h.logger, "delete beacon group", errDelete, http.StatusNotAcceptable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AddBeacon links the beacon named by the beaconId query to the group.
func (h *BeaconGroupHandler) AddBeacon(c *gin.Context) {
	projectID, groupID, ok := groupPath(c)
	if !ok {
		return
	}
	beaconID, ok := parseQueryID(c, "beaconId")
	if !ok {
		return
	}
	group, errAdd := h.svc.AddBeaconToGroup(c.Request.Context(), projectID, groupID, beaconID)
	if errAdd != nil {
		writeError(c, h.logger, "add beacon to group", errAdd, 0)
		return
	}
	c.JSON(http.StatusOK, groupView(group))
}

// RemoveBeacon unlinks the beacon named by the beaconId query from the group.
func (h *BeaconGroupHandler) RemoveBeacon(c *gin.Context) {
	projectID, groupID, ok := groupPath(c)
	if !ok {
		return
	}
	beaconID, ok := parseQueryID(c, "beaconId")
	if !ok {
		return
	}
	group, errRemove := h.svc.RemoveBeaconFromGroup(c.Request.Context(), projectID, groupID, beaconID)
	if errRemove != nil {
		writeError(c, h.logger, "remove beacon from group", errRemove, 0)
		return
	}
	c.JSON(http.StatusOK, groupView(group))
}

func groupPath(c *gin.Context) (uint64, uint64, bool) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return 0, 0, false
	}
	groupID, ok := parseID(c, "groupId")
	if !ok {
		return 0, 0, false
	}
	return projectID, groupID, true
}

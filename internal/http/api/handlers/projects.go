package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ProjectHandler manages owner-scoped project endpoints.
type ProjectHandler struct {
	svc    *service.Service
	logger log.FieldLogger
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(svc *service.Service, logger log.FieldLogger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: handlerLogger(logger)}
}

// List returns the owner's projects, filtered by the optional name query.
func (h *ProjectHandler) List(c *gin.Context) {
	rows, errList := h.svc.SearchProjects(c.Request.Context(), c.Param("owner"), c.Query("name"))
	if errList != nil {
		writeError(c, h.logger, "list projects", errList, 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projectViews(rows)})
}

// Get returns one project.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	project, errGet := h.svc.GetProject(c.Request.Context(), c.Param("owner"), id)
	if errGet != nil {
		writeError(c, h.logger, "get project", errGet, 0)
		return
	}
	c.JSON(http.StatusOK, projectView(project))
}

// Create creates a project. The response carries the plaintext secret,
// which cannot be retrieved again.
func (h *ProjectHandler) Create(c *gin.Context) {
	var body service.ProjectInput
	if !bindJSON(c, &body) {
		return
	}
	owner := c.Param("owner")
	project, secret, errCreate := h.svc.CreateProject(c.Request.Context(), owner, body)
	if errCreate != nil {
		writeError(c, h.logger, "create project", errCreate, 0)
		return
	}
	out := projectView(project)
	out["projectSecret"] = secret
	c.Header("Location", fmt.Sprintf("/%s/Project/%d", url.PathEscape(owner), project.ID))
	c.JSON(http.StatusCreated, out)
}

// Update applies a partial update.
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	var body service.ProjectUpdate
	if !bindJSON(c, &body) {
		return
	}
	project, errUpdate := h.svc.UpdateProject(c.Request.Context(), c.Param("owner"), id, body)
	if errUpdate != nil {
		writeError(c, h.logger, "update project", errUpdate, 0)
		return
	}
	c.JSON(http.StatusOK, projectView(project))
}

// ResetSecret issues a new project secret.
func (h *ProjectHandler) ResetSecret(c *gin.Context) {
	id, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	secret, errReset := h.svc.ResetProjectSecret(c.Request.Context(), c.Param("owner"), id)
	if errReset != nil {
		writeError(c, h.logger, "reset project secret", errReset, 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projectId": id, "projectSecret": secret})
}

// Delete removes a project with its beacons and groups. Requires confirm=yes.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteProject(c.Request.Context(), c.Param("owner"), id, confirmed(c)); errDelete != nil {
		writeError(c, h.logger, "delete project", errDelete, http.StatusPreconditionFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

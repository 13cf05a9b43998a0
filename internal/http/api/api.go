// Package api wires the HTTP routes onto a gin engine.
package api

import (
	"github.com/beaconhub/beacon-registry/internal/http/api/handlers"
	"github.com/beaconhub/beacon-registry/internal/http/middleware"
	"github.com/beaconhub/beacon-registry/internal/ratelimit"
	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// NewEngine builds a gin engine with recovery, access logging and metrics,
// and registers every route on it.
func NewEngine(svc *service.Service, limiter *ratelimit.Manager, logger log.FieldLogger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.AccessLog(logger))
	engine.Use(middleware.Metrics())
	RegisterRoutes(engine, svc, limiter, logger)
	return engine
}

// RegisterRoutes registers the owner, project, beacon group, beacon, lookup
// and operational routes.
func RegisterRoutes(r *gin.Engine, svc *service.Service, limiter *ratelimit.Manager, logger log.FieldLogger) {
	if r == nil || svc == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(svc, logger)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ownerHandler := handlers.NewOwnerHandler(svc, logger)
	r.POST("/Owner", ownerHandler.Create)
	r.GET("/Owner/:username", ownerHandler.Get)

	lookupHandler := handlers.NewLookupHandler(svc, logger)
	r.POST("/Query", middleware.ClientRateLimit(limiter, logger), lookupHandler.Query)

	projects := r.Group("/:owner/Project")
	projectHandler := handlers.NewProjectHandler(svc, logger)
	projects.GET("", projectHandler.List)
	projects.POST("", projectHandler.Create)
	projects.GET("/:projectId", projectHandler.Get)
	projects.PUT("/:projectId", projectHandler.Update)
	projects.DELETE("/:projectId", projectHandler.Delete)
	projects.POST("/:projectId/ResetSecret", projectHandler.ResetSecret)

	project := r.Group("/Project/:projectId")

	groupHandler := handlers.NewBeaconGroupHandler(svc, logger)
	project.GET("/BeaconGroup", groupHandler.List)
	project.POST("/BeaconGroup", groupHandler.Create)
	project.GET("/BeaconGroup/:groupId", groupHandler.Get)
	project.PUT("/BeaconGroup/:groupId", groupHandler.Update)
	project.DELETE("/BeaconGroup/:groupId", groupHandler.Delete)
	project.GET("/BeaconGroup/:groupId/Beacons", groupHandler.Members)
	project.POST("/BeaconGroup/:groupId/AddBeaconToGroup", groupHandler.AddBeacon)
	project.DELETE("/BeaconGroup/:groupId/RemoveBeaconFromGroup", groupHandler.RemoveBeacon)

	beaconHandler := handlers.NewBeaconHandler(svc, logger)
	project.GET("/Beacon", beaconHandler.List)
	project.POST("/Beacon", beaconHandler.Create)
	project.GET("/Beacon/:beaconId", beaconHandler.Get)
	project.PUT("/Beacon/:beaconId", beaconHandler.Update)
	project.DELETE("/Beacon/:beaconId", beaconHandler.Delete)
}

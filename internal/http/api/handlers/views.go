package handlers

import (
	"github.com/beaconhub/beacon-registry/internal/models"
	"github.com/gin-gonic/gin"
)

func ownerView(owner *models.Owner) gin.H {
	return gin.H{
		"id":        owner.ID,
		"username":  owner.Username,
		"createdAt": owner.CreatedAt,
	}
}

func projectView(project *models.Project) gin.H {
	return gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"createdAt":   project.CreatedAt,
		"updatedAt":   project.UpdatedAt,
	}
}

func groupView(group *models.BeaconGroup) gin.H {
	return gin.H{
		"id":          group.ID,
		"projectId":   group.ProjectID,
		"name":        group.Name,
		"description": group.Description,
		"createdAt":   group.CreatedAt,
		"updatedAt":   group.UpdatedAt,
	}
}

func beaconView(beacon *models.Beacon) gin.H {
	return gin.H{
		"id":            beacon.ID,
		"projectId":     beacon.ProjectID,
		"beaconGroupId": beacon.BeaconGroupID,
		"uuid":          beacon.UUID,
		"major":         beacon.Major,
		"minor":         beacon.Minor,
		"description":   beacon.Description,
		"createdAt":     beacon.CreatedAt,
		"updatedAt":     beacon.UpdatedAt,
	}
}

func projectViews(rows []models.Project) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, projectView(&rows[i]))
	}
	return out
}

func groupViews(rows []models.BeaconGroup) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, groupView(&rows[i]))
	}
	return out
}

func beaconViews(rows []models.Beacon) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, beaconView(&rows[i]))
	}
	return out
}

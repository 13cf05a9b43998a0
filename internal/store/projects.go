package store

import (
	"context"
	"fmt"
	"strings"

	dbutil "github.com/beaconhub/beacon-registry/internal/db"
	"github.com/beaconhub/beacon-registry/internal/models"
	"gorm.io/gorm/clause"
)

// ProjectFilter narrows ListProjects. Zero values are wildcards.
type ProjectFilter struct {
	OwnerID uint64
	Name    string // Case-insensitive substring.
}

// SaveProject inserts the project when it has no ID, otherwise updates its
// mutable columns. The ID, owner and creation timestamp are never rewritten.
func (s *Store) SaveProject(ctx context.Context, project *models.Project) error {
	now := s.nowFn()
	if project.ID == 0 {
		if project.CreatedAt.IsZero() {
			project.CreatedAt = now
		}
		project.UpdatedAt = now
		if errCreate := s.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; errCreate != nil {
			return fmt.Errorf("store: create project: %w", errCreate)
		}
		s.logger.WithField("project_id", project.ID).Debug("project created")
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", project.ID).Updates(map[string]any{
		"name":        project.Name,
		"description": project.Description,
		"secret_hash": project.SecretHash,
		"updated_at":  now,
	})
	if res.Error != nil {
		return fmt.Errorf("store: update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	project.UpdatedAt = now
	s.logger.WithField("project_id", project.ID).Debug("project updated")
	return nil
}

// FindProject loads a project by ID.
func (s *Store) FindProject(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if errFind := s.db.WithContext(ctx).First(&project, id).Error; errFind != nil {
		return nil, translate(errFind)
	}
	return &project, nil
}

// ListProjects returns projects matching the filter ordered by ID.
func (s *Store) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	q := s.db.WithContext(ctx).Model(&models.Project{})
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "name"), dbutil.ContainsPattern(s.db, name))
	}
	var rows []models.Project
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list projects: %w", errFind)
	}
	return rows, nil
}

// DeleteProject removes the project row only; dependents are the caller's concern.
func (s *Store) DeleteProject(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Project{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.logger.WithField("project_id", id).Debug("project deleted")
	return nil
}

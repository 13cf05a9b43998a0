package store

import (
	"context"
	"fmt"
	"strings"

	dbutil "github.com/beaconhub/beacon-registry/internal/db"
	"github.com/beaconhub/beacon-registry/internal/models"
	"gorm.io/gorm/clause"
)

// GroupFilter narrows ListGroups. Zero values are wildcards.
type GroupFilter struct {
	ProjectID uint64
	Name      string // Case-insensitive substring.
}

// SaveGroup inserts the group when it has no ID, otherwise updates its name
// and description. The owning project is fixed at creation.
func (s *Store) SaveGroup(ctx context.Context, group *models.BeaconGroup) error {
	now := s.nowFn()
	if group.ID == 0 {
		if group.CreatedAt.IsZero() {
			group.CreatedAt = now
		}
		group.UpdatedAt = now
		if errCreate := s.db.WithContext(ctx).Omit(clause.Associations).Create(group).Error; errCreate != nil {
			return fmt.Errorf("store: create beacon group: %w", errCreate)
		}
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.BeaconGroup{}).Where("id = ?", group.ID).Updates(map[string]any{
		"name":        group.Name,
		"description": group.Description,
		"updated_at":  now,
	})
	if res.Error != nil {
		return fmt.Errorf("store: update beacon group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	group.UpdatedAt = now
	return nil
}

// FindGroup loads a beacon group by ID.
func (s *Store) FindGroup(ctx context.Context, id uint64) (*models.BeaconGroup, error) {
	var group models.BeaconGroup
	if errFind := s.db.WithContext(ctx).First(&group, id).Error; errFind != nil {
		return nil, translate(errFind)
	}
	return &group, nil
}

// ListGroups returns beacon groups matching the filter ordered by ID.
func (s *Store) ListGroups(ctx context.Context, filter GroupFilter) ([]models.BeaconGroup, error) {
	q := s.db.WithContext(ctx).Model(&models.BeaconGroup{})
	if filter.ProjectID != 0 {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "name"), dbutil.ContainsPattern(s.db, name))
	}
	var rows []models.BeaconGroup
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list beacon groups: %w", errFind)
	}
	return rows, nil
}

// DeleteGroup removes the group row only. Members must be detached first.
func (s *Store) DeleteGroup(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.BeaconGroup{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete beacon group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroupsOfProject removes every beacon group of a project.
func (s *Store) DeleteGroupsOfProject(ctx context.Context, projectID uint64) (int64, error) {
	res := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.BeaconGroup{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: delete beacon groups of project: %w", res.Error)
	}
	return res.RowsAffected, nil
}

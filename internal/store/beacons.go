package store

import (
	"context"
	"fmt"

	"github.com/beaconhub/beacon-registry/internal/models"
	"gorm.io/gorm/clause"
)

// BeaconFilter narrows ListBeacons. Zero values are wildcards; fingerprint
// fields match exactly and are expected to be normalized already.
type BeaconFilter struct {
	ProjectID uint64
	GroupID   uint64
	UUID      string
	Major     string
	Minor     string
	ExcludeID uint64
}

// SaveBeacon inserts the beacon when it has no ID, otherwise updates its
// fingerprint, description and group link. The owning project is fixed at creation.
func (s *Store) SaveBeacon(ctx context.Context, beacon *models.Beacon) error {
	now := s.nowFn()
	if beacon.ID == 0 {
		if beacon.CreatedAt.IsZero() {
			beacon.CreatedAt = now
		}
		beacon.UpdatedAt = now
		if errCreate := s.db.WithContext(ctx).Omit(clause.Associations).Create(beacon).Error; errCreate != nil {
			return fmt.Errorf("store: create beacon: %w", errCreate)
		}
		return nil
	}

	var groupID any
	if beacon.BeaconGroupID != nil {
		groupID = *beacon.BeaconGroupID
	}
	res := s.db.WithContext(ctx).Model(&models.Beacon{}).Where("id = ?", beacon.ID).Updates(map[string]any{
		"uuid":            beacon.UUID,
		"major":           beacon.Major,
		"minor":           beacon.Minor,
		"description":     beacon.Description,
		"beacon_group_id": groupID,
		"updated_at":      now,
	})
	if res.Error != nil {
		return fmt.Errorf("store: update beacon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	beacon.UpdatedAt = now
	return nil
}

// FindBeacon loads a beacon by ID.
func (s *Store) FindBeacon(ctx context.Context, id uint64) (*models.Beacon, error) {
	var beacon models.Beacon
	if errFind := s.db.WithContext(ctx).First(&beacon, id).Error; errFind != nil {
		return nil, translate(errFind)
	}
	return &beacon, nil
}

// ListBeacons returns beacons matching the filter ordered by ID.
func (s *Store) ListBeacons(ctx context.Context, filter BeaconFilter) ([]models.Beacon, error) {
	q := s.db.WithContext(ctx).Model(&models.Beacon{})
	if filter.ProjectID != 0 {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if filter.GroupID != 0 {
		q = q.Where("beacon_group_id = ?", filter.GroupID)
	}
	if filter.UUID != "" {
		q = q.Where("uuid = ?", filter.UUID)
	}
	if filter.Major != "" {
		q = q.Where("major = ?", filter.Major)
	}
	if filter.Minor != "" {
		q = q.Where("minor = ?", filter.Minor)
	}
	if filter.ExcludeID != 0 {
		q = q.Where("id <> ?", filter.ExcludeID)
	}
	var rows []models.Beacon
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list beacons: %w", errFind)
	}
	return rows, nil
}

// DeleteBeacon removes a beacon row.
func (s *Store) DeleteBeacon(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Beacon{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete beacon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DetachGroupMembers clears the group link of every beacon in the group.
func (s *Store) DetachGroupMembers(ctx context.Context, groupID uint64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Beacon{}).
		Where("beacon_group_id = ?", groupID).
		Updates(map[string]any{"beacon_group_id": nil, "updated_at": s.nowFn()})
	if res.Error != nil {
		return 0, fmt.Errorf("store: detach beacon group members: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteBeaconsOfProject removes every beacon of a project.
func (s *Store) DeleteBeaconsOfProject(ctx context.Context, projectID uint64) (int64, error) {
	res := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Beacon{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: delete beacons of project: %w", res.Error)
	}
	return res.RowsAffected, nil
}

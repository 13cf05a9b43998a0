package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/beaconhub/beacon-registry/internal/models"
	"github.com/beaconhub/beacon-registry/internal/ownership"
	"github.com/beaconhub/beacon-registry/internal/store"
	log "github.com/sirupsen/logrus"
)

// GetOwner loads an owner by username.
func (s *Service) GetOwner(ctx context.Context, username string) (*models.Owner, error) {
	owner, errFind := s.store.FindOwnerByUsername(ctx, username)
	if errFind != nil {
		return nil, notFound(errFind, "owner %q", username)
	}
	return owner, nil
}

// SearchProjects lists the owner's projects. An empty name lists all of
// them; a non-empty name that matches nothing is ErrNotFound.
func (s *Service) SearchProjects(ctx context.Context, ownerName, name string) ([]models.Project, error) {
	name = strings.TrimSpace(name)
	var rows []models.Project
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		owner, errOwner := res.ResolveOwner(ctx, ownerName)
		if errOwner != nil {
			return notFound(errOwner, "owner %q", ownerName)
		}
		var errList error
		rows, errList = tx.ListProjects(ctx, store.ProjectFilter{OwnerID: owner.ID, Name: name})
		return errList
	})
	if errTx != nil {
		return nil, errTx
	}
	if name != "" && len(rows) == 0 {
		return nil, fmt.Errorf("%w: no project named like %q", ErrNotFound, name)
	}
	return rows, nil
}

// GetProject loads one of the owner's projects.
func (s *Service) GetProject(ctx context.Context, ownerName string, projectID uint64) (*models.Project, error) {
	var project *models.Project
	errTx := s.within(ctx, func(_ *store.Store, res *ownership.Resolver) error {
		var errResolve error
		project, errResolve = s.resolveOwnedProject(ctx, res, ownerName, projectID)
		return errResolve
	})
	if errTx != nil {
		return nil, errTx
	}
	return project, nil
}

// SearchGroups lists the project's beacon groups, optionally by name.
func (s *Service) SearchGroups(ctx context.Context, projectID uint64, name string) ([]models.BeaconGroup, error) {
	name = strings.TrimSpace(name)
	var rows []models.BeaconGroup
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := res.ResolveProject(ctx, projectID); errResolve != nil {
			return notFound(errResolve, "project %d", projectID)
		}
		var errList error
		rows, errList = tx.ListGroups(ctx, store.GroupFilter{ProjectID: projectID, Name: name})
		return errList
	})
	if errTx != nil {
		return nil, errTx
	}
	if name != "" && len(rows) == 0 {
		return nil, fmt.Errorf("%w: no beacon group named like %q", ErrNotFound, name)
	}
	return rows, nil
}

// GetGroup loads one beacon group of the project.
func (s *Service) GetGroup(ctx context.Context, projectID, groupID uint64) (*models.BeaconGroup, error) {
	var group *models.BeaconGroup
	errTx := s.within(ctx, func(_ *store.Store, res *ownership.Resolver) error {
		var errResolve error
		group, errResolve = s.resolveGroup(ctx, res, projectID, groupID)
		return errResolve
	})
	if errTx != nil {
		return nil, errTx
	}
	return group, nil
}

// GroupMembers lists the beacons linked to the group. An empty group yields
// an empty list.
func (s *Service) GroupMembers(ctx context.Context, projectID, groupID uint64) ([]models.Beacon, error) {
	var rows []models.Beacon
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := s.resolveGroup(ctx, res, projectID, groupID); errResolve != nil {
			return errResolve
		}
		var errList error
		rows, errList = tx.ListBeacons(ctx, store.BeaconFilter{ProjectID: projectID, GroupID: groupID})
		return errList
	})
	if errTx != nil {
		return nil, errTx
	}
	return rows, nil
}

// SearchBeacons lists the project's beacons matching the fingerprint fields
// that are set. Unset fields are wildcards.
func (s *Service) SearchBeacons(ctx context.Context, projectID uint64, q BeaconQuery) ([]models.Beacon, error) {
	q.normalize()
	var rows []models.Beacon
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := res.ResolveProject(ctx, projectID); errResolve != nil {
			return notFound(errResolve, "project %d", projectID)
		}
		var errList error
		rows, errList = tx.ListBeacons(ctx, store.BeaconFilter{
			ProjectID: projectID,
			UUID:      q.UUID,
			Major:     q.Major,
			Minor:     q.Minor,
		})
		return errList
	})
	if errTx != nil {
		return nil, errTx
	}
	if !q.empty() && len(rows) == 0 {
		return nil, fmt.Errorf("%w: no beacon matches %s/%s/%s", ErrNotFound, q.UUID, q.Major, q.Minor)
	}
	return rows, nil
}

// GetBeacon loads one beacon of the project.
func (s *Service) GetBeacon(ctx context.Context, projectID, beaconID uint64) (*models.Beacon, error) {
	var beacon *models.Beacon
	errTx := s.within(ctx, func(_ *store.Store, res *ownership.Resolver) error {
		var errResolve error
		beacon, errResolve = s.resolveBeacon(ctx, res, projectID, beaconID)
		return errResolve
	})
	if errTx != nil {
		return nil, errTx
	}
	return beacon, nil
}

// AuthenticateBeaconLookup finds the beacon a device identifies by
// fingerprint and project secret alone. Candidates from every project are
// checked in ascending beacon ID order and the first one whose project
// secret verifies wins.
func (s *Service) AuthenticateBeaconLookup(ctx context.Context, in LookupRequest) (*models.Beacon, error) {
	in.UUID = NormalizeFingerprint(in.UUID)
	in.Major = NormalizeFingerprint(in.Major)
	in.Minor = NormalizeFingerprint(in.Minor)
	in.Secret = strings.ToUpper(strings.TrimSpace(in.Secret))
	if errCheck := s.check("lookup", &in); errCheck != nil {
		return nil, errCheck
	}

	var match *models.Beacon
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		candidates, errList := tx.ListBeacons(ctx, store.BeaconFilter{UUID: in.UUID, Major: in.Major, Minor: in.Minor})
		if errList != nil {
			return errList
		}
		verified := make(map[uint64]bool, len(candidates))
		for i := range candidates {
			candidate := &candidates[i]
			ok, seen := verified[candidate.ProjectID]
			if !seen {
				project, errResolve := res.ResolveProject(ctx, candidate.ProjectID)
				if errResolve != nil {
					return notFound(errResolve, "project %d", candidate.ProjectID)
				}
				ok = s.secrets.Verify(in.Secret, project.SecretHash)
				verified[candidate.ProjectID] = ok
			}
			if ok {
				match = candidate
				return nil
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	if match == nil {
		s.logger.WithFields(log.Fields{"uuid": in.UUID, "major": in.Major, "minor": in.Minor}).Debug("beacon lookup failed")
		return nil, fmt.Errorf("%w: no beacon for %s/%s/%s with that secret", ErrNotFound, in.UUID, in.Major, in.Minor)
	}
	return match, nil
}

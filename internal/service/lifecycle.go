package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beaconhub/beacon-registry/internal/models"
	"github.com/beaconhub/beacon-registry/internal/ownership"
	"github.com/beaconhub/beacon-registry/internal/store"
	log "github.com/sirupsen/logrus"
)

// CreateOwner registers a new owner username.
func (s *Service) CreateOwner(ctx context.Context, in OwnerInput) (*models.Owner, error) {
	in.Username = strings.TrimSpace(in.Username)
	if errCheck := s.check("owner", &in); errCheck != nil {
		return nil, errCheck
	}
	var owner *models.Owner
	errTx := s.within(ctx, func(tx *store.Store, _ *ownership.Resolver) error {
		if _, errFind := tx.FindOwnerByUsername(ctx, in.Username); errFind == nil {
			return fmt.Errorf("%w: owner %q already exists", ErrConflict, in.Username)
		} else if !errors.Is(errFind, store.ErrNotFound) {
			return errFind
		}
		owner = &models.Owner{Username: in.Username}
		return tx.CreateOwner(ctx, owner)
	})
	if errTx != nil {
		return nil, errTx
	}
	s.logger.WithField("owner", owner.Username).Info("owner registered")
	return owner, nil
}

// CreateProject persists a project under the owner and issues its secret.
// The plaintext secret is returned once and never stored.
func (s *Service) CreateProject(ctx context.Context, ownerName string, in ProjectInput) (*models.Project, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if errCheck := s.check("project", &in); errCheck != nil {
		return nil, "", errCheck
	}

	secret, hashed, errIssue := s.secrets.IssueHashed()
	if errIssue != nil {
		return nil, "", errIssue
	}

	var project *models.Project
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		owner, errOwner := res.ResolveOwner(ctx, ownerName)
		if errOwner != nil {
			return notFound(errOwner, "owner %q", ownerName)
		}
		project = &models.Project{
			OwnerID:     owner.ID,
			Name:        in.Name,
			Description: in.Description,
			SecretHash:  hashed,
		}
		return tx.SaveProject(ctx, project)
	})
	if errTx != nil {
		return nil, "", errTx
	}
	s.logger.WithFields(log.Fields{"project_id": project.ID, "owner": ownerName}).Info("project created")
	return project, secret, nil
}

// UpdateProject applies a partial update to a project's name and description.
func (s *Service) UpdateProject(ctx context.Context, ownerName string, projectID uint64, in ProjectUpdate) (*models.Project, error) {
	var project *models.Project
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		found, errResolve := s.resolveOwnedProject(ctx, res, ownerName, projectID)
		if errResolve != nil {
			return errResolve
		}
		merged := ProjectInput{Name: found.Name, Description: found.Description}
		if in.Name != nil {
			merged.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			merged.Description = *in.Description
		}
		if errCheck := s.check("project", &merged); errCheck != nil {
			return errCheck
		}
		found.Name = merged.Name
		found.Description = merged.Description
		project = found
		return tx.SaveProject(ctx, found)
	})
	if errTx != nil {
		return nil, errTx
	}
	return project, nil
}

// ResetProjectSecret issues a new secret, overwriting the stored hash. The
// previous secret stops verifying as soon as the transaction commits.
func (s *Service) ResetProjectSecret(ctx context.Context, ownerName string, projectID uint64) (string, error) {
	secret, hashed, errIssue := s.secrets.IssueHashed()
	if errIssue != nil {
		return "", errIssue
	}
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		project, errResolve := s.resolveOwnedProject(ctx, res, ownerName, projectID)
		if errResolve != nil {
			return errResolve
		}
		project.SecretHash = hashed
		return tx.SaveProject(ctx, project)
	})
	if errTx != nil {
		return "", errTx
	}
	s.logger.WithField("project_id", projectID).Info("project secret reset")
	return secret, nil
}

// DeleteProject removes a project with all of its beacons and beacon groups.
func (s *Service) DeleteProject(ctx context.Context, ownerName string, projectID uint64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	var beacons, groups int64
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := s.resolveOwnedProject(ctx, res, ownerName, projectID); errResolve != nil {
			return errResolve
		}
		var errDelete error
		// Beacons go first: they reference both the project and its groups.
		if beacons, errDelete = tx.DeleteBeaconsOfProject(ctx, projectID); errDelete != nil {
			return errDelete
		}
		if groups, errDelete = tx.DeleteGroupsOfProject(ctx, projectID); errDelete != nil {
			return errDelete
		}
		if errDelete = tx.DeleteProject(ctx, projectID); errDelete != nil {
			return notFound(errDelete, "project %d", projectID)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.logger.WithFields(log.Fields{
		"project_id": projectID,
		"beacons":    beacons,
		"groups":     groups,
	}).Info("project deleted")
	return nil
}

// CreateGroup persists a beacon group in the project.
func (s *Service) CreateGroup(ctx context.Context, projectID uint64, in GroupInput) (*models.BeaconGroup, error) {
	in.Name = strings.TrimSpace(in.Name)
	if errCheck := s.check("beacon group", &in); errCheck != nil {
		return nil, errCheck
	}
	var group *models.BeaconGroup
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := res.ResolveProject(ctx, projectID); errResolve != nil {
			return notFound(errResolve, "project %d", projectID)
		}
		group = &models.BeaconGroup{ProjectID: projectID, Name: in.Name, Description: in.Description}
		return tx.SaveGroup(ctx, group)
	})
	if errTx != nil {
		return nil, errTx
	}
	return group, nil
}

// UpdateGroup applies a partial update to a beacon group's name and description.
func (s *Service) UpdateGroup(ctx context.Context, projectID, groupID uint64, in GroupUpdate) (*models.BeaconGroup, error) {
	var group *models.BeaconGroup
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		found, errResolve := s.resolveGroup(ctx, res, projectID, groupID)
		if errResolve != nil {
			return errResolve
		}
		merged := GroupInput{Name: found.Name, Description: found.Description}
		if in.Name != nil {
			merged.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			merged.Description = *in.Description
		}
		if errCheck := s.check("beacon group", &merged); errCheck != nil {
			return errCheck
		}
		found.Name = merged.Name
		found.Description = merged.Description
		group = found
		return tx.SaveGroup(ctx, found)
	})
	if errTx != nil {
		return nil, errTx
	}
	return group, nil
}

// DeleteGroup detaches every member beacon and then removes the group.
func (s *Service) DeleteGroup(ctx context.Context, projectID, groupID uint64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	var detached int64
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := s.resolveGroup(ctx, res, projectID, groupID); errResolve != nil {
			return errResolve
		}
		var errDetach error
		if detached, errDetach = tx.DetachGroupMembers(ctx, groupID); errDetach != nil {
			return errDetach
		}
		if errDelete := tx.DeleteGroup(ctx, groupID); errDelete != nil {
			return notFound(errDelete, "beacon group %d", groupID)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.logger.WithFields(log.Fields{
		"project_id": projectID,
		"group_id":   groupID,
		"detached":   detached,
	}).Info("beacon group deleted")
	return nil
}

// AddBeaconToGroup links an ungrouped beacon to the group.
func (s *Service) AddBeaconToGroup(ctx context.Context, projectID, groupID, beaconID uint64) (*models.BeaconGroup, error) {
	var group *models.BeaconGroup
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		found, beacon, errResolve := s.resolveMembership(ctx, res, projectID, groupID, beaconID)
		if errResolve != nil {
			return errResolve
		}
		if beacon.BeaconGroupID != nil {
			return fmt.Errorf("%w: beacon %d already belongs to group %d", ErrConflict, beaconID, *beacon.BeaconGroupID)
		}
		beacon.BeaconGroupID = &found.ID
		group = found
		return tx.SaveBeacon(ctx, beacon)
	})
	if errTx != nil {
		return nil, errTx
	}
	return group, nil
}

// RemoveBeaconFromGroup clears the beacon's link to the group.
func (s *Service) RemoveBeaconFromGroup(ctx context.Context, projectID, groupID, beaconID uint64) (*models.BeaconGroup, error) {
	var group *models.BeaconGroup
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		found, beacon, errResolve := s.resolveMembership(ctx, res, projectID, groupID, beaconID)
		if errResolve != nil {
			return errResolve
		}
		if beacon.BeaconGroupID == nil {
			return fmt.Errorf("%w: beacon %d is not in a group", ErrBadRequest, beaconID)
		}
		if *beacon.BeaconGroupID != found.ID {
			return fmt.Errorf("%w: beacon %d is not in group %d", ErrBadRequest, beaconID, groupID)
		}
		beacon.BeaconGroupID = nil
		group = found
		return tx.SaveBeacon(ctx, beacon)
	})
	if errTx != nil {
		return nil, errTx
	}
	return group, nil
}

// CreateBeacon registers a beacon in the project. UUID, major and minor are
// stored uppercase and must not already be registered in the project.
func (s *Service) CreateBeacon(ctx context.Context, projectID uint64, in BeaconInput) (*models.Beacon, error) {
	in.normalize()
	if errCheck := s.check("beacon", &in); errCheck != nil {
		return nil, errCheck
	}
	var beacon *models.Beacon
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := res.ResolveProject(ctx, projectID); errResolve != nil {
			return notFound(errResolve, "project %d", projectID)
		}
		if errDup := ensureUniqueFingerprint(ctx, tx, projectID, 0, in.UUID, in.Major, in.Minor); errDup != nil {
			return errDup
		}
		beacon = &models.Beacon{
			ProjectID:   projectID,
			UUID:        in.UUID,
			Major:       in.Major,
			Minor:       in.Minor,
			Description: in.Description,
		}
		return tx.SaveBeacon(ctx, beacon)
	})
	if errTx != nil {
		return nil, errTx
	}
	return beacon, nil
}

// UpdateBeacon applies a partial update to a beacon's fingerprint and description.
func (s *Service) UpdateBeacon(ctx context.Context, projectID, beaconID uint64, in BeaconUpdate) (*models.Beacon, error) {
	var beacon *models.Beacon
	errTx := s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		found, errResolve := s.resolveBeacon(ctx, res, projectID, beaconID)
		if errResolve != nil {
			return errResolve
		}
		merged := BeaconInput{UUID: found.UUID, Major: found.Major, Minor: found.Minor, Description: found.Description}
		if in.UUID != nil {
			merged.UUID = *in.UUID
		}
		if in.Major != nil {
			merged.Major = *in.Major
		}
		if in.Minor != nil {
			merged.Minor = *in.Minor
		}
		if in.Description != nil {
			merged.Description = *in.Description
		}
		merged.normalize()
		if errCheck := s.check("beacon", &merged); errCheck != nil {
			return errCheck
		}
		if errDup := ensureUniqueFingerprint(ctx, tx, projectID, beaconID, merged.UUID, merged.Major, merged.Minor); errDup != nil {
			return errDup
		}
		found.UUID = merged.UUID
		found.Major = merged.Major
		found.Minor = merged.Minor
		found.Description = merged.Description
		beacon = found
		return tx.SaveBeacon(ctx, found)
	})
	if errTx != nil {
		return nil, errTx
	}
	return beacon, nil
}

// DeleteBeacon removes a beacon from its project.
func (s *Service) DeleteBeacon(ctx context.Context, projectID, beaconID uint64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	return s.within(ctx, func(tx *store.Store, res *ownership.Resolver) error {
		if _, errResolve := s.resolveBeacon(ctx, res, projectID, beaconID); errResolve != nil {
			return errResolve
		}
		if errDelete := tx.DeleteBeacon(ctx, beaconID); errDelete != nil {
			return notFound(errDelete, "beacon %d", beaconID)
		}
		return nil
	})
}

func ensureUniqueFingerprint(ctx context.Context, tx *store.Store, projectID, excludeID uint64, uuid, major, minor string) error {
	existing, errList := tx.ListBeacons(ctx, store.BeaconFilter{
		ProjectID: projectID,
		UUID:      uuid,
		Major:     major,
		Minor:     minor,
		ExcludeID: excludeID,
	})
	if errList != nil {
		return errList
	}
	if len(existing) > 0 {
		return &DuplicateError{ProjectID: projectID, UUID: uuid, Major: major, Minor: minor}
	}
	return nil
}

func (s *Service) resolveOwnedProject(ctx context.Context, res *ownership.Resolver, ownerName string, projectID uint64) (*models.Project, error) {
	owner, errOwner := res.ResolveOwner(ctx, ownerName)
	if errOwner != nil {
		return nil, notFound(errOwner, "owner %q", ownerName)
	}
	project, errProject := res.ResolveOwnedProject(ctx, owner.ID, projectID)
	if errProject != nil {
		return nil, notFound(errProject, "project %d", projectID)
	}
	return project, nil
}

func (s *Service) resolveGroup(ctx context.Context, res *ownership.Resolver, projectID, groupID uint64) (*models.BeaconGroup, error) {
	if _, errProject := res.ResolveProject(ctx, projectID); errProject != nil {
		return nil, notFound(errProject, "project %d", projectID)
	}
	group, errGroup := res.ResolveGroup(ctx, projectID, groupID)
	if errGroup != nil {
		return nil, notFound(errGroup, "beacon group %d", groupID)
	}
	return group, nil
}

func (s *Service) resolveBeacon(ctx context.Context, res *ownership.Resolver, projectID, beaconID uint64) (*models.Beacon, error) {
	if _, errProject := res.ResolveProject(ctx, projectID); errProject != nil {
		return nil, notFound(errProject, "project %d", projectID)
	}
	beacon, errBeacon := res.ResolveBeacon(ctx, projectID, beaconID)
	if errBeacon != nil {
		return nil, notFound(errBeacon, "beacon %d", beaconID)
	}
	return beacon, nil
}

func (s *Service) resolveMembership(ctx context.Context, res *ownership.Resolver, projectID, groupID, beaconID uint64) (*models.BeaconGroup, *models.Beacon, error) {
	group, errGroup := s.resolveGroup(ctx, res, projectID, groupID)
	if errGroup != nil {
		return nil, nil, errGroup
	}
	beacon, errBeacon := res.ResolveBeacon(ctx, projectID, beaconID)
	if errBeacon != nil {
		return nil, nil, notFound(errBeacon, "beacon %d", beaconID)
	}
	return group, beacon, nil
}

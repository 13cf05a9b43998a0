// Package ownership resolves projects, groups and beacons through their
// containing project so that one tenant's rows are never addressable
// through another tenant's path.
package ownership

import (
	"context"
	"errors"

	"github.com/beaconhub/beacon-registry/internal/models"
	"github.com/beaconhub/beacon-registry/internal/store"
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned for missing rows and for rows that exist outside
// the requested scope. Callers cannot tell the two apart.
var ErrNotFound = errors.New("ownership: not found")

// Resolver checks containment before any read or mutation.
type Resolver struct {
	store  *store.Store
	logger log.FieldLogger
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(st *store.Store, logger log.FieldLogger) *Resolver {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Resolver{store: st, logger: logger.WithField("component", "ownership")}
}

// ResolveOwner loads an owner by username.
func (r *Resolver) ResolveOwner(ctx context.Context, username string) (*models.Owner, error) {
	owner, err := r.store.FindOwnerByUsername(ctx, username)
	if err != nil {
		return nil, r.notFound(err, log.Fields{"owner": username})
	}
	return owner, nil
}

// ResolveProject loads a project by ID regardless of owner.
func (r *Resolver) ResolveProject(ctx context.Context, projectID uint64) (*models.Project, error) {
	project, err := r.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, r.notFound(err, log.Fields{"project_id": projectID})
	}
	return project, nil
}

// ResolveOwnedProject loads a project and requires it to belong to ownerID.
func (r *Resolver) ResolveOwnedProject(ctx context.Context, ownerID, projectID uint64) (*models.Project, error) {
	project, err := r.ResolveProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != ownerID {
		r.logger.WithFields(log.Fields{"project_id": projectID, "owner_id": ownerID}).Debug("project belongs to another owner")
		return nil, ErrNotFound
	}
	return project, nil
}

// ResolveGroup loads a beacon group and requires it to belong to projectID.
func (r *Resolver) ResolveGroup(ctx context.Context, projectID, groupID uint64) (*models.BeaconGroup, error) {
	group, err := r.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, r.notFound(err, log.Fields{"project_id": projectID, "group_id": groupID})
	}
	if group.ProjectID != projectID {
		r.logger.WithFields(log.Fields{"project_id": projectID, "group_id": groupID}).Debug("group belongs to another project")
		return nil, ErrNotFound
	}
	return group, nil
}

// ResolveBeacon loads a beacon and requires it to belong to projectID.
func (r *Resolver) ResolveBeacon(ctx context.Context, projectID, beaconID uint64) (*models.Beacon, error) {
	beacon, err := r.store.FindBeacon(ctx, beaconID)
	if err != nil {
		return nil, r.notFound(err, log.Fields{"project_id": projectID, "beacon_id": beaconID})
	}
	if beacon.ProjectID != projectID {
		r.logger.WithFields(log.Fields{"project_id": projectID, "beacon_id": beaconID}).Debug("beacon belongs to another project")
		return nil, ErrNotFound
	}
	return beacon, nil
}

func (r *Resolver) notFound(err error, fields log.Fields) error {
	if errors.Is(err, store.ErrNotFound) {
		r.logger.WithFields(fields).Debug("not found")
		return ErrNotFound
	}
	return err
}

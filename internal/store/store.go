// Package store persists owners, projects, beacon groups and beacons via GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beaconhub/beacon-registry/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a keyed lookup or delete matches no row.
var ErrNotFound = errors.New("store: record not found")

// Store is the GORM-backed entity store. A Store bound to a transaction
// (see Transaction) runs every call inside that transaction.
type Store struct {
	db     *gorm.DB
	logger log.FieldLogger
	nowFn  func() time.Time
}

// New constructs a Store. A nil logger falls back to the standard logger.
func New(db *gorm.DB, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{
		db:     db,
		logger: logger.WithField("component", "store"),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Transaction runs fn with a Store bound to a single database transaction.
// Returning an error from fn rolls every mutation back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store: not initialized")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger, nowFn: s.nowFn})
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: sql handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateOwner inserts a new owner.
func (s *Store) CreateOwner(ctx context.Context, owner *models.Owner) error {
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = s.nowFn()
	}
	if errCreate := s.db.WithContext(ctx).Omit(clause.Associations).Create(owner).Error; errCreate != nil {
		return fmt.Errorf("store: create owner: %w", errCreate)
	}
	s.logger.WithField("owner_id", owner.ID).Debug("owner created")
	return nil
}

// FindOwnerByUsername loads an owner by its username.
func (s *Store) FindOwnerByUsername(ctx context.Context, username string) (*models.Owner, error) {
	var owner models.Owner
	if errFind := s.db.WithContext(ctx).Where("username = ?", username).First(&owner).Error; errFind != nil {
		return nil, translate(errFind)
	}
	return &owner, nil
}

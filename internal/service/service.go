// Package service implements the project, beacon group and beacon lifecycle
// and the lookup queries on top of the entity store.
//
// Every exported operation runs inside one store transaction: either all of
// its mutations commit or none do.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/beaconhub/beacon-registry/internal/ownership"
	"github.com/beaconhub/beacon-registry/internal/security"
	"github.com/beaconhub/beacon-registry/internal/store"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// Service is the lifecycle and query API used by the HTTP layer.
type Service struct {
	store    *store.Store
	secrets  *security.SecretManager
	validate *validator.Validate
	logger   log.FieldLogger
}

// New constructs a Service. A nil logger falls back to the standard logger.
func New(st *store.Store, secrets *security.SecretManager, logger log.FieldLogger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		store:    st,
		secrets:  secrets,
		validate: newValidator(),
		logger:   logger.WithField("component", "service"),
	}
}

// Ping checks that the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// within runs fn in a transaction with a resolver bound to it.
func (s *Service) within(ctx context.Context, fn func(tx *store.Store, res *ownership.Resolver) error) error {
	return s.store.Transaction(ctx, func(tx *store.Store) error {
		return fn(tx, ownership.NewResolver(tx, s.logger))
	})
}

// notFound maps resolver and store misses onto ErrNotFound.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, ownership.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

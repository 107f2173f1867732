package service

import (
	"context"
	"errors"

	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrPrincipalNotFound = errors.New("principal not found")

type PrincipalResolver interface {
	Resolve(ctx context.Context, id uuid.UUID, role entity.Role) (entity.Principal, error)
	Store(role entity.Role) (repository.AccountRepository, bool)
	Stores() []repository.AccountRepository
}

type principalResolver struct {
	log    *logrus.Logger
	order  []entity.Role
	stores map[entity.Role]repository.AccountRepository
}

// NewPrincipalResolver registers one store per role. A later store for the same
// role replaces the earlier one.
func NewPrincipalResolver(log *logrus.Logger, stores ...repository.AccountRepository) PrincipalResolver {
	r := &principalResolver{
		log:    log,
		stores: make(map[entity.Role]repository.AccountRepository, len(stores)),
	}
	for _, store := range stores {
		if _, seen := r.stores[store.Role()]; !seen {
			r.order = append(r.order, store.Role())
		}
		r.stores[store.Role()] = store
	}
	return r
}

// Resolve loads the principal from the store selected by role. Unknown roles
// and missing records both yield ErrPrincipalNotFound. The returned principal
// never carries its password hash.
func (r *principalResolver) Resolve(ctx context.Context, id uuid.UUID, role entity.Role) (entity.Principal, error) {
	store, ok := r.Store(role)
	if !ok {
		return nil, ErrPrincipalNotFound
	}

	principal, err := store.FindByID(ctx, id)
	if err != nil {
		r.log.Warnf("Failed to resolve %s %s: %+v", role, id, err)
		return nil, err
	}
	if principal == nil {
		return nil, ErrPrincipalNotFound
	}

	principal.Identity().PasswordHash = ""
	return principal, nil
}

func (r *principalResolver) Store(role entity.Role) (repository.AccountRepository, bool) {
	if !role.Valid() {
		return nil, false
	}
	store, ok := r.stores[role]
	return store, ok
}

// Stores returns the registered stores in registration order.
func (r *principalResolver) Stores() []repository.AccountRepository {
	stores := make([]repository.AccountRepository, 0, len(r.order))
	for _, role := range r.order {
		stores = append(stores, r.stores[role])
	}
	return stores
}

package repository

import (
	"sort"
	"sync"

	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/authority"
)

type authorityRepo struct {
	mu    sync.RWMutex
	roles map[authority.Role]map[domain.Address]struct{}
}

// New returns a role store seeded with the given admins. Admins bootstrap
// the system; further membership changes go through the usecase.
func New(admins []domain.Address) authority.Repo {
	roles := map[authority.Role]map[domain.Address]struct{}{
		authority.RoleAdmin:      {},
		authority.RoleMaintainer: {},
	}
	for _, admin := range admins {
		roles[authority.RoleAdmin][admin.ToLower()] = struct{}{}
	}
	return &authorityRepo{roles: roles}
}

func (r *authorityRepo) Has(c ctx.Ctx, role authority.Role, address domain.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.roles[role]
	if !ok {
		return false, domain.ErrBadParamInput
	}
	_, has := set[address.ToLower()]
	return has, nil
}

func (r *authorityRepo) Add(c ctx.Ctx, role authority.Role, address domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.roles[role]
	if !ok {
		return domain.ErrBadParamInput
	}
	set[address.ToLower()] = struct{}{}
	return nil
}

func (r *authorityRepo) Remove(c ctx.Ctx, role authority.Role, address domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.roles[role]
	if !ok {
		return domain.ErrBadParamInput
	}
	delete(set, address.ToLower())
	return nil
}

func (r *authorityRepo) List(c ctx.Ctx, role authority.Role) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.roles[role]
	if !ok {
		return nil, domain.ErrBadParamInput
	}
	res := make([]domain.Address, 0, len(set))
	for address := range set {
		res = append(res, address)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res, nil
}

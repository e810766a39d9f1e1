package authority

import (
	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
)

// Role is an administrative capability level
type Role string

const (
	// RoleAdmin may update both admin and maintainer lists
	RoleAdmin Role = "admin"
	// RoleMaintainer may update the maintainer list and platform settings
	RoleMaintainer Role = "maintainer"
)

// UpdateKind tags a role list mutation
type UpdateKind string

const (
	UpdateKindAdd    UpdateKind = "add"
	UpdateKindRemove UpdateKind = "remove"
)

// UpdateParams describes one role list mutation
type UpdateParams struct {
	Role    Role           `json:"role" validate:"required,oneof=admin maintainer"`
	Kind    UpdateKind     `json:"kind" validate:"required,oneof=add remove"`
	Address domain.Address `json:"address" validate:"required"`
}

// Repo stores the role sets
type Repo interface {
	Has(c ctx.Ctx, role Role, address domain.Address) (bool, error)
	Add(c ctx.Ctx, role Role, address domain.Address) error
	Remove(c ctx.Ctx, role Role, address domain.Address) error
	List(c ctx.Ctx, role Role) ([]domain.Address, error)
}

// UseCase is the capability check shared by every admin-only entrypoint.
// Admin rights imply maintainer rights.
type UseCase interface {
	// RequireMaintainer fails with domain.ErrUnauthorized unless the caller
	// holds maintainer or admin rights
	RequireMaintainer(c ctx.Ctx, caller domain.Address) error
	// RequireAdmin fails with domain.ErrUnauthorized unless the caller holds
	// admin rights
	RequireAdmin(c ctx.Ctx, caller domain.Address) error
	Update(c ctx.Ctx, caller domain.Address, params UpdateParams) error
	List(c ctx.Ctx, role Role) ([]domain.Address, error)
}

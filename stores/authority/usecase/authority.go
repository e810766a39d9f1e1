package usecase

import (
	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/authority"
)

type AuthorityUseCaseCfg struct {
	Repo authority.Repo
}

type impl struct {
	repo authority.Repo
}

func New(cfg *AuthorityUseCaseCfg) authority.UseCase {
	return &impl{repo: cfg.Repo}
}

func (im *impl) RequireMaintainer(c bCtx.Ctx, caller domain.Address) error {
	if has, err := im.repo.Has(c, authority.RoleMaintainer, caller); err != nil {
		return err
	} else if has {
		return nil
	}
	// admin rights imply maintainer rights
	return im.RequireAdmin(c, caller)
}

func (im *impl) RequireAdmin(c bCtx.Ctx, caller domain.Address) error {
	has, err := im.repo.Has(c, authority.RoleAdmin, caller)
	if err != nil {
		return err
	}
	if !has {
		return domain.ErrUnauthorized
	}
	return nil
}

func (im *impl) Update(c bCtx.Ctx, caller domain.Address, params authority.UpdateParams) error {
	// changing the admin list takes admin rights; the maintainer list is
	// open to maintainers as well
	switch params.Role {
	case authority.RoleAdmin:
		if err := im.RequireAdmin(c, caller); err != nil {
			return err
		}
	case authority.RoleMaintainer:
		if err := im.RequireMaintainer(c, caller); err != nil {
			return err
		}
	default:
		return domain.ErrBadParamInput
	}

	if !params.Address.IsValid() {
		return domain.ErrInvalidAddress
	}

	switch params.Kind {
	case authority.UpdateKindAdd:
		return im.repo.Add(c, params.Role, params.Address)
	case authority.UpdateKindRemove:
		return im.repo.Remove(c, params.Role, params.Address)
	default:
		return domain.ErrBadParamInput
	}
}

func (im *impl) List(c bCtx.Ctx, role authority.Role) ([]domain.Address, error) {
	return im.repo.List(c, role)
}

package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/delivery"
	"github.com/lotmarket/goauction/domain"
	dAuthority "github.com/lotmarket/goauction/domain/authority"
)

type handler struct {
	authority dAuthority.UseCase
}

func New(e *echo.Echo, _authority dAuthority.UseCase) {
	h := &handler{_authority}
	e.GET("/admin/authorities/:role", h.list)
	e.POST("/admin/authorities", h.update)
}

func (h *handler) list(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	role := dAuthority.Role(_ctx.Param("role"))

	res, err := h.authority.List(ctx, role)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, res)
}

func (h *handler) update(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	type params struct {
		Caller  domain.Address        `json:"caller" validate:"required"`
		Role    dAuthority.Role       `json:"role" validate:"required"`
		Kind    dAuthority.UpdateKind `json:"kind" validate:"required"`
		Address domain.Address        `json:"address" validate:"required"`
	}

	p := &params{}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}
	if err := _ctx.Validate(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}

	err := h.authority.Update(ctx, p.Caller, dAuthority.UpdateParams{
		Role:    p.Role,
		Kind:    p.Kind,
		Address: p.Address,
	})
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, "ok")
}

package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/delivery"
	"github.com/lotmarket/goauction/domain"
	dAuction "github.com/lotmarket/goauction/domain/auction"
	"github.com/lotmarket/goauction/service/cache"
	"github.com/lotmarket/goauction/service/cache/provider/primitive"
)

type handler struct {
	auction dAuction.UseCase
	events  dAuction.EventRepo
	cache   cache.Service
}

func New(e *echo.Echo, _auction dAuction.UseCase, _events dAuction.EventRepo) {
	h := &handler{
		auction: _auction,
		events:  _events,
		cache: cache.New(cache.ServiceConfig{
			Ttl:   15 * time.Second,
			Pfx:   "auctionEvents",
			Cache: primitive.NewPrimitive("auctionEvents", 16),
		}),
	}
	e.POST("/auctions", h.create)
	e.GET("/auctions/:contract/:tokenId", h.view)
	e.POST("/auctions/:contract/:tokenId/bids", h.bid)
	e.POST("/auctions/:contract/:tokenId/finalize", h.finalize)
	e.POST("/auctions/:contract/:tokenId/cancel", h.cancel)
	e.POST("/auctions/:contract/:tokenId/recover", h.recover)
	e.GET("/auctions/:contract/:tokenId/events", h.listEvents)
	e.GET("/accounts/:account/auction-events", h.listAccountEvents)
	e.GET("/admin/settings", h.viewSettings)
	e.PATCH("/admin/settings", h.updateSettings)
}

func tokenRefFromPath(_ctx echo.Context) (dAuction.TokenRef, error) {
	contract := domain.Address(_ctx.Param("contract"))
	if !contract.IsValid() {
		return dAuction.TokenRef{}, domain.ErrInvalidAddress
	}
	id := domain.TokenId(_ctx.Param("tokenId"))
	if _, err := id.Bytes(); err != nil {
		return dAuction.TokenRef{}, domain.ErrInvalidTokenId
	}
	return dAuction.TokenRef{Contract: contract.ToLower(), Id: id}, nil
}

// create is the token-receive hook. The token contract reports a transfer
// into engine custody; data carries the serialized lot policy.
func (h *handler) create(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	type params struct {
		Contract domain.Address `json:"contract" validate:"required"`
		From     domain.Address `json:"from" validate:"required"`
		TokenId  domain.TokenId `json:"tokenId" validate:"required"`
		Amount   uint64         `json:"amount"`
		Data     string         `json:"data" validate:"required"`
	}

	p := &params{}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}
	if err := _ctx.Validate(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}

	data, err := hexutil.Decode(p.Data)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid data")
	}

	err = h.auction.CreateAuction(ctx, dAuction.CreateParams{
		Sender: p.Contract,
		From:   p.From,
		Id:     p.TokenId,
		Amount: p.Amount,
		Data:   data,
	})
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusCreated, "ok")
}

func (h *handler) view(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	token, err := tokenRefFromPath(_ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}
	caller := domain.Address(_ctx.QueryParam("caller"))

	res, err := h.auction.View(ctx, token, caller)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, res)
}

func (h *handler) bid(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	token, err := tokenRefFromPath(_ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}
	type params struct {
		Bidder domain.Address `json:"bidder" validate:"required"`
		Amount domain.Amount  `json:"amount" validate:"required"`
	}

	p := &params{}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}
	if err := _ctx.Validate(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}

	if err := h.auction.PlaceBid(ctx, token, p.Bidder, p.Amount); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, "ok")
}

func (h *handler) finalize(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	token, err := tokenRefFromPath(_ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}

	if err := h.auction.Finalize(ctx, token); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, "ok")
}

func (h *handler) cancel(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	token, err := tokenRefFromPath(_ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}
	type params struct {
		Caller domain.Address `json:"caller" validate:"required"`
	}

	p := &params{}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}

	if err := h.auction.Cancel(ctx, token, p.Caller); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, "ok")
}

func (h *handler) recover(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	token, err := tokenRefFromPath(_ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}
	type params struct {
		Caller domain.Address `json:"caller" validate:"required"`
	}

	p := &params{}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}

	if err := h.auction.Recover(ctx, token, p.Caller); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, "ok")
}

func (h *handler) viewSettings(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	res, err := h.auction.ViewInternalValue(ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, res)
}

func (h *handler) updateSettings(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	type params struct {
		Caller         domain.Address     `json:"caller" validate:"required"`
		FeePercentage  *domain.Percentage `json:"feePercentage"`
		FeeBeneficiary *domain.Address    `json:"feeBeneficiary"`
	}

	p := &params{}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}
	if err := _ctx.Validate(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}

	err := h.auction.UpdateInternalValue(ctx, p.Caller, dAuction.InternalValue{
		FeePercentage:  p.FeePercentage,
		FeeBeneficiary: p.FeeBeneficiary,
	})
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, "ok")
}

type eventsPage struct {
	Items []dAuction.EventRecord `json:"items"`
	Count int                    `json:"count"`
}

func (h *handler) listEvents(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	token, err := tokenRefFromPath(_ctx)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, err)
	}
	type params struct {
		Offset int    `query:"offset"`
		Limit  int    `query:"limit"`
		Type   string `query:"type"`
	}

	p := &params{Limit: 50}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}

	opts := []dAuction.FindEventsOptions{
		dAuction.EventsWithToken(token),
		dAuction.EventsWithPagination(p.Offset, p.Limit),
	}
	if p.Type != "" {
		opts = append(opts, dAuction.EventsWithTypes(dAuction.EventType(p.Type)))
	}

	key := fmt.Sprintf("%s:%d:%d:%s", token.Key(), p.Offset, p.Limit, p.Type)
	res := &eventsPage{}
	err = h.cache.GetByFunc(ctx, key, res, func() (interface{}, error) {
		items, err := h.events.FindAll(ctx, opts...)
		if err != nil {
			return nil, err
		}
		count, err := h.events.Count(ctx, dAuction.EventsWithToken(token))
		if err != nil {
			return nil, err
		}
		return &eventsPage{Items: items, Count: count}, nil
	})
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, res)
}

func (h *handler) listAccountEvents(_ctx echo.Context) error {
	ctx := _ctx.Get("ctx").(bCtx.Ctx)
	account := domain.Address(_ctx.Param("account"))
	type params struct {
		Offset int `query:"offset"`
		Limit  int `query:"limit"`
	}

	p := &params{Limit: 50}
	if err := _ctx.Bind(p); err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusBadRequest, "invalid params")
	}

	opts := []dAuction.FindEventsOptions{
		dAuction.EventsWithAccount(account),
		dAuction.EventsWithPagination(p.Offset, p.Limit),
	}

	items, err := h.events.FindAll(ctx, opts...)
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	count, err := h.events.Count(ctx, dAuction.EventsWithAccount(account))
	if err != nil {
		return delivery.MakeJsonResp(_ctx, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(_ctx, http.StatusOK, eventsPage{Items: items, Count: count})
}

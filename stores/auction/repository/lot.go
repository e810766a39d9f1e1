package repository

import (
	"sync"

	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/auction"
)

// tokenState holds either a live lot or a grave for one token key
type tokenState struct {
	lot   *auction.Lot
	grave *auction.Grave
}

type lotRepo struct {
	mu     sync.RWMutex
	tokens map[string]tokenState
}

// NewLotRepo returns the in-process keyed lot store. The engine is the only
// writer; each call mutates it as one atomic unit under the engine lock.
func NewLotRepo() auction.LotRepo {
	return &lotRepo{tokens: map[string]tokenState{}}
}

func (r *lotRepo) FindLot(c bCtx.Ctx, token auction.TokenRef) (*auction.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.tokens[token.Key()]
	if !ok || state.lot == nil {
		return nil, domain.ErrUnknownToken
	}
	cp := *state.lot
	if state.lot.CurrentBid != nil {
		bid := *state.lot.CurrentBid
		cp.CurrentBid = &bid
	}
	return &cp, nil
}

func (r *lotRepo) FindGrave(c bCtx.Ctx, token auction.TokenRef) (*auction.Grave, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.tokens[token.Key()]
	if !ok || state.grave == nil {
		return nil, domain.ErrUnknownToken
	}
	cp := *state.grave
	return &cp, nil
}

func (r *lotRepo) CreateLot(c bCtx.Ctx, lot *auction.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lot.Token.Key()
	if state, ok := r.tokens[key]; ok && state.lot != nil {
		return domain.ErrTokenAlreadyListed
	}
	// graves are overwritten: the previous occupant already reclaimed the
	// key by transferring the token back in
	cp := *lot
	r.tokens[key] = tokenState{lot: &cp}
	return nil
}

func (r *lotRepo) UpdateLot(c bCtx.Ctx, lot *auction.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lot.Token.Key()
	state, ok := r.tokens[key]
	if !ok || state.lot == nil {
		return domain.ErrUnknownToken
	}
	cp := *lot
	r.tokens[key] = tokenState{lot: &cp}
	return nil
}

func (r *lotRepo) RemoveLot(c bCtx.Ctx, token auction.TokenRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := token.Key()
	state, ok := r.tokens[key]
	if !ok || state.lot == nil {
		return domain.ErrUnknownToken
	}
	delete(r.tokens, key)
	return nil
}

func (r *lotRepo) Bury(c bCtx.Ctx, grave *auction.Grave) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *grave
	r.tokens[grave.Token.Key()] = tokenState{grave: &cp}
	return nil
}

func (r *lotRepo) RemoveGrave(c bCtx.Ctx, token auction.TokenRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := token.Key()
	state, ok := r.tokens[key]
	if !ok || state.grave == nil {
		return domain.ErrUnknownToken
	}
	delete(r.tokens, key)
	return nil
}

func (r *lotRepo) EscrowTotal(c bCtx.Ctx) (domain.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := domain.Amount(0)
	for _, state := range r.tokens {
		if state.lot != nil && state.lot.CurrentBid != nil {
			total = total.AddSat(state.lot.CurrentBid.Amount)
		}
	}
	return total, nil
}

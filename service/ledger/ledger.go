// Package ledger abstracts currency movement between the engine's escrow
// account and external accounts. Calls are synchronous: they succeed or fail
// in a way the engine can observe and handle.
package ledger

import (
	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
)

// Service moves currency in and out of engine escrow
type Service interface {
	// Collect takes the payment attached to an inbound call into escrow
	Collect(c ctx.Ctx, from domain.Address, amount domain.Amount) error
	// Payout moves escrowed currency to an account. Fails with
	// domain.ErrPaymentFailed when the account cannot receive it.
	Payout(c ctx.Ctx, to domain.Address, amount domain.Amount) error
	// EngineBalance is the currency currently held in escrow
	EngineBalance(c ctx.Ctx) (domain.Amount, error)
}

// Package token abstracts the external token contract: transfer custody of
// a token and query its royalty extension. Transfers report rejection as an
// explicit outcome instead of an error so settlement can branch on it
// synchronously without unwinding the enclosing call.
package token

import (
	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/auction"
)

// TransferResult is the two-outcome result of a token transfer. A rejection
// or failure of the external contract is data, not control flow.
type TransferResult struct {
	Delivered bool
	// Reason is set when the transfer was not delivered
	Reason error
}

// Delivered is the successful outcome
func Delivered() TransferResult {
	return TransferResult{Delivered: true}
}

// Rejected is the failed outcome with its cause
func Rejected(reason error) TransferResult {
	if reason == nil {
		reason = domain.ErrTransferRejected
	}
	return TransferResult{Reason: reason}
}

// Client talks to a token contract
type Client interface {
	// Transfer moves the token between holders. The engine address is a
	// valid holder while a lot or grave exists.
	Transfer(c ctx.Ctx, token auction.TokenRef, from, to domain.Address) TransferResult
	// GetRoyalties queries the royalty extension for beneficiary and
	// percentage pairs. Fails with domain.ErrRoyaltyLookupFailed when the
	// contract lacks the extension.
	GetRoyalties(c ctx.Ctx, token auction.TokenRef) ([]auction.RoyaltyEntry, error)
}

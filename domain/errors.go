package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	// authorization and parameter errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrOnlyAccount        = errors.New("sender must be an account address")
	ErrContractOnly       = errors.New("sender must be a contract address")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidTokenId     = errors.New("invalid token id")
	ErrUnsupported        = errors.New("unsupported operation")
	ErrInvalidRoyalty     = errors.New("invalid royalty list")
	ErrTokenAlreadyListed = errors.New("token already listed for sale")

	// phase errors
	ErrUnknownToken       = errors.New("no auction exists for token")
	ErrAuctionNotStarted  = errors.New("auction not started")
	ErrAuctionFinished    = errors.New("auction already finished")
	ErrAuctionStillActive = errors.New("auction still active")

	// bid errors
	ErrBidTooLow      = errors.New("bid below minimum")
	ErrOwnerForbidden = errors.New("owner may not bid on own lot")

	// external call errors
	ErrTransferRejected    = errors.New("token contract rejected transfer")
	ErrRoyaltyLookupFailed = errors.New("royalty extension query failed")
	ErrPaymentFailed       = errors.New("currency transfer failed")

	// event log errors
	ErrEventTooLarge = errors.New("event exceeds log entry capacity")
)

package auction

import (
	"time"

	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
	"golang.org/x/xerrors"
)

// Log entry tags. Each serialized event starts with one of these bytes so
// mixed log streams stay unambiguous.
const (
	EventTagCreated   byte = 247
	EventTagBid       byte = 244
	EventTagFinalized byte = 243
	EventTagCanceled  byte = 242
	EventTagAborted   byte = 233
)

// MaxEventLen is the log entry capacity. ValidateLogCapacity at lot
// creation keeps every event a lot can later emit under this limit.
const MaxEventLen = 512

// EventType names an event kind in the history store
type EventType string

const (
	EventTypeCreated   EventType = "auctionCreated"
	EventTypeBid       EventType = "bidAccepted"
	EventTypeFinalized EventType = "finalized"
	EventTypeCanceled  EventType = "canceled"
	EventTypeAborted   EventType = "aborted"
)

// Event is one tagged log entry
type Event interface {
	Type() EventType
	// Encode renders the tagged binary log form
	Encode() ([]byte, error)
}

// CreatedEvent is logged when a token transfer opens a new lot
type CreatedEvent struct {
	Token  TokenRef
	Owner  domain.Address
	Policy LotPolicy
}

func (e *CreatedEvent) Type() EventType { return EventTypeCreated }

func (e *CreatedEvent) Encode() ([]byte, error) {
	b, err := encodeEventHeader(EventTagCreated, e.Token)
	if err != nil {
		return nil, err
	}
	b = append(b, e.Owner.Bytes()...)
	b = append(b, EncodePolicy(&e.Policy)...)
	return capEvent(b)
}

// BidEvent is logged for every accepted bid
type BidEvent struct {
	Token  TokenRef
	Bidder domain.Address
	Amount domain.Amount
}

func (e *BidEvent) Type() EventType { return EventTypeBid }

func (e *BidEvent) Encode() ([]byte, error) {
	b, err := encodeEventHeader(EventTagBid, e.Token)
	if err != nil {
		return nil, err
	}
	b = append(b, e.Bidder.Bytes()...)
	b = appendU64(b, uint64(e.Amount))
	return capEvent(b)
}

// FinalizedEvent is logged on successful settlement and carries the full
// conserved split
type FinalizedEvent struct {
	Token       TokenRef
	Seller      domain.Address
	Winner      domain.Address
	Price       domain.Amount
	SellerShare domain.Amount
	Royalties   []RoyaltyShare
}

func (e *FinalizedEvent) Type() EventType { return EventTypeFinalized }

func (e *FinalizedEvent) Encode() ([]byte, error) {
	b, err := encodeEventHeader(EventTagFinalized, e.Token)
	if err != nil {
		return nil, err
	}
	b = append(b, e.Seller.Bytes()...)
	b = append(b, e.Winner.Bytes()...)
	b = appendU64(b, uint64(e.Price))
	b = appendU64(b, uint64(e.SellerShare))
	b = append(b, byte(len(e.Royalties)))
	for _, r := range e.Royalties {
		b = append(b, r.Beneficiary.Bytes()...)
		b = appendU64(b, uint64(r.Share))
	}
	return capEvent(b)
}

// CanceledEvent is logged when a lot ends with the token back at its owner
// and no sale
type CanceledEvent struct {
	Token TokenRef
	Owner domain.Address
}

func (e *CanceledEvent) Type() EventType { return EventTypeCanceled }

func (e *CanceledEvent) Encode() ([]byte, error) {
	b, err := encodeEventHeader(EventTagCanceled, e.Token)
	if err != nil {
		return nil, err
	}
	b = append(b, e.Owner.Bytes()...)
	return capEvent(b)
}

// AbortedEvent is logged when token delivery failed during settlement: the
// refunded amount and the intended recipients of token and refund
type AbortedEvent struct {
	Token  TokenRef
	Owner  domain.Address
	Bidder domain.Address
	Amount domain.Amount
}

func (e *AbortedEvent) Type() EventType { return EventTypeAborted }

func (e *AbortedEvent) Encode() ([]byte, error) {
	b, err := encodeEventHeader(EventTagAborted, e.Token)
	if err != nil {
		return nil, err
	}
	b = append(b, e.Owner.Bytes()...)
	b = append(b, e.Bidder.Bytes()...)
	b = appendU64(b, uint64(e.Amount))
	return capEvent(b)
}

func encodeEventHeader(tag byte, token TokenRef) ([]byte, error) {
	ref, err := EncodeTokenRef(token)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, 1+len(ref)+64)
	b = append(b, tag)
	b = append(b, ref...)
	return b, nil
}

// ValidateLogCapacity checks that the largest event a lot can ever emit,
// the finalize event with shareCount resolved shares, fits a log entry.
// Shares encode at a fixed width whether or not their payout succeeds, so
// the bound never moves after creation. Checked once, at listing time.
func ValidateLogCapacity(token TokenRef, shareCount int) error {
	id, err := token.Id.Bytes()
	if err != nil {
		return err
	}
	size := 1 + addressLen + 1 + len(id) + // tag and token reference
		2*addressLen + 8 + 8 + 1 + // seller, winner, price, residual, share count
		shareCount*(addressLen+8)
	if size > MaxEventLen {
		return xerrors.Errorf("%d bytes: %w", size, domain.ErrEventTooLarge)
	}
	return nil
}

func capEvent(b []byte) ([]byte, error) {
	if len(b) > MaxEventLen {
		return nil, xerrors.Errorf("%d bytes: %w", len(b), domain.ErrEventTooLarge)
	}
	return b, nil
}

// EventRecord is a persisted history entry: the raw tagged payload plus
// queryable columns
type EventRecord struct {
	Id       string         `json:"id" bson:"id"`
	Contract domain.Address `json:"contract" bson:"contract"`
	TokenId  domain.TokenId `json:"tokenId" bson:"tokenId"`
	Type     EventType      `json:"type" bson:"type"`
	Account  domain.Address `json:"account" bson:"account"`
	Amount   domain.Amount  `json:"amount" bson:"amount"`
	Payload  string         `json:"payload" bson:"payload"`
	Time     time.Time      `json:"time" bson:"time"`
}

type findEventsOptions struct {
	Offset   *int
	Limit    *int
	Contract *domain.Address
	TokenId  *domain.TokenId
	Types    []EventType
	Account  *domain.Address
}

// FindEventsOptions is a functional find filter
type FindEventsOptions func(*findEventsOptions) error

func GetFindEventsOptions(opts ...FindEventsOptions) (*findEventsOptions, error) {
	res := &findEventsOptions{}
	for _, opt := range opts {
		if err := opt(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func EventsWithPagination(offset, limit int) FindEventsOptions {
	return func(opts *findEventsOptions) error {
		opts.Offset = &offset
		opts.Limit = &limit
		return nil
	}
}

func EventsWithToken(token TokenRef) FindEventsOptions {
	return func(opts *findEventsOptions) error {
		contract := token.Contract.ToLower()
		opts.Contract = &contract
		opts.TokenId = &token.Id
		return nil
	}
}

func EventsWithTypes(types ...EventType) FindEventsOptions {
	return func(opts *findEventsOptions) error {
		opts.Types = types
		return nil
	}
}

func EventsWithAccount(account domain.Address) FindEventsOptions {
	return func(opts *findEventsOptions) error {
		lower := account.ToLower()
		opts.Account = &lower
		return nil
	}
}

// EventRepo persists the engine's own event history
type EventRepo interface {
	Insert(c ctx.Ctx, record *EventRecord) error
	FindAll(c ctx.Ctx, opts ...FindEventsOptions) ([]EventRecord, error)
	Count(c ctx.Ctx, opts ...FindEventsOptions) (int, error)
}

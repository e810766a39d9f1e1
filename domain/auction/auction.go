package auction

import (
	"time"

	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
)

// TokenRef identifies the auctioned asset
type TokenRef struct {
	Contract domain.Address `json:"contract" bson:"contract"`
	Id       domain.TokenId `json:"id" bson:"id"`
}

// Key is the lot store key for this token
func (t TokenRef) Key() string {
	return t.Contract.ToLowerStr() + ":" + t.Id.String()
}

// Bid is the single live bid of a lot. Superseded bids are refunded and
// discarded, never retained.
type Bid struct {
	Bidder     domain.Address `json:"bidder" bson:"bidder"`
	Amount     domain.Amount  `json:"amount" bson:"amount"`
	RecordedAt time.Time      `json:"recordedAt" bson:"recordedAt"`
}

// RoyaltyEntry is a fixed share of the final price owed to a beneficiary
// other than the seller. Fetched from the token's royalty extension at lot
// creation and fixed thereafter.
type RoyaltyEntry struct {
	Beneficiary domain.Address    `json:"beneficiary" bson:"beneficiary"`
	Percentage  domain.Percentage `json:"percentage" bson:"percentage"`
}

// RoyaltyShare is a resolved royalty payout for a given final price
type RoyaltyShare struct {
	Beneficiary domain.Address `json:"beneficiary" bson:"beneficiary"`
	Share       domain.Amount  `json:"share" bson:"share"`
}

// MaxRoyaltyEntries bounds the royalty list of a single lot
const MaxRoyaltyEntries = 10

// Phase is the stored lifecycle step of a lot
type Phase string

const (
	PhasePendingStart Phase = "pendingStart"
	PhaseActive       Phase = "active"
	PhaseFinalized    Phase = "finalized"
	PhaseCanceled     Phase = "canceled"
	PhaseAborted      Phase = "aborted"
	PhaseRecovered    Phase = "recovered"
)

// Lot is one token under auction together with its policy and current bid
type Lot struct {
	Token       TokenRef       `json:"token" bson:"token"`
	Owner       domain.Address `json:"owner" bson:"owner"`
	PlatformFee RoyaltyEntry   `json:"platformFee" bson:"platformFee"`
	Policy      LotPolicy      `json:"policy" bson:"policy"`
	Royalties   []RoyaltyEntry `json:"royalties" bson:"royalties"`
	CurrentBid  *Bid           `json:"currentBid,omitempty" bson:"currentBid,omitempty"`
	StartedAt   time.Time      `json:"startedAt" bson:"startedAt"`
}

// Grave marks a token stuck in engine custody after a failed delivery,
// pending owner recovery
type Grave struct {
	Token TokenRef       `json:"token" bson:"token"`
	Owner domain.Address `json:"owner" bson:"owner"`
}

// TimeState is the lot state derived from ledger time, never stored
type TimeState int

const (
	TimeStateNotStarted TimeState = iota
	TimeStateActive
	TimeStateCompleted
)

// StateAt derives the lot's time state from the given ledger time, the lot
// policy and the last bid. A met buyout completes the lot regardless of the
// deadline. No background process advances time; a lot past its deadline
// stays in storage until some caller finalizes it.
func (l *Lot) StateAt(now time.Time) TimeState {
	if now.Before(l.StartedAt) {
		return TimeStateNotStarted
	}
	if l.Policy.Buyout != nil && l.CurrentBid != nil && l.CurrentBid.Amount >= *l.Policy.Buyout {
		return TimeStateCompleted
	}
	if now.Before(l.Deadline()) {
		return TimeStateActive
	}
	return TimeStateCompleted
}

// Deadline computes the finalization deadline. Sliding timeouts are measured
// from the most recent bid, so every accepted bid extends the deadline.
func (l *Lot) Deadline() time.Time {
	switch l.Policy.Finalization.Kind {
	case FinalizeAfterDuration:
		return l.StartedAt.Add(l.Policy.Finalization.Duration)
	case FinalizeOnBidTimeout:
		from := l.StartedAt
		if l.CurrentBid != nil && l.CurrentBid.RecordedAt.After(from) {
			from = l.CurrentBid.RecordedAt
		}
		return from.Add(l.Policy.Finalization.Duration)
	default:
		// unreachable for validated policies
		return l.StartedAt
	}
}

// View is the read model returned by the view operation
type View struct {
	Token        TokenRef       `json:"token"`
	Owner        domain.Address `json:"owner"`
	Phase        Phase          `json:"phase"`
	Policy       LotPolicy      `json:"policy"`
	Royalties    []RoyaltyEntry `json:"royalties,omitempty"`
	CurrentBid   *Bid           `json:"currentBid,omitempty"`
	DisplayPrice string         `json:"displayPrice,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	CanManage    bool           `json:"canManage"`
}

// CreateParams carries the token-transfer-triggered auction call. Data is
// the serialized lot policy attached to the transfer.
type CreateParams struct {
	Sender domain.Address
	From   domain.Address
	Id     domain.TokenId
	Amount uint64
	Data   []byte
}

// InternalValue is an update mask for platform settings. Nil fields are
// left unchanged.
type InternalValue struct {
	FeePercentage  *domain.Percentage `json:"feePercentage,omitempty"`
	FeeBeneficiary *domain.Address    `json:"feeBeneficiary,omitempty"`
}

// UseCase is the auction engine. Each call is processed as a single atomic
// unit against shared state.
type UseCase interface {
	CreateAuction(c ctx.Ctx, params CreateParams) error
	PlaceBid(c ctx.Ctx, token TokenRef, bidder domain.Address, amount domain.Amount) error
	Finalize(c ctx.Ctx, token TokenRef) error
	Cancel(c ctx.Ctx, token TokenRef, caller domain.Address) error
	Recover(c ctx.Ctx, token TokenRef, caller domain.Address) error
	View(c ctx.Ctx, token TokenRef, caller domain.Address) (*View, error)

	UpdateInternalValue(c ctx.Ctx, caller domain.Address, value InternalValue) error
	ViewInternalValue(c ctx.Ctx) (InternalValue, error)
}

// LotRepo is the keyed store owning lot lifecycle. A key holds either a
// live lot or a grave, never both.
type LotRepo interface {
	// FindLot returns domain.ErrUnknownToken when the key holds no live lot
	FindLot(c ctx.Ctx, token TokenRef) (*Lot, error)
	// FindGrave returns domain.ErrUnknownToken when the key holds no grave
	FindGrave(c ctx.Ctx, token TokenRef) (*Grave, error)
	// CreateLot rejects a live lot with domain.ErrTokenAlreadyListed;
	// graves are overwritten
	CreateLot(c ctx.Ctx, lot *Lot) error
	// UpdateLot replaces an existing live lot
	UpdateLot(c ctx.Ctx, lot *Lot) error
	RemoveLot(c ctx.Ctx, token TokenRef) error
	// Bury replaces the key with a grave. Must only be called after the
	// lot was removed.
	Bury(c ctx.Ctx, grave *Grave) error
	RemoveGrave(c ctx.Ctx, token TokenRef) error
	// EscrowTotal sums current bid amounts over all live lots
	EscrowTotal(c ctx.Ctx) (domain.Amount, error)
}

package usecase

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/log"
	"github.com/lotmarket/goauction/base/metrics"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/auction"
	"github.com/lotmarket/goauction/domain/authority"
	"github.com/lotmarket/goauction/service/ledger"
	"github.com/lotmarket/goauction/service/token"
)

// swapped in tests to drive the time gate
var timeNow = time.Now

// AuctionUseCaseCfg wires the engine's collaborators
type AuctionUseCaseCfg struct {
	LotRepo   auction.LotRepo
	EventRepo auction.EventRepo
	Token     token.Client
	Ledger    ledger.Service
	Authority authority.UseCase

	// EngineAddress is the engine's own address as token holder
	EngineAddress domain.Address
	// FeePercentage and FeeBeneficiary are the initial platform settings,
	// adjustable later through UpdateInternalValue
	FeePercentage  domain.Percentage
	FeeBeneficiary domain.Address
}

type impl struct {
	// mu makes every write call one atomic unit against shared state
	mu sync.Mutex

	lotRepo   auction.LotRepo
	eventRepo auction.EventRepo
	token     token.Client
	ledger    ledger.Service
	authority authority.UseCase
	met       metrics.Service

	engineAddress  domain.Address
	feePercentage  domain.Percentage
	feeBeneficiary domain.Address
}

// New builds the auction engine
func New(cfg *AuctionUseCaseCfg) auction.UseCase {
	return &impl{
		lotRepo:        cfg.LotRepo,
		eventRepo:      cfg.EventRepo,
		token:          cfg.Token,
		ledger:         cfg.Ledger,
		authority:      cfg.Authority,
		met:            metrics.New("auction"),
		engineAddress:  cfg.EngineAddress.ToLower(),
		feePercentage:  cfg.FeePercentage,
		feeBeneficiary: cfg.FeeBeneficiary.ToLower(),
	}
}

func (im *impl) CreateAuction(c bCtx.Ctx, params auction.CreateParams) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	// receiving zero tokens auctions nothing
	if params.Amount == 0 {
		return nil
	}
	if params.Amount != 1 {
		return domain.ErrUnsupported
	}
	if !params.Sender.IsValid() {
		return domain.ErrContractOnly
	}
	if !params.From.IsValid() {
		return domain.ErrOnlyAccount
	}
	tokenRef := auction.TokenRef{
		Contract: params.Sender.ToLower(),
		Id:       params.Id,
	}
	if _, err := tokenRef.Id.Bytes(); err != nil {
		return domain.ErrInvalidTokenId
	}

	policy, err := auction.DecodePolicy(params.Data)
	if err != nil {
		c.WithFields(log.Fields{
			"token": tokenRef,
			"err":   err,
		}).Warn("malformed lot policy")
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	royalties, err := im.token.GetRoyalties(c, tokenRef)
	if err != nil {
		c.WithFields(log.Fields{
			"token": tokenRef,
			"err":   err,
		}).Error("token.GetRoyalties failed")
		return err
	}
	if err := auction.ValidateRoyalties(royalties, im.feePercentage); err != nil {
		return err
	}
	// the finalize event carries every royalty share plus the fee; a lot
	// whose settlement could not be logged must not be listed
	if err := auction.ValidateLogCapacity(tokenRef, len(royalties)+1); err != nil {
		return err
	}

	now := timeNow()
	startedAt := now
	if policy.Start.Kind == auction.StartAtTime {
		startedAt = policy.Start.At
	}
	owner := params.From.ToLower()
	lot := &auction.Lot{
		Token: tokenRef,
		Owner: owner,
		PlatformFee: auction.RoyaltyEntry{
			Beneficiary: im.feeBeneficiary,
			Percentage:  im.feePercentage,
		},
		Policy:    *policy,
		Royalties: royalties,
		StartedAt: startedAt,
	}

	// encode ahead of the commit so a log-capacity failure leaves no state
	event := &auction.CreatedEvent{Token: tokenRef, Owner: owner, Policy: *policy}
	payload, err := event.Encode()
	if err != nil {
		return err
	}

	if err := im.lotRepo.CreateLot(c, lot); err != nil {
		return err
	}

	im.recordEvent(c, event, payload, owner, 0)
	im.met.BumpSum("created", 1)
	return nil
}

func (im *impl) PlaceBid(c bCtx.Ctx, tokenRef auction.TokenRef, bidder domain.Address, amount domain.Amount) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if !bidder.IsValid() {
		return domain.ErrOnlyAccount
	}
	bidder = bidder.ToLower()

	lot, err := im.lotRepo.FindLot(c, tokenRef)
	if err != nil {
		return err
	}

	now := timeNow()
	switch lot.StateAt(now) {
	case auction.TimeStateNotStarted:
		return domain.ErrAuctionNotStarted
	case auction.TimeStateCompleted:
		return domain.ErrAuctionFinished
	}

	// the owner is not allowed to raise bids
	if bidder.Equals(lot.Owner) {
		return domain.ErrOwnerForbidden
	}

	floor := lot.Policy.Reserve
	if lot.CurrentBid != nil {
		floor = lot.Policy.MinimumNextBid(lot.CurrentBid.Amount)
	}
	if amount < floor {
		return domain.ErrBidTooLow
	}

	event := &auction.BidEvent{Token: tokenRef, Bidder: bidder, Amount: amount}
	payload, err := event.Encode()
	if err != nil {
		return err
	}

	// escrow the attached payment
	if err := im.ledger.Collect(c, bidder, amount); err != nil {
		return err
	}

	// refund the superseded bid in full; on failure hand the fresh escrow
	// back so the call leaves no trace
	previous := lot.CurrentBid
	if previous != nil {
		if err := im.ledger.Payout(c, previous.Bidder, previous.Amount); err != nil {
			c.WithFields(log.Fields{
				"token":  tokenRef,
				"bidder": previous.Bidder,
				"err":    err,
			}).Error("refund of superseded bid failed")
			if uerr := im.ledger.Payout(c, bidder, amount); uerr != nil {
				c.WithField("err", uerr).Error("escrow unwind failed")
			}
			return err
		}
	}

	lot.CurrentBid = &auction.Bid{
		Bidder:     bidder,
		Amount:     amount,
		RecordedAt: now,
	}
	if err := im.lotRepo.UpdateLot(c, lot); err != nil {
		return err
	}

	im.recordEvent(c, event, payload, bidder, amount)
	im.met.BumpSum("bid.accepted", 1)

	// buyout ends bidding immediately through the regular settlement path
	if lot.Policy.Buyout != nil && amount >= *lot.Policy.Buyout {
		return im.settle(c, lot)
	}
	return nil
}

func (im *impl) Finalize(c bCtx.Ctx, tokenRef auction.TokenRef) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	lot, err := im.lotRepo.FindLot(c, tokenRef)
	if err != nil {
		return err
	}
	if lot.StateAt(timeNow()) != auction.TimeStateCompleted {
		return domain.ErrAuctionStillActive
	}
	return im.settle(c, lot)
}

// settle completes a lot whose time condition (or buyout) is met. The token
// transfer is the single caught external call: its rejection converts into
// the aborted state instead of failing the call.
func (im *impl) settle(c bCtx.Ctx, lot *auction.Lot) error {
	if lot.CurrentBid == nil {
		return im.settleWithoutBid(c, lot)
	}

	winner := lot.CurrentBid.Bidder
	price := lot.CurrentBid.Amount
	royalties := append(append([]auction.RoyaltyEntry{}, lot.Royalties...), lot.PlatformFee)
	shares, sellerShare := auction.SplitPrice(price, royalties)

	result := im.token.Transfer(c, lot.Token, im.engineAddress, winner)
	if !result.Delivered {
		// refund first: if the winner cannot be made whole the whole call
		// fails and the lot stays as it was
		abort := &auction.AbortedEvent{Token: lot.Token, Owner: lot.Owner, Bidder: winner, Amount: price}
		payload, err := abort.Encode()
		if err != nil {
			return err
		}
		if err := im.ledger.Payout(c, winner, price); err != nil {
			c.WithFields(log.Fields{
				"token":  lot.Token,
				"winner": winner,
				"err":    err,
			}).Error("winning bid refund failed")
			return err
		}
		if err := im.lotRepo.RemoveLot(c, lot.Token); err != nil {
			return err
		}
		if err := im.lotRepo.Bury(c, &auction.Grave{Token: lot.Token, Owner: lot.Owner}); err != nil {
			return err
		}
		c.WithFields(log.Fields{
			"token":  lot.Token,
			"reason": result.Reason,
		}).Warn("token delivery rejected, auction aborted")
		im.recordEvent(c, abort, payload, winner, price)
		im.met.BumpSum("aborted", 1)
		return nil
	}

	// pay royalties; a beneficiary that cannot receive keeps its share in
	// the seller residual rather than failing settlement
	for i, share := range shares {
		if share.Share == 0 {
			continue
		}
		if err := im.ledger.Payout(c, share.Beneficiary, share.Share); err != nil {
			c.WithFields(log.Fields{
				"token":       lot.Token,
				"beneficiary": share.Beneficiary,
				"err":         err,
			}).Warn("royalty payout skipped")
			sellerShare = sellerShare.AddSat(share.Share)
			shares[i].Share = 0
		}
	}

	event := &auction.FinalizedEvent{
		Token:       lot.Token,
		Seller:      lot.Owner,
		Winner:      winner,
		Price:       price,
		SellerShare: sellerShare,
		Royalties:   shares,
	}
	payload, err := event.Encode()
	if err != nil {
		return err
	}

	if err := im.ledger.Payout(c, lot.Owner, sellerShare); err != nil {
		// the token is already with the winner; the residual stays in
		// escrow for manual remediation
		c.WithFields(log.Fields{
			"token":  lot.Token,
			"seller": lot.Owner,
			"err":    err,
		}).Error("seller payout failed")
		im.met.BumpSum("payout.err", 1)
	}
	if err := im.lotRepo.RemoveLot(c, lot.Token); err != nil {
		return err
	}
	im.recordEvent(c, event, payload, winner, price)
	im.met.BumpSum("finalized", 1)
	return nil
}

func (im *impl) settleWithoutBid(c bCtx.Ctx, lot *auction.Lot) error {
	result := im.token.Transfer(c, lot.Token, im.engineAddress, lot.Owner)
	if !result.Delivered {
		abort := &auction.AbortedEvent{Token: lot.Token, Owner: lot.Owner, Bidder: lot.Owner, Amount: 0}
		payload, err := abort.Encode()
		if err != nil {
			return err
		}
		if err := im.lotRepo.RemoveLot(c, lot.Token); err != nil {
			return err
		}
		if err := im.lotRepo.Bury(c, &auction.Grave{Token: lot.Token, Owner: lot.Owner}); err != nil {
			return err
		}
		im.recordEvent(c, abort, payload, lot.Owner, 0)
		im.met.BumpSum("aborted", 1)
		return nil
	}

	event := &auction.CanceledEvent{Token: lot.Token, Owner: lot.Owner}
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	if err := im.lotRepo.RemoveLot(c, lot.Token); err != nil {
		return err
	}
	im.recordEvent(c, event, payload, lot.Owner, 0)
	im.met.BumpSum("canceled", 1)
	return nil
}

func (im *impl) Cancel(c bCtx.Ctx, tokenRef auction.TokenRef, caller domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	lot, err := im.lotRepo.FindLot(c, tokenRef)
	if err != nil {
		return err
	}
	if !caller.Equals(lot.Owner) {
		return domain.ErrUnauthorized
	}
	if lot.StateAt(timeNow()) == auction.TimeStateCompleted {
		return domain.ErrAuctionFinished
	}

	// refund the live bid before touching lot state
	if lot.CurrentBid != nil {
		if err := im.ledger.Payout(c, lot.CurrentBid.Bidder, lot.CurrentBid.Amount); err != nil {
			c.WithFields(log.Fields{
				"token":  tokenRef,
				"bidder": lot.CurrentBid.Bidder,
				"err":    err,
			}).Error("bid refund failed")
			return err
		}
		lot.CurrentBid = nil
	}

	return im.settleWithoutBid(c, lot)
}

func (im *impl) Recover(c bCtx.Ctx, tokenRef auction.TokenRef, caller domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	// a live lot is not recoverable
	if _, err := im.lotRepo.FindLot(c, tokenRef); err == nil {
		return domain.ErrAuctionStillActive
	}

	grave, err := im.lotRepo.FindGrave(c, tokenRef)
	if err != nil {
		return err
	}
	if !caller.Equals(grave.Owner) {
		return domain.ErrUnauthorized
	}

	result := im.token.Transfer(c, tokenRef, im.engineAddress, grave.Owner)
	if !result.Delivered {
		// the grave stays for another attempt
		c.WithFields(log.Fields{
			"token":  tokenRef,
			"reason": result.Reason,
		}).Warn("recovery delivery rejected")
		return domain.ErrTransferRejected
	}
	if err := im.lotRepo.RemoveGrave(c, tokenRef); err != nil {
		return err
	}
	im.met.BumpSum("recovered", 1)
	return nil
}

func (im *impl) View(c bCtx.Ctx, tokenRef auction.TokenRef, caller domain.Address) (*auction.View, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	lot, err := im.lotRepo.FindLot(c, tokenRef)
	if err == nil {
		phase := auction.PhaseActive
		if lot.StateAt(timeNow()) == auction.TimeStateNotStarted {
			phase = auction.PhasePendingStart
		}
		deadline := lot.Deadline()
		view := &auction.View{
			Token:      lot.Token,
			Owner:      lot.Owner,
			Phase:      phase,
			Policy:     lot.Policy,
			Royalties:  lot.Royalties,
			CurrentBid: lot.CurrentBid,
			Deadline:   &deadline,
			CanManage:  caller.Equals(lot.Owner),
		}
		if lot.CurrentBid != nil {
			view.DisplayPrice = lot.CurrentBid.Amount.Display()
		}
		return view, nil
	}

	grave, err := im.lotRepo.FindGrave(c, tokenRef)
	if err != nil {
		return nil, err
	}
	return &auction.View{
		Token:     grave.Token,
		Owner:     grave.Owner,
		Phase:     auction.PhaseAborted,
		CanManage: caller.Equals(grave.Owner),
	}, nil
}

func (im *impl) UpdateInternalValue(c bCtx.Ctx, caller domain.Address, value auction.InternalValue) error {
	if err := im.authority.RequireMaintainer(c, caller); err != nil {
		return err
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	if value.FeePercentage != nil {
		if *value.FeePercentage > domain.HundredPercent {
			return domain.ErrBadParamInput
		}
		im.feePercentage = *value.FeePercentage
	}
	if value.FeeBeneficiary != nil {
		if !value.FeeBeneficiary.IsValid() {
			return domain.ErrInvalidAddress
		}
		im.feeBeneficiary = value.FeeBeneficiary.ToLower()
	}
	return nil
}

func (im *impl) ViewInternalValue(c bCtx.Ctx) (auction.InternalValue, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	fee := im.feePercentage
	beneficiary := im.feeBeneficiary
	return auction.InternalValue{
		FeePercentage:  &fee,
		FeeBeneficiary: &beneficiary,
	}, nil
}

// recordEvent writes the tagged payload to the history store. The payload
// was encoded before the state commit, so only the write itself can fail
// here, and history is a read model.
func (im *impl) recordEvent(c bCtx.Ctx, event auction.Event, payload []byte, account domain.Address, amount domain.Amount) {
	record := &auction.EventRecord{
		Id:       uuid.New().String(),
		Contract: eventToken(event).Contract,
		TokenId:  eventToken(event).Id,
		Type:     event.Type(),
		Account:  account.ToLower(),
		Amount:   amount,
		Payload:  hexutil.Encode(payload),
		Time:     timeNow(),
	}
	if err := im.eventRepo.Insert(c, record); err != nil {
		c.WithFields(log.Fields{
			"type": event.Type(),
			"err":  err,
		}).Error("eventRepo.Insert failed")
	}
}

func eventToken(event auction.Event) auction.TokenRef {
	switch e := event.(type) {
	case *auction.CreatedEvent:
		return e.Token
	case *auction.BidEvent:
		return e.Token
	case *auction.FinalizedEvent:
		return e.Token
	case *auction.CanceledEvent:
		return e.Token
	case *auction.AbortedEvent:
		return e.Token
	default:
		return auction.TokenRef{}
	}
}

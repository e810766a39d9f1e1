package usecase

import (
	"fmt"
	"testing"
	"time"

	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/auction"
	"github.com/lotmarket/goauction/domain/authority"
	"github.com/lotmarket/goauction/service/ledger"
	"github.com/lotmarket/goauction/service/token"
	"github.com/lotmarket/goauction/stores/auction/repository"
	"github.com/stretchr/testify/require"
)

func addr(n int) domain.Address {
	return domain.Address(fmt.Sprintf("0x%040x", n))
}

var (
	contract    = addr(0xc0)
	engineAddr  = addr(0xe0)
	feeAccount  = addr(0xfe)
	artist      = addr(0xa1)
	seller      = addr(0x51)
	bidderOne   = addr(0xb1)
	bidderTwo   = addr(0xb2)
	tokenId     = domain.TokenId("0x01")
	tokenUnderA = auction.TokenRef{Contract: contract, Id: tokenId}
)

type transferCall struct {
	token auction.TokenRef
	from  domain.Address
	to    domain.Address
}

type fakeTokenClient struct {
	royalties  []auction.RoyaltyEntry
	royaltyErr error
	rejectNext int
	transfers  []transferCall
}

func (f *fakeTokenClient) Transfer(c bCtx.Ctx, t auction.TokenRef, from, to domain.Address) token.TransferResult {
	f.transfers = append(f.transfers, transferCall{token: t, from: from, to: to})
	if f.rejectNext > 0 {
		f.rejectNext--
		return token.Rejected(domain.ErrTransferRejected)
	}
	return token.Delivered()
}

func (f *fakeTokenClient) GetRoyalties(c bCtx.Ctx, t auction.TokenRef) ([]auction.RoyaltyEntry, error) {
	if f.royaltyErr != nil {
		return nil, f.royaltyErr
	}
	return f.royalties, nil
}

type fakeEventRepo struct {
	records []auction.EventRecord
}

func (f *fakeEventRepo) Insert(c bCtx.Ctx, record *auction.EventRecord) error {
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeEventRepo) FindAll(c bCtx.Ctx, opts ...auction.FindEventsOptions) ([]auction.EventRecord, error) {
	return f.records, nil
}

func (f *fakeEventRepo) Count(c bCtx.Ctx, opts ...auction.FindEventsOptions) (int, error) {
	return len(f.records), nil
}

func (f *fakeEventRepo) types() []auction.EventType {
	res := make([]auction.EventType, 0, len(f.records))
	for _, r := range f.records {
		res = append(res, r.Type)
	}
	return res
}

type fakeAuthority struct {
	maintainers map[domain.Address]bool
}

func (f *fakeAuthority) RequireMaintainer(c bCtx.Ctx, caller domain.Address) error {
	if !f.maintainers[caller.ToLower()] {
		return domain.ErrUnauthorized
	}
	return nil
}

func (f *fakeAuthority) RequireAdmin(c bCtx.Ctx, caller domain.Address) error {
	return f.RequireMaintainer(c, caller)
}

func (f *fakeAuthority) Update(c bCtx.Ctx, caller domain.Address, params authority.UpdateParams) error {
	return nil
}

func (f *fakeAuthority) List(c bCtx.Ctx, role authority.Role) ([]domain.Address, error) {
	return nil, nil
}

type engineFixture struct {
	uc     auction.UseCase
	lots   auction.LotRepo
	events *fakeEventRepo
	tokens *fakeTokenClient
	ledger *ledger.InMemory
	ctx    bCtx.Ctx
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	tokens := &fakeTokenClient{
		royalties: []auction.RoyaltyEntry{
			{Beneficiary: artist, Percentage: domain.PercentageFromPercent(5)},
		},
	}
	events := &fakeEventRepo{}
	lots := repository.NewLotRepo()
	led := ledger.NewInMemory(map[domain.Address]domain.Amount{
		seller:     0,
		bidderOne:  10_000_000,
		bidderTwo:  10_000_000,
		artist:     0,
		feeAccount: 0,
	})
	uc := New(&AuctionUseCaseCfg{
		LotRepo:        lots,
		EventRepo:      events,
		Token:          tokens,
		Ledger:         led,
		Authority:      &fakeAuthority{maintainers: map[domain.Address]bool{feeAccount.ToLower(): true}},
		EngineAddress:  engineAddr,
		FeePercentage:  domain.PercentageFromPercent(2),
		FeeBeneficiary: feeAccount,
	})
	return &engineFixture{
		uc:     uc,
		lots:   lots,
		events: events,
		tokens: tokens,
		ledger: led,
		ctx:    bCtx.Background(),
	}
}

func atTime(t *testing.T, at time.Time) {
	t.Helper()
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = time.Now })
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func defaultPolicy() *auction.LotPolicy {
	return &auction.LotPolicy{
		Start:        auction.StartPolicy{Kind: auction.StartImmediate},
		Finalization: auction.FinalizationPolicy{Kind: auction.FinalizeAfterDuration, Duration: time.Hour},
		Reserve:      1_000_000,
		Increment:    auction.IncrementPolicy{Kind: auction.IncrementFlat, Flat: 100},
	}
}

func (f *engineFixture) create(t *testing.T, policy *auction.LotPolicy) {
	t.Helper()
	require.NoError(t, f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     tokenId,
		Amount: 1,
		Data:   auction.EncodePolicy(policy),
	}))
}

func (f *engineFixture) balance(t *testing.T, account domain.Address) domain.Amount {
	t.Helper()
	b, ok := f.ledger.BalanceOf(f.ctx, account)
	require.True(t, ok)
	return b
}

func TestCreateAuction(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	lot, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, seller.ToLower(), lot.Owner)
	require.Equal(t, epoch, lot.StartedAt)
	require.Equal(t, feeAccount.ToLower(), lot.PlatformFee.Beneficiary)
	require.Nil(t, lot.CurrentBid)
	require.Equal(t, []auction.EventType{auction.EventTypeCreated}, f.events.types())
}

func TestCreateAuctionRejectsDuplicateListing(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	err := f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     tokenId,
		Amount: 1,
		Data:   auction.EncodePolicy(defaultPolicy()),
	})
	require.ErrorIs(t, err, domain.ErrTokenAlreadyListed)
}

func TestCreateAuctionAmountGate(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)

	// zero tokens received auctions nothing
	require.NoError(t, f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     tokenId,
		Amount: 0,
		Data:   auction.EncodePolicy(defaultPolicy()),
	}))
	_, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)

	err = f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     tokenId,
		Amount: 2,
		Data:   auction.EncodePolicy(defaultPolicy()),
	})
	require.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestCreateAuctionMalformedPolicy(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)

	err := f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     tokenId,
		Amount: 1,
		Data:   []byte{0xff},
	})
	require.ErrorIs(t, err, domain.ErrBadParamInput)
}

func TestCreateAuctionRoyaltyOverSubscribed(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.tokens.royalties = []auction.RoyaltyEntry{
		{Beneficiary: artist, Percentage: domain.PercentageFromPercent(99)},
	}

	// 99% royalty plus the 2% platform fee exceeds the whole price
	err := f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     tokenId,
		Amount: 1,
		Data:   auction.EncodePolicy(defaultPolicy()),
	})
	require.ErrorIs(t, err, domain.ErrInvalidRoyalty)
}

func TestCreateAuctionRejectsUnloggableSettlement(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.tokens.royalties = nil
	for i := 0; i < auction.MaxRoyaltyEntries-1; i++ {
		f.tokens.royalties = append(f.tokens.royalties, auction.RoyaltyEntry{
			Beneficiary: addr(0x100 + i),
			Percentage:  domain.PercentageFromPercent(1),
		})
	}
	longId := domain.TokenIdFromBytes(make([]byte, domain.MaxTokenIdLen))

	// a maximal token id with a full royalty list would produce a finalize
	// event over the log entry cap, so the listing is refused up front
	err := f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     longId,
		Amount: 1,
		Data:   auction.EncodePolicy(defaultPolicy()),
	})
	require.ErrorIs(t, err, domain.ErrEventTooLarge)

	_, err = f.lots.FindLot(f.ctx, auction.TokenRef{Contract: contract, Id: longId})
	require.ErrorIs(t, err, domain.ErrUnknownToken)
	require.Empty(t, f.events.records)
}

func TestFinalizeAtLogCapacityBoundary(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.tokens.royalties = nil
	for i := 0; i < auction.MaxRoyaltyEntries-1; i++ {
		f.tokens.royalties = append(f.tokens.royalties, auction.RoyaltyEntry{
			Beneficiary: addr(0x100 + i),
			Percentage:  domain.PercentageFromPercent(1),
		})
	}
	// the longest id the full royalty list leaves room for
	boundaryId := domain.TokenIdFromBytes(make([]byte, 153))
	boundaryToken := auction.TokenRef{Contract: contract, Id: boundaryId}

	require.NoError(t, f.uc.CreateAuction(f.ctx, auction.CreateParams{
		Sender: contract,
		From:   seller,
		Id:     boundaryId,
		Amount: 1,
		Data:   auction.EncodePolicy(defaultPolicy()),
	}))
	require.NoError(t, f.uc.PlaceBid(f.ctx, boundaryToken, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	require.NoError(t, f.uc.Finalize(f.ctx, boundaryToken))

	// the royalty beneficiaries hold no ledger accounts, so their shares
	// fold into the seller residual; nothing is left in escrow
	require.Equal(t, domain.Amount(980_000), f.balance(t, seller))
	require.Equal(t, domain.Amount(20_000), f.balance(t, feeAccount))
	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(0), escrow)
	require.Len(t, f.tokens.transfers, 1)
	require.Equal(t, auction.EventTypeFinalized, f.events.records[len(f.events.records)-1].Type)
}

func TestPlaceBidReserve(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	err := f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 999_999)
	require.ErrorIs(t, err, domain.ErrBidTooLow)

	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))
	lot, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, bidderOne.ToLower(), lot.CurrentBid.Bidder)
	require.Equal(t, domain.Amount(1_000_000), lot.CurrentBid.Amount)
	require.Equal(t, domain.Amount(9_000_000), f.balance(t, bidderOne))
}

func TestPlaceBidOwnerForbidden(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	err := f.uc.PlaceBid(f.ctx, tokenUnderA, seller, 1_000_000)
	require.ErrorIs(t, err, domain.ErrOwnerForbidden)
}

func TestPlaceBidBeforeStart(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	policy := defaultPolicy()
	policy.Start = auction.StartPolicy{Kind: auction.StartAtTime, At: epoch.Add(time.Hour)}
	f.create(t, policy)

	err := f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000)
	require.ErrorIs(t, err, domain.ErrAuctionNotStarted)
}

func TestPlaceBidAfterDeadline(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())

	atTime(t, epoch.Add(time.Hour))
	err := f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000)
	require.ErrorIs(t, err, domain.ErrAuctionFinished)
}

func TestPlaceBidFlatIncrement(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	err := f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 1_000_099)
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 1_000_100))

	// the superseded bid was refunded in full
	require.Equal(t, domain.Amount(10_000_000), f.balance(t, bidderOne))
	require.Equal(t, domain.Amount(8_999_900), f.balance(t, bidderTwo))
}

func TestPlaceBidPercentageIncrement(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	policy := defaultPolicy()
	policy.Reserve = 1_000
	policy.Increment = auction.IncrementPolicy{
		Kind:       auction.IncrementPercentage,
		Percentage: domain.PercentageFromPercent(10),
	}
	f.create(t, policy)
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000))

	err := f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 1_099)
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 1_100))
}

func TestPlaceBidZeroIncrementTieDisplaces(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	policy := defaultPolicy()
	policy.Reserve = 500
	policy.Increment = auction.IncrementPolicy{Kind: auction.IncrementFlat, Flat: 0}
	f.create(t, policy)

	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 500))
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 500))

	lot, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, bidderTwo.ToLower(), lot.CurrentBid.Bidder)
	require.Equal(t, domain.Amount(10_000_000), f.balance(t, bidderOne))

	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(500), escrow)
}

func TestPlaceBidInsufficientBalanceLeavesNoTrace(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	err := f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 20_000_000)
	require.ErrorIs(t, err, domain.ErrPaymentFailed)

	lot, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, bidderOne.ToLower(), lot.CurrentBid.Bidder)
	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(1_000_000), escrow)
}

func TestBuyoutShortCircuit(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	policy := defaultPolicy()
	buyout := domain.Amount(2_000_000)
	policy.Buyout = &buyout
	f.create(t, policy)

	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 2_000_000))

	// price 2,000,000: artist 5% = 100,000, platform 2% = 40,000
	require.Equal(t, domain.Amount(100_000), f.balance(t, artist))
	require.Equal(t, domain.Amount(40_000), f.balance(t, feeAccount))
	require.Equal(t, domain.Amount(1_860_000), f.balance(t, seller))

	require.Len(t, f.tokens.transfers, 1)
	require.Equal(t, bidderOne.ToLower(), f.tokens.transfers[0].to)
	require.Equal(t, engineAddr.ToLower(), f.tokens.transfers[0].from)

	_, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
	require.Equal(t, []auction.EventType{
		auction.EventTypeCreated,
		auction.EventTypeBid,
		auction.EventTypeFinalized,
	}, f.events.types())
}

func TestFinalizeBeforeDeadline(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	err := f.uc.Finalize(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrAuctionStillActive)
}

func TestFinalizeConservesPrice(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))

	artistShare := f.balance(t, artist)
	feeShare := f.balance(t, feeAccount)
	sellerShare := f.balance(t, seller)
	require.Equal(t, domain.Amount(1_000_000), artistShare+feeShare+sellerShare)
	require.Equal(t, domain.Amount(50_000), artistShare)
	require.Equal(t, domain.Amount(20_000), feeShare)

	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(0), escrow)
}

func TestFinalizeIsNotRepeatable(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))
	err := f.uc.Finalize(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestFinalizeWithoutBidReturnsToken(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())

	atTime(t, epoch.Add(time.Hour))
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))

	require.Len(t, f.tokens.transfers, 1)
	require.Equal(t, seller.ToLower(), f.tokens.transfers[0].to)
	require.Equal(t, []auction.EventType{
		auction.EventTypeCreated,
		auction.EventTypeCanceled,
	}, f.events.types())
	_, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestBidTimeoutSlidesDeadline(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	policy := defaultPolicy()
	policy.Finalization = auction.FinalizationPolicy{
		Kind:     auction.FinalizeOnBidTimeout,
		Duration: 10 * time.Minute,
	}
	f.create(t, policy)
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	// a bid at minute 9 pushes the deadline to minute 19
	atTime(t, epoch.Add(9*time.Minute))
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 1_000_100))

	atTime(t, epoch.Add(15*time.Minute))
	require.ErrorIs(t, f.uc.Finalize(f.ctx, tokenUnderA), domain.ErrAuctionStillActive)

	atTime(t, epoch.Add(19*time.Minute))
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))
}

func TestAbortAndRecover(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	f.tokens.rejectNext = 1
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))

	// winner made whole, nothing paid out of the price
	require.Equal(t, domain.Amount(10_000_000), f.balance(t, bidderOne))
	require.Equal(t, domain.Amount(0), f.balance(t, seller))
	require.Equal(t, domain.Amount(0), f.balance(t, artist))

	grave, err := f.lots.FindGrave(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, seller.ToLower(), grave.Owner)
	require.Equal(t, []auction.EventType{
		auction.EventTypeCreated,
		auction.EventTypeBid,
		auction.EventTypeAborted,
	}, f.events.types())

	// only the grave owner may recover
	require.ErrorIs(t, f.uc.Recover(f.ctx, tokenUnderA, bidderOne), domain.ErrUnauthorized)

	// a rejected recovery attempt keeps the grave
	f.tokens.rejectNext = 1
	require.ErrorIs(t, f.uc.Recover(f.ctx, tokenUnderA, seller), domain.ErrTransferRejected)
	_, err = f.lots.FindGrave(f.ctx, tokenUnderA)
	require.NoError(t, err)

	require.NoError(t, f.uc.Recover(f.ctx, tokenUnderA, seller))
	_, err = f.lots.FindGrave(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestAbortedTokenCanBeRelisted(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	f.tokens.rejectNext = 1
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))

	// a fresh listing overwrites the grave
	f.create(t, defaultPolicy())
	_, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	_, err = f.lots.FindGrave(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestRecoverOnLiveLot(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	err := f.uc.Recover(f.ctx, tokenUnderA, seller)
	require.ErrorIs(t, err, domain.ErrAuctionStillActive)
}

func TestBidByUnknownAccountLeavesNoTrace(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	ghost := addr(0xdead)
	err := f.uc.PlaceBid(f.ctx, tokenUnderA, ghost, 1_000_000)
	require.ErrorIs(t, err, domain.ErrPaymentFailed)

	lot, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Nil(t, lot.CurrentBid)
	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(0), escrow)
}

func TestCancel(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	require.ErrorIs(t, f.uc.Cancel(f.ctx, tokenUnderA, bidderOne), domain.ErrUnauthorized)

	require.NoError(t, f.uc.Cancel(f.ctx, tokenUnderA, seller))
	require.Equal(t, domain.Amount(10_000_000), f.balance(t, bidderOne))
	require.Len(t, f.tokens.transfers, 1)
	require.Equal(t, seller.ToLower(), f.tokens.transfers[0].to)

	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(0), escrow)

	_, err = f.lots.FindLot(f.ctx, tokenUnderA)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestCancelAfterCompletion(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	require.ErrorIs(t, f.uc.Cancel(f.ctx, tokenUnderA, seller), domain.ErrAuctionFinished)
}

func TestCancelWithRejectedReturnBuries(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	f.tokens.rejectNext = 1
	require.NoError(t, f.uc.Cancel(f.ctx, tokenUnderA, seller))

	grave, err := f.lots.FindGrave(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, seller.ToLower(), grave.Owner)
}

func TestRoyaltyPayoutFailureFallsToSeller(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	ghostArtist := addr(0x9a)
	f.tokens.royalties = []auction.RoyaltyEntry{
		{Beneficiary: ghostArtist, Percentage: domain.PercentageFromPercent(5)},
	}
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))

	// the undeliverable royalty share folds into the seller payout
	require.Equal(t, domain.Amount(980_000), f.balance(t, seller))
	require.Equal(t, domain.Amount(20_000), f.balance(t, feeAccount))
	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(0), escrow)
}

func TestEscrowMatchesLiveBids(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderTwo, 1_500_000))

	total, err := f.lots.EscrowTotal(f.ctx)
	require.NoError(t, err)
	escrow, err := f.ledger.EngineBalance(f.ctx)
	require.NoError(t, err)
	require.Equal(t, total, escrow)
}

func TestView(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	policy := defaultPolicy()
	policy.Start = auction.StartPolicy{Kind: auction.StartAtTime, At: epoch.Add(time.Hour)}
	f.create(t, policy)

	view, err := f.uc.View(f.ctx, tokenUnderA, seller)
	require.NoError(t, err)
	require.Equal(t, auction.PhasePendingStart, view.Phase)
	require.True(t, view.CanManage)
	require.Empty(t, view.DisplayPrice)

	atTime(t, epoch.Add(time.Hour))
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_500_000))
	view, err = f.uc.View(f.ctx, tokenUnderA, bidderOne)
	require.NoError(t, err)
	require.Equal(t, auction.PhaseActive, view.Phase)
	require.False(t, view.CanManage)
	require.Equal(t, "1.5", view.DisplayPrice)
	require.NotNil(t, view.Deadline)
	require.Equal(t, epoch.Add(2*time.Hour), *view.Deadline)
}

func TestViewGrave(t *testing.T) {
	f := newFixture(t)
	atTime(t, epoch)
	f.create(t, defaultPolicy())
	require.NoError(t, f.uc.PlaceBid(f.ctx, tokenUnderA, bidderOne, 1_000_000))

	atTime(t, epoch.Add(time.Hour))
	f.tokens.rejectNext = 1
	require.NoError(t, f.uc.Finalize(f.ctx, tokenUnderA))

	view, err := f.uc.View(f.ctx, tokenUnderA, seller)
	require.NoError(t, err)
	require.Equal(t, auction.PhaseAborted, view.Phase)
	require.True(t, view.CanManage)
}

func TestViewUnknownToken(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)

	_, err := f.uc.View(f.ctx, tokenUnderA, seller)
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestUpdateInternalValue(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)

	newFee := domain.PercentageFromPercent(3)
	err := f.uc.UpdateInternalValue(f.ctx, bidderOne, auction.InternalValue{FeePercentage: &newFee})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.uc.UpdateInternalValue(f.ctx, feeAccount, auction.InternalValue{FeePercentage: &newFee}))
	got, err := f.uc.ViewInternalValue(f.ctx)
	require.NoError(t, err)
	require.Equal(t, newFee, *got.FeePercentage)
	require.Equal(t, feeAccount.ToLower(), *got.FeeBeneficiary)

	over := domain.HundredPercent + 1
	err = f.uc.UpdateInternalValue(f.ctx, feeAccount, auction.InternalValue{FeePercentage: &over})
	require.ErrorIs(t, err, domain.ErrBadParamInput)
}

func TestFeeSnapshotIsPerLot(t *testing.T) {
	atTime(t, epoch)
	f := newFixture(t)
	f.create(t, defaultPolicy())

	// raising the fee after listing does not touch the existing lot
	newFee := domain.PercentageFromPercent(50)
	require.NoError(t, f.uc.UpdateInternalValue(f.ctx, feeAccount, auction.InternalValue{FeePercentage: &newFee}))

	lot, err := f.lots.FindLot(f.ctx, tokenUnderA)
	require.NoError(t, err)
	require.Equal(t, domain.PercentageFromPercent(2), lot.PlatformFee.Percentage)
}

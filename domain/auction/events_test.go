package auction

import (
	"testing"
	"time"

	"github.com/lotmarket/goauction/domain"
	"github.com/stretchr/testify/require"
)

func TestEventTags(t *testing.T) {
	token := TokenRef{
		Contract: benef(0xc0),
		Id:       domain.TokenId("0x01"),
	}
	owner := benef(1)
	bidder := benef(2)

	cases := []struct {
		event Event
		tag   byte
	}{
		{&CreatedEvent{Token: token, Owner: owner, Policy: LotPolicy{}}, EventTagCreated},
		{&BidEvent{Token: token, Bidder: bidder, Amount: 5}, EventTagBid},
		{&FinalizedEvent{Token: token, Seller: owner, Winner: bidder, Price: 5, SellerShare: 5}, EventTagFinalized},
		{&CanceledEvent{Token: token, Owner: owner}, EventTagCanceled},
		{&AbortedEvent{Token: token, Owner: owner, Bidder: bidder, Amount: 5}, EventTagAborted},
	}

	for _, tc := range cases {
		b, err := tc.event.Encode()
		require.NoError(t, err)
		require.NotEmpty(t, b)
		require.Equal(t, tc.tag, b[0])
		require.LessOrEqual(t, len(b), MaxEventLen)
	}
}

func TestFinalizedEventFitsWithMaxRoyalties(t *testing.T) {
	token := TokenRef{
		Contract: benef(0xc0),
		Id:       domain.TokenIdFromBytes(make([]byte, 32)),
	}
	royalties := make([]RoyaltyShare, MaxRoyaltyEntries-1)
	for i := range royalties {
		royalties[i] = RoyaltyShare{Beneficiary: benef(i), Share: 1}
	}

	b, err := (&FinalizedEvent{
		Token:       token,
		Seller:      benef(1),
		Winner:      benef(2),
		Price:       100,
		SellerShare: 91,
		Royalties:   royalties,
	}).Encode()
	require.NoError(t, err)
	require.LessOrEqual(t, len(b), MaxEventLen)
}

func TestEventTooLarge(t *testing.T) {
	// a maximal token id plus a full royalty list cannot fit the entry cap
	token := TokenRef{
		Contract: benef(0xc0),
		Id:       domain.TokenIdFromBytes(make([]byte, domain.MaxTokenIdLen)),
	}
	royalties := make([]RoyaltyShare, MaxRoyaltyEntries-1)
	for i := range royalties {
		royalties[i] = RoyaltyShare{Beneficiary: benef(i), Share: 1}
	}

	_, err := (&FinalizedEvent{
		Token:     token,
		Seller:    benef(1),
		Winner:    benef(2),
		Royalties: royalties,
	}).Encode()
	require.ErrorIs(t, err, domain.ErrEventTooLarge)
}

func TestValidateLogCapacity(t *testing.T) {
	// with a full share list the finalize event leaves room for a 153-byte id
	fits := TokenRef{
		Contract: benef(0xc0),
		Id:       domain.TokenIdFromBytes(make([]byte, 153)),
	}
	require.NoError(t, ValidateLogCapacity(fits, MaxRoyaltyEntries))

	over := TokenRef{
		Contract: benef(0xc0),
		Id:       domain.TokenIdFromBytes(make([]byte, 154)),
	}
	require.ErrorIs(t, ValidateLogCapacity(over, MaxRoyaltyEntries), domain.ErrEventTooLarge)

	// the bound agrees with the encoder at the boundary
	shares := make([]RoyaltyShare, MaxRoyaltyEntries)
	for i := range shares {
		shares[i] = RoyaltyShare{Beneficiary: benef(i), Share: 1}
	}
	b, err := (&FinalizedEvent{
		Token:     fits,
		Seller:    benef(1),
		Winner:    benef(2),
		Royalties: shares,
	}).Encode()
	require.NoError(t, err)
	require.Equal(t, MaxEventLen, len(b))
}

func TestLotDeadline(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lot := &Lot{
		StartedAt: start,
		Policy: LotPolicy{
			Finalization: FinalizationPolicy{Kind: FinalizeAfterDuration, Duration: time.Hour},
		},
	}
	require.Equal(t, start.Add(time.Hour), lot.Deadline())

	lot.Policy.Finalization.Kind = FinalizeOnBidTimeout
	require.Equal(t, start.Add(time.Hour), lot.Deadline())

	lot.CurrentBid = &Bid{RecordedAt: start.Add(30 * time.Minute)}
	require.Equal(t, start.Add(90*time.Minute), lot.Deadline())
}

func TestLotStateAt(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	buyout := domain.Amount(1_000)
	lot := &Lot{
		StartedAt: start,
		Policy: LotPolicy{
			Finalization: FinalizationPolicy{Kind: FinalizeAfterDuration, Duration: time.Hour},
			Buyout:       &buyout,
		},
	}

	require.Equal(t, TimeStateNotStarted, lot.StateAt(start.Add(-time.Second)))
	require.Equal(t, TimeStateActive, lot.StateAt(start))
	require.Equal(t, TimeStateActive, lot.StateAt(start.Add(time.Hour-time.Second)))
	require.Equal(t, TimeStateCompleted, lot.StateAt(start.Add(time.Hour)))

	// a met buyout completes the lot regardless of the clock
	lot.CurrentBid = &Bid{Amount: 1_000, RecordedAt: start}
	require.Equal(t, TimeStateCompleted, lot.StateAt(start))
}

package auction

import (
	"fmt"
	"testing"

	"github.com/lotmarket/goauction/domain"
	"github.com/stretchr/testify/require"
)

func benef(n int) domain.Address {
	return domain.Address(fmt.Sprintf("0x%040x", n))
}

func TestValidateRoyalties(t *testing.T) {
	fee := domain.PercentageFromPercent(2)

	require.NoError(t, ValidateRoyalties(nil, fee))
	require.NoError(t, ValidateRoyalties([]RoyaltyEntry{
		{Beneficiary: benef(1), Percentage: domain.PercentageFromPercent(50)},
		{Beneficiary: benef(2), Percentage: domain.PercentageFromPercent(48)},
	}, fee))

	// total over 100%
	err := ValidateRoyalties([]RoyaltyEntry{
		{Beneficiary: benef(1), Percentage: domain.PercentageFromPercent(99)},
	}, fee)
	require.ErrorIs(t, err, domain.ErrInvalidRoyalty)

	// entry count at the cap
	many := make([]RoyaltyEntry, MaxRoyaltyEntries)
	for i := range many {
		many[i] = RoyaltyEntry{Beneficiary: benef(i), Percentage: 1}
	}
	require.ErrorIs(t, ValidateRoyalties(many, 0), domain.ErrInvalidRoyalty)
	require.NoError(t, ValidateRoyalties(many[:MaxRoyaltyEntries-1], 0))

	// overflow wrap must not pass as a small total
	require.ErrorIs(t, ValidateRoyalties([]RoyaltyEntry{
		{Beneficiary: benef(1), Percentage: ^domain.Percentage(0)},
		{Beneficiary: benef(2), Percentage: ^domain.Percentage(0)},
	}, 0), domain.ErrInvalidRoyalty)
}

func TestSplitPriceConserves(t *testing.T) {
	entries := []RoyaltyEntry{
		{Beneficiary: benef(1), Percentage: domain.PercentageFromPercent(5)},
		{Beneficiary: benef(2), Percentage: 3_333_333}, // 3.333333%
		{Beneficiary: benef(3), Percentage: 1},         // one micro-percent
	}

	for _, price := range []domain.Amount{0, 1, 3, 999, 1_000_000, 123_456_789} {
		shares, seller := SplitPrice(price, entries)
		require.Len(t, shares, len(entries))

		total := seller
		for _, s := range shares {
			total += s.Share
		}
		require.Equal(t, price, total, "price %d", price)
	}
}

func TestSplitPriceRoundsDown(t *testing.T) {
	shares, seller := SplitPrice(999, []RoyaltyEntry{
		{Beneficiary: benef(1), Percentage: domain.PercentageFromPercent(5)},
	})
	// floor(999 * 5%) = 49, residual 950
	require.Equal(t, domain.Amount(49), shares[0].Share)
	require.Equal(t, domain.Amount(950), seller)
}

func TestSplitPriceFullRoyalty(t *testing.T) {
	shares, seller := SplitPrice(1_000, []RoyaltyEntry{
		{Beneficiary: benef(1), Percentage: domain.HundredPercent},
	})
	require.Equal(t, domain.Amount(1_000), shares[0].Share)
	require.Equal(t, domain.Amount(0), seller)
}

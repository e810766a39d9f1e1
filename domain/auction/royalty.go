package auction

import (
	"github.com/lotmarket/goauction/domain"
)

// ValidateRoyalties enforces the creation-time royalty invariants: fewer
// than MaxRoyaltyEntries entries and a total, platform fee included, of at
// most 100%. Never re-validated later.
func ValidateRoyalties(entries []RoyaltyEntry, platformFee domain.Percentage) error {
	if len(entries) >= MaxRoyaltyEntries {
		return domain.ErrInvalidRoyalty
	}
	total := platformFee
	for _, e := range entries {
		total = total.Add(e.Percentage)
		if total > domain.HundredPercent || total < e.Percentage {
			return domain.ErrInvalidRoyalty
		}
	}
	return nil
}

// SplitPrice turns a final price and the fixed royalty list into a
// conserved split: each share is rounded down, and the seller receives the
// exact residual. With royalties summing to at most 100% the residual is
// never negative and shares plus residual always equal the price.
func SplitPrice(price domain.Amount, entries []RoyaltyEntry) ([]RoyaltyShare, domain.Amount) {
	shares := make([]RoyaltyShare, 0, len(entries))
	sellerShare := price
	for _, e := range entries {
		share := e.Percentage.OfAmount(price)
		shares = append(shares, RoyaltyShare{
			Beneficiary: e.Beneficiary,
			Share:       share,
		})
		sellerShare, _ = sellerShare.Sub(share)
	}
	return shares, sellerShare
}

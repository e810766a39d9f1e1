package auction

import (
	"time"

	"github.com/lotmarket/goauction/domain"
	"golang.org/x/xerrors"
)

// StartKind tags the lot activation variant
type StartKind uint8

const (
	// StartImmediate activates the lot at creation time
	StartImmediate StartKind = iota
	// StartAtTime activates the lot at an absolute timestamp
	StartAtTime
)

// StartPolicy is when bidding opens
type StartPolicy struct {
	Kind StartKind `json:"kind" bson:"kind"`
	At   time.Time `json:"at,omitempty" bson:"at,omitempty"`
}

// FinalizationKind tags the deadline variant
type FinalizationKind uint8

const (
	// FinalizeAfterDuration ends the auction a fixed duration after start
	FinalizeAfterDuration FinalizationKind = iota
	// FinalizeOnBidTimeout ends the auction once the given duration passes
	// without a new bid
	FinalizeOnBidTimeout
)

// FinalizationPolicy is how the deadline is derived
type FinalizationPolicy struct {
	Kind     FinalizationKind `json:"kind" bson:"kind"`
	Duration time.Duration    `json:"duration" bson:"duration"`
}

// IncrementKind tags the minimum-raise variant
type IncrementKind uint8

const (
	// IncrementFlat requires raising by a fixed amount
	IncrementFlat IncrementKind = iota
	// IncrementPercentage requires raising by a percentage of the current bid
	IncrementPercentage
)

// IncrementPolicy is the minimum raise over the current bid
type IncrementPolicy struct {
	Kind       IncrementKind     `json:"kind" bson:"kind"`
	Flat       domain.Amount     `json:"flat,omitempty" bson:"flat,omitempty"`
	Percentage domain.Percentage `json:"percentage,omitempty" bson:"percentage,omitempty"`
}

// LotPolicy is the bidding configuration captured at creation, immutable
// for the lot's lifetime. Buyout nil means buyout is not allowed.
type LotPolicy struct {
	Start        StartPolicy        `json:"start" bson:"start"`
	Finalization FinalizationPolicy `json:"finalization" bson:"finalization"`
	Reserve      domain.Amount      `json:"reserve" bson:"reserve"`
	Increment    IncrementPolicy    `json:"increment" bson:"increment"`
	Buyout       *domain.Amount     `json:"buyout,omitempty" bson:"buyout,omitempty"`
}

// Validate checks variant tags so later switches can stay exhaustive
func (p *LotPolicy) Validate() error {
	switch p.Start.Kind {
	case StartImmediate, StartAtTime:
	default:
		return xerrors.Errorf("start kind %d: %w", p.Start.Kind, domain.ErrBadParamInput)
	}
	switch p.Finalization.Kind {
	case FinalizeAfterDuration, FinalizeOnBidTimeout:
	default:
		return xerrors.Errorf("finalization kind %d: %w", p.Finalization.Kind, domain.ErrBadParamInput)
	}
	if p.Finalization.Duration < 0 {
		return xerrors.Errorf("negative finalization duration: %w", domain.ErrBadParamInput)
	}
	switch p.Increment.Kind {
	case IncrementFlat, IncrementPercentage:
	default:
		return xerrors.Errorf("increment kind %d: %w", p.Increment.Kind, domain.ErrBadParamInput)
	}
	return nil
}

// MinimumNextBid computes the lowest acceptable bid over the current one.
// With a zero increment an amount equal to the current bid satisfies the
// floor and displaces it; this tie-displacement is intentional and must be
// preserved.
func (p *LotPolicy) MinimumNextBid(current domain.Amount) domain.Amount {
	switch p.Increment.Kind {
	case IncrementFlat:
		return current.AddSat(p.Increment.Flat)
	case IncrementPercentage:
		return current.AddSat(p.Increment.Percentage.OfAmount(current))
	default:
		// unreachable for validated policies
		return current
	}
}

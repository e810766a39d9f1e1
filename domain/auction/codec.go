package auction

import (
	"encoding/binary"
	"time"

	"github.com/lotmarket/goauction/domain"
	"golang.org/x/xerrors"
)

// Binary shapes of call parameters and log entries. All integers are
// little-endian u64: amounts count smallest currency units, percentages
// count micro-percent, timestamps and durations count milliseconds.

const (
	addressLen = 20

	startTagImmediate = 0
	startTagAbsolute  = 1

	finalizationTagDuration   = 0
	finalizationTagBidTimeout = 1

	incrementTagFlat       = 0
	incrementTagPercentage = 1

	buyoutTagDisallowed = 0
	buyoutTagAllowed    = 1
)

type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() (byte, error) {
	if r.off+1 > len(r.buf) {
		return 0, xerrors.Errorf("truncated payload: %w", domain.ErrBadParamInput)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) u64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, xerrors.Errorf("truncated payload: %w", domain.ErrBadParamInput)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, xerrors.Errorf("truncated payload: %w", domain.ErrBadParamInput)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) done() error {
	if r.off != len(r.buf) {
		return xerrors.Errorf("%d trailing bytes: %w", len(r.buf)-r.off, domain.ErrBadParamInput)
	}
	return nil
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func millisToTime(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

func timeToMillis(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}

// EncodePolicy serializes a lot policy into the auxiliary-data shape
// carried by the auction-triggering token transfer
func EncodePolicy(p *LotPolicy) []byte {
	b := make([]byte, 0, 44)
	switch p.Start.Kind {
	case StartAtTime:
		b = append(b, startTagAbsolute)
		b = appendU64(b, timeToMillis(p.Start.At))
	default:
		b = append(b, startTagImmediate)
	}
	switch p.Finalization.Kind {
	case FinalizeOnBidTimeout:
		b = append(b, finalizationTagBidTimeout)
	default:
		b = append(b, finalizationTagDuration)
	}
	b = appendU64(b, uint64(p.Finalization.Duration/time.Millisecond))
	b = appendU64(b, uint64(p.Reserve))
	switch p.Increment.Kind {
	case IncrementPercentage:
		b = append(b, incrementTagPercentage)
		b = appendU64(b, uint64(p.Increment.Percentage))
	default:
		b = append(b, incrementTagFlat)
		b = appendU64(b, uint64(p.Increment.Flat))
	}
	if p.Buyout != nil {
		b = append(b, buyoutTagAllowed)
		b = appendU64(b, uint64(*p.Buyout))
	} else {
		b = append(b, buyoutTagDisallowed)
	}
	return b
}

// DecodePolicy parses the auxiliary-data shape back into a lot policy.
// The whole buffer must be consumed.
func DecodePolicy(data []byte) (*LotPolicy, error) {
	r := &reader{buf: data}
	p := &LotPolicy{}

	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case startTagImmediate:
		p.Start.Kind = StartImmediate
	case startTagAbsolute:
		p.Start.Kind = StartAtTime
		ms, err := r.u64()
		if err != nil {
			return nil, err
		}
		p.Start.At = millisToTime(ms)
	default:
		return nil, xerrors.Errorf("start tag %d: %w", tag, domain.ErrBadParamInput)
	}

	if tag, err = r.u8(); err != nil {
		return nil, err
	}
	switch tag {
	case finalizationTagDuration:
		p.Finalization.Kind = FinalizeAfterDuration
	case finalizationTagBidTimeout:
		p.Finalization.Kind = FinalizeOnBidTimeout
	default:
		return nil, xerrors.Errorf("finalization tag %d: %w", tag, domain.ErrBadParamInput)
	}
	ms, err := r.u64()
	if err != nil {
		return nil, err
	}
	p.Finalization.Duration = time.Duration(ms) * time.Millisecond

	reserve, err := r.u64()
	if err != nil {
		return nil, err
	}
	p.Reserve = domain.Amount(reserve)

	if tag, err = r.u8(); err != nil {
		return nil, err
	}
	v, err := r.u64()
	if err != nil {
		return nil, err
	}
	switch tag {
	case incrementTagFlat:
		p.Increment.Kind = IncrementFlat
		p.Increment.Flat = domain.Amount(v)
	case incrementTagPercentage:
		p.Increment.Kind = IncrementPercentage
		p.Increment.Percentage = domain.Percentage(v)
	default:
		return nil, xerrors.Errorf("increment tag %d: %w", tag, domain.ErrBadParamInput)
	}

	if tag, err = r.u8(); err != nil {
		return nil, err
	}
	switch tag {
	case buyoutTagDisallowed:
	case buyoutTagAllowed:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		buyout := domain.Amount(v)
		p.Buyout = &buyout
	default:
		return nil, xerrors.Errorf("buyout tag %d: %w", tag, domain.ErrBadParamInput)
	}

	if err := r.done(); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodeTokenRef serializes a token reference: contract address followed
// by a length-prefixed identifier
func EncodeTokenRef(t TokenRef) ([]byte, error) {
	id, err := t.Id.Bytes()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, addressLen+1+len(id))
	b = append(b, t.Contract.Bytes()...)
	b = append(b, byte(len(id)))
	b = append(b, id...)
	return b, nil
}

// DecodeTokenRef parses a token reference and returns the remaining bytes
func DecodeTokenRef(data []byte) (TokenRef, []byte, error) {
	r := &reader{buf: data}
	contract, err := r.bytes(addressLen)
	if err != nil {
		return TokenRef{}, nil, err
	}
	n, err := r.u8()
	if err != nil {
		return TokenRef{}, nil, err
	}
	id, err := r.bytes(int(n))
	if err != nil {
		return TokenRef{}, nil, err
	}
	return TokenRef{
		Contract: domain.AddressFromBytes(contract),
		Id:       domain.TokenIdFromBytes(id),
	}, data[r.off:], nil
}

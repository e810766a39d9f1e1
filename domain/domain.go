package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/xerrors"
)

// Address is a lowercase hex account or contract address
type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

func (a Address) IsValid() bool {
	return common.IsHexAddress(string(a))
}

// Bytes returns the 20-byte form used by the binary codec
func (a Address) Bytes() []byte {
	return common.HexToAddress(string(a)).Bytes()
}

func AddressFromBytes(b []byte) Address {
	return Address(strings.ToLower(common.BytesToAddress(b).Hex()))
}

// TokenId is the 0x-prefixed hex form of a token identifier byte buffer.
// Identifiers are opaque and at most MaxTokenIdLen bytes long.
type TokenId string

const MaxTokenIdLen = 255

func (i TokenId) String() string {
	return string(i)
}

func (i TokenId) Bytes() ([]byte, error) {
	b, err := hexutil.Decode(string(i))
	if err != nil {
		return nil, xerrors.Errorf("invalid token id %s: %w", i, err)
	}
	if len(b) > MaxTokenIdLen {
		return nil, xerrors.Errorf("token id over %d bytes", MaxTokenIdLen)
	}
	return b, nil
}

func TokenIdFromBytes(b []byte) TokenId {
	return TokenId(hexutil.Encode(b))
}

// Table is a mongo collection name
type Table string

const (
	TableAuctionEvents Table = "auction_events"
)

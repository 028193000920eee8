package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"ethLogs/internal/codec"
)

// EventKind tags the variant of a decoded pool event.
type EventKind string

const (
	KindSwap  EventKind = "swap"
	KindMint  EventKind = "mint"
	KindBurn  EventKind = "burn"
	KindFlash EventKind = "flash"
	KindOther EventKind = "other"
)

// Event is a decoded pool log payload. The set of implementations is closed to this package.
type Event interface {
	Kind() EventKind
	isEvent()
}

// SwapEvent is the decoded Swap event payload.
type SwapEvent struct {
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *uint256.Int
	Liquidity    codec.Uint128
	Tick         int32
}

// MintEvent is the decoded Mint event payload.
type MintEvent struct {
	Sender    common.Address
	Owner     common.Address
	TickLower int32
	TickUpper int32
	Amount    codec.Uint128
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// BurnEvent is the decoded Burn event payload.
type BurnEvent struct {
	Owner     common.Address
	TickLower int32
	TickUpper int32
	Amount    codec.Uint128
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// FlashEvent is the decoded Flash event payload.
type FlashEvent struct {
	Sender    common.Address
	Recipient common.Address
	Amount0   *uint256.Int
	Amount1   *uint256.Int
	Paid0     *uint256.Int
	Paid1     *uint256.Int
}

// OtherEvent is any pool log outside the four persisted variants. Name is empty when
// topic0 is not part of the pool ABI.
type OtherEvent struct {
	Name   string
	Topic0 common.Hash
}

func (SwapEvent) Kind() EventKind  { return KindSwap }
func (MintEvent) Kind() EventKind  { return KindMint }
func (BurnEvent) Kind() EventKind  { return KindBurn }
func (FlashEvent) Kind() EventKind { return KindFlash }
func (OtherEvent) Kind() EventKind { return KindOther }

func (SwapEvent) isEvent()  {}
func (MintEvent) isEvent()  {}
func (BurnEvent) isEvent()  {}
func (FlashEvent) isEvent() {}
func (OtherEvent) isEvent() {}

// LogItem pairs a decoded event with the envelope of the log it came from.
type LogItem struct {
	Envelope LogEnvelope
	Event    Event
}

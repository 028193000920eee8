package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"ethLogs/internal/codec"
	"ethLogs/internal/model"
)

// V3PoolDecoder decodes Uniswap V3 pool events.
type V3PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[common.Hash]string
}

// NewV3PoolDecoder builds a V3 pool decoder.
func NewV3PoolDecoder() (*V3PoolDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	topicToName := make(map[common.Hash]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[event.ID] = name
	}

	return &V3PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// Decode converts a raw log into a model.Event.
func (d *V3PoolDecoder) Decode(log types.Log) (model.Event, error) {
	if len(log.Topics) == 0 {
		return model.OtherEvent{}, nil
	}
	topic0 := log.Topics[0]
	name := d.topicToName[topic0]

	switch name {
	case "Swap":
		return d.decodeSwap(log)
	case "Mint":
		return d.decodeMint(log)
	case "Burn":
		return d.decodeBurn(log)
	case "Flash":
		return d.decodeFlash(log)
	default:
		return model.OtherEvent{Name: name, Topic0: topic0}, nil
	}
}

func (d *V3PoolDecoder) decodeSwap(log types.Log) (model.SwapEvent, error) {
	event := d.poolABI.Events["Swap"]

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.SwapEvent{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 5)
	if err != nil {
		return model.SwapEvent{}, err
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("amount1: %w", err)
	}
	sqrtPrice, err := asUint256(values[2])
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("sqrtPriceX96: %w", err)
	}
	liquidity, err := asUint128(values[3])
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("liquidity: %w", err)
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.SwapEvent{}, err
	}

	return model.SwapEvent{
		Sender:       indexed.Sender,
		Recipient:    indexed.Recipient,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         tick,
	}, nil
}

func (d *V3PoolDecoder) decodeMint(log types.Log) (model.MintEvent, error) {
	event := d.poolABI.Events["Mint"]

	var indexed positionTopics
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.MintEvent{}, err
	}
	tickLower, tickUpper, err := indexed.ticks()
	if err != nil {
		return model.MintEvent{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 4)
	if err != nil {
		return model.MintEvent{}, err
	}

	sender, err := asAddress(values[0])
	if err != nil {
		return model.MintEvent{}, fmt.Errorf("sender: %w", err)
	}
	amount, amount0, amount1, err := positionAmounts(values[1:])
	if err != nil {
		return model.MintEvent{}, err
	}

	return model.MintEvent{
		Sender:    sender,
		Owner:     indexed.Owner,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount,
		Amount0:   amount0,
		Amount1:   amount1,
	}, nil
}

func (d *V3PoolDecoder) decodeBurn(log types.Log) (model.BurnEvent, error) {
	event := d.poolABI.Events["Burn"]

	var indexed positionTopics
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.BurnEvent{}, err
	}
	tickLower, tickUpper, err := indexed.ticks()
	if err != nil {
		return model.BurnEvent{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return model.BurnEvent{}, err
	}
	amount, amount0, amount1, err := positionAmounts(values)
	if err != nil {
		return model.BurnEvent{}, err
	}

	return model.BurnEvent{
		Owner:     indexed.Owner,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount,
		Amount0:   amount0,
		Amount1:   amount1,
	}, nil
}

func (d *V3PoolDecoder) decodeFlash(log types.Log) (model.FlashEvent, error) {
	event := d.poolABI.Events["Flash"]

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.FlashEvent{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 4)
	if err != nil {
		return model.FlashEvent{}, err
	}

	amounts := make([]*uint256.Int, 0, 4)
	for i, name := range []string{"amount0", "amount1", "paid0", "paid1"} {
		v, err := asUint256(values[i])
		if err != nil {
			return model.FlashEvent{}, fmt.Errorf("%s: %w", name, err)
		}
		amounts = append(amounts, v)
	}

	return model.FlashEvent{
		Sender:    indexed.Sender,
		Recipient: indexed.Recipient,
		Amount0:   amounts[0],
		Amount1:   amounts[1],
		Paid0:     amounts[2],
		Paid1:     amounts[3],
	}, nil
}

// positionTopics are the indexed fields shared by Mint and Burn.
type positionTopics struct {
	Owner     common.Address
	TickLower *big.Int
	TickUpper *big.Int
}

func (p positionTopics) ticks() (int32, int32, error) {
	lower, err := int24FromBig(p.TickLower)
	if err != nil {
		return 0, 0, fmt.Errorf("tickLower: %w", err)
	}
	upper, err := int24FromBig(p.TickUpper)
	if err != nil {
		return 0, 0, fmt.Errorf("tickUpper: %w", err)
	}
	return lower, upper, nil
}

// positionAmounts reads the (uint128 amount, uint256 amount0, uint256 amount1) tail of Mint and Burn.
func positionAmounts(values []interface{}) (codec.Uint128, *uint256.Int, *uint256.Int, error) {
	amount, err := asUint128(values[0])
	if err != nil {
		return codec.Uint128{}, nil, nil, fmt.Errorf("amount: %w", err)
	}
	amount0, err := asUint256(values[1])
	if err != nil {
		return codec.Uint128{}, nil, nil, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := asUint256(values[2])
	if err != nil {
		return codec.Uint128{}, nil, nil, fmt.Errorf("amount1: %w", err)
	}
	return amount, amount0, amount1, nil
}

func parseIndexed(event abi.Event, topics []common.Hash, out interface{}) error {
	args := indexedArguments(event.Inputs)
	if len(topics) != len(args)+1 {
		return fmt.Errorf("%s: expected %d topics, got %d", event.Name, len(args)+1, len(topics))
	}
	if err := abi.ParseTopics(out, args, topics[1:]); err != nil {
		return fmt.Errorf("%s: parse topics: %w", event.Name, err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte, want int) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestEventKinds(t *testing.T) {
	cases := []struct {
		event Event
		want  EventKind
	}{
		{SwapEvent{}, KindSwap},
		{MintEvent{}, KindMint},
		{BurnEvent{}, KindBurn},
		{FlashEvent{}, KindFlash},
		{OtherEvent{Name: "Collect"}, KindOther},
	}

	for _, tc := range cases {
		if got := tc.event.Kind(); got != tc.want {
			t.Fatalf("kind mismatch for %T: %s != %s", tc.event, got, tc.want)
		}
	}
}

func TestEnvelopeFromLog(t *testing.T) {
	log := types.Log{
		Address:     common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"),
		BlockNumber: 19000000,
		TxHash:      common.HexToHash("0xdef456"),
		Index:       12,
	}

	env := EnvelopeFromLog(log)
	if env.Address != log.Address || env.BlockNumber != log.BlockNumber || env.TxHash != log.TxHash {
		t.Fatalf("envelope mismatch: %+v", env)
	}
	if env.LogIndex != 12 {
		t.Fatalf("log index mismatch: %d", env.LogIndex)
	}
	if !env.Timestamp.IsZero() {
		t.Fatalf("timestamp should be left to the store")
	}
}

func TestPoolInfoPair(t *testing.T) {
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	info := PoolInfo{
		Token0: TokenInfo{Symbol: "USDC", Decimals: 6},
		Token1: TokenInfo{Address: weth},
	}

	if got := info.Pair(); got != "USDC/"+weth.Hex() {
		t.Fatalf("pair mismatch: %s", got)
	}
}

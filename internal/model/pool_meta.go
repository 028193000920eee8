package model

import "github.com/ethereum/go-ethereum/common"

// PoolInfo is the immutable configuration of the indexed pool, read once at start-up.
type PoolInfo struct {
	Address     common.Address
	Token0      TokenInfo
	Token1      TokenInfo
	Fee         uint32
	TickSpacing int32
}

// TokenInfo holds the ERC20 fields worth logging for a pool token.
type TokenInfo struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Pair renders the pool as "TOKEN0/TOKEN1", falling back to addresses when symbols are unknown.
func (p PoolInfo) Pair() string {
	return p.Token0.label() + "/" + p.Token1.label()
}

func (t TokenInfo) label() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PositionInfo is the subset of positions(tokenId) the staking flow reads.
type PositionInfo struct {
	Token0    common.Address
	Token1    common.Address
	Fee       uint32
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
}

// PositionManager is a handle on the NFT position manager contract.
type PositionManager struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewPositionManager binds the position manager at address.
func NewPositionManager(address common.Address, backend bind.ContractBackend) (*PositionManager, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	return &PositionManager{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the contract address.
func (m *PositionManager) Address() common.Address {
	return m.address
}

// Positions reads the canonical on-chain state of a position.
func (m *PositionManager) Positions(ctx context.Context, tokenID uint64) (PositionInfo, error) {
	var out []interface{}
	if err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "positions", tokenIDBig(tokenID)); err != nil {
		return PositionInfo{}, fmt.Errorf("call positions: %w", err)
	}
	return decodePositionInfo(out)
}

func decodePositionInfo(values []interface{}) (PositionInfo, error) {
	if len(values) < 8 {
		return PositionInfo{}, fmt.Errorf("positions: unexpected output length %d", len(values))
	}

	token0, err := asAddress(values[2])
	if err != nil {
		return PositionInfo{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := asAddress(values[3])
	if err != nil {
		return PositionInfo{}, fmt.Errorf("token1: %w", err)
	}
	fee, err := asBigInt(values[4])
	if err != nil {
		return PositionInfo{}, fmt.Errorf("fee: %w", err)
	}
	tickLowerInt, err := asBigInt(values[5])
	if err != nil {
		return PositionInfo{}, fmt.Errorf("tick lower: %w", err)
	}
	tickLower, err := int24FromBig(tickLowerInt)
	if err != nil {
		return PositionInfo{}, fmt.Errorf("tick lower: %w", err)
	}
	tickUpperInt, err := asBigInt(values[6])
	if err != nil {
		return PositionInfo{}, fmt.Errorf("tick upper: %w", err)
	}
	tickUpper, err := int24FromBig(tickUpperInt)
	if err != nil {
		return PositionInfo{}, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := asBigInt(values[7])
	if err != nil {
		return PositionInfo{}, fmt.Errorf("liquidity: %w", err)
	}

	return PositionInfo{
		Token0:    token0,
		Token1:    token1,
		Fee:       uint32(fee.Uint64()),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity,
	}, nil
}

// GetApproved returns the address approved to move tokenID.
func (m *PositionManager) GetApproved(ctx context.Context, tokenID uint64) (common.Address, error) {
	var out []interface{}
	if err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getApproved", tokenIDBig(tokenID)); err != nil {
		return common.Address{}, fmt.Errorf("call getApproved: %w", err)
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("getApproved: empty output")
	}
	return asAddress(out[0])
}

// Approve grants spender transfer rights over tokenID.
func (m *PositionManager) Approve(opts *bind.TransactOpts, spender common.Address, tokenID uint64) (*types.Transaction, error) {
	tx, err := m.contract.Transact(opts, "approve", spender, tokenIDBig(tokenID))
	if err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	return tx, nil
}

// SafeTransferFrom moves tokenID from one owner to another.
func (m *PositionManager) SafeTransferFrom(opts *bind.TransactOpts, from, to common.Address, tokenID uint64) (*types.Transaction, error) {
	tx, err := m.contract.Transact(opts, "safeTransferFrom", from, to, tokenIDBig(tokenID))
	if err != nil {
		return nil, fmt.Errorf("safe transfer from: %w", err)
	}
	return tx, nil
}

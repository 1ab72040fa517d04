package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"liquidityStaker/internal/config"
)

var (
	// ErrUnsupportedNetwork means the RPC's chain is not in the network table,
	// or does not match the configured network.
	ErrUnsupportedNetwork = errors.New("unsupported network")
	// ErrReadOnly is returned for signing requests on a watch-only session.
	ErrReadOnly = errors.New("wallet session is watch-only")
)

// ChainIDReader reports the chain id of an RPC endpoint.
type ChainIDReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
}

// Options selects the account and, optionally, the expected network.
type Options struct {
	Network    string
	PrivateKey string
	Address    string
	Logger     *zap.Logger
}

// Session is a connected account on one network.
type Session struct {
	address common.Address
	chainID *big.Int
	network config.NetworkConfig
	key     *ecdsa.PrivateKey
}

// Open resolves the network reported by client and the account from opts.
// Without a private key or address the session is disconnected.
func Open(ctx context.Context, client ChainIDReader, networks map[string]config.NetworkConfig, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	network, err := resolveNetwork(networks, opts.Network, chainID)
	if err != nil {
		return nil, err
	}

	s := &Session{chainID: chainID, network: network}

	if raw := strings.TrimSpace(opts.PrivateKey); raw != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		s.key = key
		s.address = crypto.PubkeyToAddress(key.PublicKey)
	}

	if raw := strings.TrimSpace(opts.Address); raw != "" {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		addr := common.HexToAddress(raw)
		if s.key != nil && addr != s.address {
			return nil, fmt.Errorf("address %s does not match private key account %s", addr.Hex(), s.address.Hex())
		}
		s.address = addr
	}

	logger.Info("wallet session opened",
		zap.String("network", network.Name),
		zap.String("chain_id", chainID.String()),
		zap.String("address", s.address.Hex()),
		zap.Bool("watch_only", s.key == nil),
		zap.Bool("enabled", network.Enabled()),
	)
	return s, nil
}

func resolveNetwork(networks map[string]config.NetworkConfig, name string, chainID *big.Int) (config.NetworkConfig, error) {
	if name == "" {
		if !chainID.IsUint64() {
			return config.NetworkConfig{}, fmt.Errorf("%w: chain %s", ErrUnsupportedNetwork, chainID)
		}
		network, ok := config.ByChainID(networks, chainID.Uint64())
		if !ok {
			return config.NetworkConfig{}, fmt.Errorf("%w: chain %s", ErrUnsupportedNetwork, chainID)
		}
		return network, nil
	}

	network, ok := networks[name]
	if !ok {
		return config.NetworkConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, name)
	}
	network.Name = name
	if !chainID.IsUint64() || network.ChainID != chainID.Uint64() {
		return config.NetworkConfig{}, fmt.Errorf("%w: %s expects chain %d, rpc reports %s", ErrUnsupportedNetwork, name, network.ChainID, chainID)
	}
	return network, nil
}

// Address is the connected account, or the zero address when disconnected.
func (s *Session) Address() common.Address {
	return s.address
}

// Connected reports whether an account is present.
func (s *Session) Connected() bool {
	return s.address != (common.Address{})
}

// Network is the resolved network row.
func (s *Session) Network() config.NetworkConfig {
	return s.network
}

func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// CanSign reports whether the session holds a key.
func (s *Session) CanSign() bool {
	return s.key != nil
}

// TransactOpts returns signing options bound to ctx.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if s.key == nil {
		return nil, ErrReadOnly
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

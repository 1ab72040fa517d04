package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/incentive"
	"liquidityStaker/internal/model"
	"liquidityStaker/internal/subgraph"
)

var (
	marToken  = common.HexToAddress("0x4343d80ef5808490a079aa0907ffdc9373c7a4dd")
	usdcToken = common.HexToAddress("0x00000000000000000000000000000000000000c6")
	testPool  = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

type fakeToken struct {
	symbol   string
	decimals uint8
}

type fakeCaller struct {
	mu     sync.Mutex
	calls  int
	tokens map[common.Address]fakeToken
}

func (f *fakeCaller) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	tok, ok := f.tokens[*msg.To]
	if !ok || len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}
	switch hex.EncodeToString(msg.Data[:4]) {
	case "313ce567":
		return packOutput("uint8", tok.decimals), nil
	case "95d89b41":
		return packOutput("string", tok.symbol), nil
	}
	return nil, errors.New("execution reverted")
}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func packOutput(typ string, value any) []byte {
	ty, err := abi.NewType(typ, "", nil)
	if err != nil {
		panic(err)
	}
	out, err := abi.Arguments{{Type: ty}}.Pack(value)
	if err != nil {
		panic(err)
	}
	return out
}

func newTestApp() (*app, *fakeCaller) {
	caller := &fakeCaller{tokens: map[common.Address]fakeToken{
		marToken:  {symbol: "MAR", decimals: 18},
		usdcToken: {symbol: "USDC", decimals: 6},
	}}
	return &app{
		logger: zap.NewNop(),
		tokens: contracts.NewTokenMetaCache(),
		caller: caller,
		reward: model.TokenMeta{Address: marToken.Hex(), Decimals: 18},
	}, caller
}

type fakeIncentiveSource []subgraph.Incentive

func (f fakeIncentiveSource) Incentives(context.Context, common.Address) ([]subgraph.Incentive, error) {
	return f, nil
}

func graphIncentive(id string, rewardToken common.Address, reward int64) subgraph.Incentive {
	inc := subgraph.Incentive{
		ID:          id,
		RewardToken: rewardToken.Hex(),
		Pool:        testPool.Hex(),
		Refundee:    testPool.Hex(),
	}
	inc.StartTime.SetInt64(1700000000)
	inc.EndTime.SetInt64(1710000000)
	inc.Reward.SetInt64(reward)
	return inc
}

func TestTokenMetaIsCachedPerToken(t *testing.T) {
	a, caller := newTestApp()
	ctx := context.Background()

	meta := a.tokenMeta(ctx, usdcToken)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, uint8(6), meta.Decimals)
	calls := caller.callCount()

	again := a.tokenMeta(ctx, usdcToken)
	assert.Equal(t, meta, again)
	assert.Equal(t, calls, caller.callCount(), "second lookup is served from cache")

	unknown := a.tokenMeta(ctx, testPool)
	assert.Equal(t, uint8(18), unknown.Decimals)
	assert.Empty(t, unknown.Symbol)
}

func TestCurrentRewardMetaFollowsSelectedIncentive(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()

	assert.Equal(t, a.reward, a.currentRewardMeta(ctx), "no registry falls back to the network reward token")

	source := fakeIncentiveSource{graphIncentive("0x02", usdcToken, 1), graphIncentive("0x01", marToken, 1)}
	a.registry = incentive.NewRegistry(func(string) incentive.Source { return source }, nil)
	a.registry.Reload(ctx, "mainnet", marToken, "http://graph.local")
	assert.Equal(t, "USDC", a.currentRewardMeta(ctx).Symbol)

	a.registry.SetCurrent("0x01")
	assert.Equal(t, "MAR", a.currentRewardMeta(ctx).Symbol)
}

func TestRenderIncentivesResolvesEachRewardToken(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()

	list := []model.Incentive{}
	for _, raw := range []subgraph.Incentive{
		graphIncentive("0x02", usdcToken, 2_500_000),
		graphIncentive("0x01", marToken, 1_000_000_000_000_000_000),
	} {
		inc, err := raw.Model()
		require.NoError(t, err)
		list = append(list, inc)
	}

	var out bytes.Buffer
	renderIncentives(&out, list, "0x02", func(token common.Address) model.TokenMeta {
		return a.tokenMeta(ctx, token)
	})
	assert.Contains(t, out.String(), "2.5000 USDC")
	assert.Contains(t, out.String(), "1.0000 MAR")
}

func rpcServer(t *testing.T, chainID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if req.Method == "eth_chainId" {
			resp["result"] = chainID
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWatchIdlesOnUnsupportedChain(t *testing.T) {
	srv := rpcServer(t, "0x2a")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	root := newRootCmd()
	root.SetArgs([]string{"watch", "--rpc", srv.URL, "--address", testPool.Hex(), "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(ctx))
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded, "watch waits for shutdown instead of exiting")
}

func TestCommandsAreNoOpsOnUnsupportedChain(t *testing.T) {
	srv := rpcServer(t, "0x2a")
	for _, args := range [][]string{
		{"positions", "--address", testPool.Hex()},
		{"incentives"},
		{"claim"},
		{"stake", "7"},
	} {
		root := newRootCmd()
		root.SetArgs(append(args, "--rpc", srv.URL, "--log-level", "error"))
		assert.NoError(t, root.ExecuteContext(context.Background()), "%v", args)
	}
}

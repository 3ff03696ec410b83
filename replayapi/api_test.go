package replayapi

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sieniven/xlayer-replay/cache"
	"github.com/sieniven/xlayer-replay/identity"
	"github.com/sieniven/xlayer-replay/metrics"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/subscription"
	"github.com/sieniven/xlayer-replay/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	signer       = libcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	contract     = libcommon.HexToAddress("0x2222222222222222222222222222222222222222")
	sender       = libcommon.HexToAddress("0x8f8e2d6cf621f30e9a11309d6a56a876281fd534")
	receiver     = libcommon.HexToAddress("0xb94f5374fce5edbc8e2a8697c15331677e6ebf0b")
	profitHash   = libcommon.HexToHash("0x01")
	pendingHash  = libcommon.HexToHash("0x02")
	lossHash     = libcommon.HexToHash("0x03")
	brokenHash   = libcommon.HexToHash("0x04")
	unknownHash  = libcommon.HexToHash("0xff")
	errTransport = errors.New("connection reset by peer")
)

type fakeClient struct {
	traces atomic.Int32
}

func (c *fakeClient) TransactionByHash(_ context.Context, hash libcommon.Hash) (*types.Transaction, error) {
	to := receiver
	tx := &types.Transaction{Hash: hash, From: sender, To: &to, Nonce: 5}
	switch hash {
	case profitHash, lossHash:
		block := hexutil.Uint64(100)
		tx.BlockNumber = &block
	case pendingHash:
	case brokenHash:
		return nil, errTransport
	default:
		return nil, ethereum.NotFound
	}
	return tx, nil
}

func (c *fakeClient) TraceCall(_ context.Context, tx *types.Transaction, _ []types.TraceKind, _ rpc.BlockNumber) (*types.BlockTrace, error) {
	c.traces.Add(1)
	to := receiver
	balanceTo := uint64(150)
	if tx.Hash == lossHash {
		balanceTo = 90
	}
	return &types.BlockTrace{
		Trace: []types.TraceEntry{{
			Type: types.CALL_TYP,
			Action: types.TraceAction{
				CallType: types.CALL_TYP,
				From:     sender,
				To:       &to,
				Input:    append([]byte{0xaa}, sender.Bytes()...),
				Value:    (*hexutil.Big)(big.NewInt(0)),
			},
			TraceAddress: []uint64{},
		}},
		StateDiff: types.StateDiff{
			sender: {
				Balance: types.Changed(*uint256.NewInt(100), *uint256.NewInt(balanceTo)),
				Nonce:   types.Changed(hexutil.Uint64(5), hexutil.Uint64(6)),
			},
		},
	}, nil
}

func quietLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func newTestAPI(t *testing.T, opts ...Option) (*ReplayAPIImpl, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	sim := simulate.NewSimulator(client, identity.AddressIdentity(signer), simulate.SimulateConfig{ContractOverride: &contract}, simulate.WithLogger(quietLogger()))
	return NewReplayAPI(sim, append([]Option{WithLogger(quietLogger())}, opts...)...), client
}

func TestSimulate(t *testing.T) {
	api, _ := newTestAPI(t)
	ctx := context.Background()

	res, err := api.Simulate(ctx, profitHash, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, profitHash, res.Hash)
	assert.Equal(t, sender, res.Sender)
	assert.Equal(t, rpc.BlockNumber(100), res.Block)
	assert.Equal(t, int64(50), res.Profit.ToInt().Int64())
	assert.Equal(t, hexutil.Uint(1), res.Calls)
	assert.True(t, res.Complete)
	call := res.Plan[0].Calls[0]
	assert.Equal(t, signer, call.From)
	assert.Equal(t, append([]byte{0xaa}, contract.Bytes()...), []byte(call.Data))

	rewind := true
	res, err = api.Simulate(ctx, profitHash, &rewind)
	require.NoError(t, err)
	assert.Equal(t, rpc.BlockNumber(99), res.Block)

	res, err = api.Simulate(ctx, lossHash, nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = api.Simulate(ctx, unknownHash, nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = api.Simulate(ctx, brokenHash, nil)
	assert.ErrorIs(t, err, errTransport)
}

func TestSimulatePlanCache(t *testing.T) {
	planCache, err := cache.NewPlanCache(16)
	require.NoError(t, err)
	api, client := newTestAPI(t, WithPlanCache(planCache))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := api.Simulate(ctx, profitHash, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), client.traces.Load())

	// Pending transactions are always re-simulated.
	for i := 0; i < 2; i++ {
		_, err := api.Simulate(ctx, pendingHash, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), client.traces.Load())
	assert.Equal(t, 1, planCache.Size())
}

func TestSimulateMany(t *testing.T) {
	api, _ := newTestAPI(t, WithWorkers(2))
	ctx := context.Background()

	hashes := []libcommon.Hash{profitHash, lossHash, unknownHash, pendingHash}
	results, err := api.SimulateMany(ctx, hashes, nil)
	require.NoError(t, err)
	require.Len(t, results, len(hashes))
	assert.Equal(t, profitHash, results[0].Hash)
	assert.Nil(t, results[1])
	assert.Nil(t, results[2])
	assert.Equal(t, pendingHash, results[3].Hash)
	assert.Equal(t, rpc.LatestBlockNumber, results[3].Block)

	_, err = api.SimulateMany(ctx, []libcommon.Hash{profitHash, brokenHash}, nil)
	assert.ErrorIs(t, err, errTransport)

	small, _ := newTestAPI(t, WithMaxBatchSize(1))
	_, err = small.SimulateMany(ctx, hashes, nil)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestNotEnabled(t *testing.T) {
	api := NewReplayAPI(nil)
	ctx := context.Background()

	_, err := api.Simulate(ctx, profitHash, nil)
	assert.ErrorIs(t, err, ErrReplayNotEnabled)
	_, err = api.SimulateMany(ctx, []libcommon.Hash{profitHash}, nil)
	assert.ErrorIs(t, err, ErrReplayNotEnabled)
	_, err = api.Config(ctx)
	assert.ErrorIs(t, err, ErrReplayNotEnabled)
}

func TestConfig(t *testing.T) {
	api, _ := newTestAPI(t, WithRewind(true))
	cfg, err := api.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signer, cfg.Signer)
	assert.Equal(t, contract, cfg.Substitute)
	assert.True(t, cfg.Rewind)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	require.NoError(t, err)
	api, _ := newTestAPI(t, WithMetrics(collector))
	ctx := context.Background()

	_, _ = api.Simulate(ctx, profitHash, nil)
	_, _ = api.Simulate(ctx, lossHash, nil)
	_, _ = api.Simulate(ctx, brokenHash, nil)

	count, err := testutil.GatherAndCount(registry, "replay_simulations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRPCService(t *testing.T) {
	api, _ := newTestAPI(t)
	server := rpc.NewServer()
	require.NoError(t, Register(server, api))
	defer server.Stop()

	client := rpc.DialInProc(server)
	defer client.Close()
	ctx := context.Background()

	var res *SimulationResult
	require.NoError(t, client.CallContext(ctx, &res, "replay_simulate", profitHash, true))
	require.NotNil(t, res)
	assert.Equal(t, rpc.BlockNumber(99), res.Block)
	assert.Equal(t, int64(50), res.Profit.ToInt().Int64())
	require.Len(t, res.Plan, 1)
	assert.Equal(t, signer, res.Plan[0].Calls[0].From)

	// Optional trailing arguments may be omitted.
	res = nil
	require.NoError(t, client.CallContext(ctx, &res, "replay_simulate", unknownHash))
	assert.Nil(t, res)

	var many []*SimulationResult
	require.NoError(t, client.CallContext(ctx, &many, "replay_simulateMany", []libcommon.Hash{profitHash, unknownHash}))
	require.Len(t, many, 2)
	assert.NotNil(t, many[0])
	assert.Nil(t, many[1])

	var cfg ConfigResult
	require.NoError(t, client.CallContext(ctx, &cfg, "replay_config"))
	assert.Equal(t, contract, cfg.Substitute)

	err := client.CallContext(ctx, &res, "replay_simulate", brokenHash)
	assert.ErrorContains(t, err, errTransport.Error())
}

func TestPlansSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subService := subscription.NewPlanSubscription(quietLogger())
	subService.Start(ctx)
	api, _ := newTestAPI(t, WithSubscription(subService))

	server := rpc.NewServer()
	require.NoError(t, Register(server, api))
	defer server.Stop()
	client := rpc.DialInProc(server)
	defer client.Close()

	plans := make(chan *SimulationResult, 4)
	sub, err := client.Subscribe(ctx, Namespace, plans, "plans", subscription.PlanCriteria{Addresses: []libcommon.Address{sender}})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = api.Simulate(ctx, lossHash, nil)
	require.NoError(t, err)
	_, err = api.Simulate(ctx, profitHash, nil)
	require.NoError(t, err)

	select {
	case res := <-plans:
		assert.Equal(t, profitHash, res.Hash)
	case err := <-sub.Err():
		t.Fatal(err)
	case <-time.After(5 * time.Second):
		t.Fatal("no plan notification")
	}
}

func TestPlansSubscriptionDisabled(t *testing.T) {
	api, _ := newTestAPI(t)
	_, err := api.Plans(context.Background(), subscription.PlanCriteria{})
	assert.ErrorIs(t, err, ErrReplayNotEnabled)
}

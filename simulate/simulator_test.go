package simulate

import (
	"context"
	"errors"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/sieniven/xlayer-replay/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	txs    map[libcommon.Hash]*types.Transaction
	traces map[libcommon.Hash]*types.BlockTrace
	txErr  error
	trErr  error

	tracedAt []rpc.BlockNumber
	kinds    []types.TraceKind
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		txs:    make(map[libcommon.Hash]*types.Transaction),
		traces: make(map[libcommon.Hash]*types.BlockTrace),
	}
}

func (c *fakeClient) TransactionByHash(_ context.Context, hash libcommon.Hash) (*types.Transaction, error) {
	if c.txErr != nil {
		return nil, c.txErr
	}
	tx, ok := c.txs[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return tx, nil
}

func (c *fakeClient) TraceCall(_ context.Context, tx *types.Transaction, kinds []types.TraceKind, block rpc.BlockNumber) (*types.BlockTrace, error) {
	c.mu.Lock()
	c.tracedAt = append(c.tracedAt, block)
	c.kinds = kinds
	c.mu.Unlock()
	if c.trErr != nil {
		return nil, c.trErr
	}
	return c.traces[tx.Hash], nil
}

type staticIdentity libcommon.Address

func (id staticIdentity) SignerAddress() libcommon.Address {
	return libcommon.Address(id)
}

func minedTx(block uint64) *types.Transaction {
	tx := profitTx(5)
	number := hexutil.Uint64(block)
	tx.BlockNumber = &number
	return tx
}

func profitableTrace() *types.BlockTrace {
	return &types.BlockTrace{
		Trace: arbitrageTrace(),
		StateDiff: types.StateDiff{
			txSender: accountDiff(100, 150, 5, 6),
		},
	}
}

func setupSimulator(t *testing.T, cfg SimulateConfig) (*Simulator, *fakeClient, *types.Transaction) {
	t.Helper()
	client := newFakeClient()
	tx := minedTx(1000)
	client.txs[tx.Hash] = tx
	client.traces[tx.Hash] = profitableTrace()
	return NewSimulator(client, staticIdentity(signerAddr), cfg), client, tx
}

func TestSimulatorRun(t *testing.T) {
	sim, client, tx := setupSimulator(t, SimulateConfig{ContractOverride: &contractAddr})

	res, err := sim.Run(context.Background(), tx.Hash, false)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, uint64(50), res.Profit.Uint64())
	assert.Equal(t, rpc.BlockNumber(1000), res.Block)
	assert.Equal(t, tx, res.Tx)
	require.Len(t, res.Plan, 2)
	assert.Equal(t, 3, res.Plan.Len())
	assert.Equal(t, 1, res.Plan.SkippedCount())
	for _, batch := range res.Plan {
		for _, call := range batch.Calls {
			assert.Equal(t, signerAddr, call.From)
		}
	}

	require.NotNil(t, res.Changeset)
	assert.Equal(t, uint64(150), res.Changeset.BalanceChanges[txSender].Uint64())
	assert.Equal(t, uint64(6), res.Changeset.NonceChanges[txSender])

	assert.Equal(t, []types.TraceKind{types.TraceKindTrace, types.TraceKindStateDiff}, client.kinds)
}

func TestSimulatorRewind(t *testing.T) {
	sim, client, tx := setupSimulator(t, SimulateConfig{})

	res, err := sim.Run(context.Background(), tx.Hash, true)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, rpc.BlockNumber(999), res.Block)
	assert.Equal(t, []rpc.BlockNumber{999}, client.tracedAt)
}

func TestTraceBlock(t *testing.T) {
	assert.Equal(t, rpc.BlockNumber(10), TraceBlock(minedTx(10), false))
	assert.Equal(t, rpc.BlockNumber(9), TraceBlock(minedTx(10), true))
	assert.Equal(t, rpc.BlockNumber(0), TraceBlock(minedTx(0), true))
	assert.Equal(t, rpc.LatestBlockNumber, TraceBlock(profitTx(5), true))
	assert.Equal(t, rpc.LatestBlockNumber, TraceBlock(profitTx(5), false))
}

func TestSimulatorAbsent(t *testing.T) {
	t.Run("UnknownTransaction", func(t *testing.T) {
		sim, client, _ := setupSimulator(t, SimulateConfig{})
		res, err := sim.Run(context.Background(), libcommon.HexToHash("0xdead"), false)
		require.NoError(t, err)
		assert.Nil(t, res)
		assert.Empty(t, client.tracedAt)
	})

	t.Run("NoProfit", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		client.traces[tx.Hash].StateDiff = types.StateDiff{
			txSender: accountDiff(100, 90, 5, 6),
		}
		res, err := sim.Run(context.Background(), tx.Hash, false)
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("NoStateDiff", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		client.traces[tx.Hash].StateDiff = nil
		res, err := sim.Run(context.Background(), tx.Hash, false)
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("NoTrace", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		delete(client.traces, tx.Hash)
		res, err := sim.Run(context.Background(), tx.Hash, false)
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("NothingReplayable", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		client.traces[tx.Hash].Trace = []types.TraceEntry{suicideEntry(nil)}
		res, err := sim.Run(context.Background(), tx.Hash, false)
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("SkipRatioExceeded", func(t *testing.T) {
		// One of four entries skipped.
		sim, _, tx := setupSimulator(t, SimulateConfig{MaxSkippedRatio: 0.2})
		res, err := sim.Run(context.Background(), tx.Hash, false)
		require.NoError(t, err)
		assert.Nil(t, res)

		sim, _, tx = setupSimulator(t, SimulateConfig{MaxSkippedRatio: 0.25})
		res, err = sim.Run(context.Background(), tx.Hash, false)
		require.NoError(t, err)
		assert.NotNil(t, res)
	})
}

func TestSimulatorErrors(t *testing.T) {
	t.Run("TransactionTransport", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		client.txErr = errors.New("connection refused")
		_, err := sim.Run(context.Background(), tx.Hash, false)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("TraceTransport", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		client.trErr = errors.New("method not found")
		_, err := sim.Run(context.Background(), tx.Hash, false)
		assert.ErrorContains(t, err, "method not found")
	})

	t.Run("MalformedTrace", func(t *testing.T) {
		sim, client, tx := setupSimulator(t, SimulateConfig{})
		client.traces[tx.Hash].Trace = client.traces[tx.Hash].Trace[:2]
		_, err := sim.Run(context.Background(), tx.Hash, false)
		assert.ErrorIs(t, err, ErrMalformedTrace)
	})

	t.Run("Unconfigured", func(t *testing.T) {
		_, err := NewSimulator(nil, staticIdentity(signerAddr), SimulateConfig{}).Run(context.Background(), libcommon.Hash{}, false)
		assert.ErrorIs(t, err, ErrNoClient)
		_, err = NewSimulator(newFakeClient(), nil, SimulateConfig{}).Run(context.Background(), libcommon.Hash{}, false)
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

type fixedProfit uint64

func (p fixedProfit) DetectProfit(*types.Transaction, types.StateDiff) *uint256.Int {
	return uint256.NewInt(uint64(p))
}

func TestSimulatorCustomDetector(t *testing.T) {
	sim, client, tx := setupSimulator(t, SimulateConfig{})
	client.traces[tx.Hash].StateDiff = types.StateDiff{}

	res, err := sim.Run(context.Background(), tx.Hash, false)
	require.NoError(t, err)
	assert.Nil(t, res)

	sim = NewSimulator(client, staticIdentity(signerAddr), SimulateConfig{}, WithProfitDetector(fixedProfit(7)))
	res, err = sim.Run(context.Background(), tx.Hash, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, uint64(7), res.Profit.Uint64())
}

package simulate

import (
	"context"
	"errors"
	"fmt"

	ethereum "github.com/ethereum/go-ethereum"
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/sieniven/xlayer-replay/types"
)

var traceKinds = []types.TraceKind{types.TraceKindTrace, types.TraceKindStateDiff}

// Client is the node RPC surface the simulator needs. TransactionByHash
// returns ethereum.NotFound for unknown hashes.
type Client interface {
	TransactionByHash(ctx context.Context, hash libcommon.Hash) (*types.Transaction, error)
	TraceCall(ctx context.Context, tx *types.Transaction, kinds []types.TraceKind, block rpc.BlockNumber) (*types.BlockTrace, error)
}

// Identity provides the address replayed calls are sent from.
type Identity interface {
	SignerAddress() libcommon.Address
}

// Result is a replayable plan for a profitable transaction.
type Result struct {
	Tx        *types.Transaction
	Block     rpc.BlockNumber
	Plan      types.CallPlan
	Profit    *uint256.Int
	Changeset *types.Changeset
}

type Option func(*Simulator)

func WithProfitDetector(detector ProfitDetector) Option {
	return func(s *Simulator) { s.detector = detector }
}

func WithSubstituter(substituter Substituter) Option {
	return func(s *Simulator) { s.substituter = substituter }
}

func WithLogger(logger log.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// Simulator holds no per-request state; Run may be called concurrently.
type Simulator struct {
	client      Client
	identity    Identity
	cfg         SimulateConfig
	detector    ProfitDetector
	substituter Substituter
	logger      log.Logger
}

func NewSimulator(client Client, identity Identity, cfg SimulateConfig, opts ...Option) *Simulator {
	s := &Simulator{
		client:      client,
		identity:    identity,
		cfg:         cfg,
		detector:    NativeProfit{},
		substituter: HexSubstituter{},
		logger:      log.Root(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Config() SimulateConfig {
	return s.cfg
}

func (s *Simulator) Rewriter() *Rewriter {
	return NewRewriter(s.identity.SignerAddress(), s.cfg.ContractOverride, s.substituter)
}

// TraceBlock picks the block to trace tx at. Rewinding traces at the parent
// block to observe pre-transaction state; unmined transactions are traced
// against the latest state.
func TraceBlock(tx *types.Transaction, rewind bool) rpc.BlockNumber {
	if !tx.IsMined() {
		return rpc.LatestBlockNumber
	}
	number := uint64(*tx.BlockNumber)
	if rewind && number > 0 {
		number--
	}
	return rpc.BlockNumber(number)
}

// Run fetches and traces txHash and returns a replay plan when the trace shows
// a profit. A nil result with a nil error means nothing profitable or
// replayable was found.
func (s *Simulator) Run(ctx context.Context, txHash libcommon.Hash, rewind bool) (*Result, error) {
	if s.client == nil {
		return nil, ErrNoClient
	}
	if s.identity == nil {
		return nil, ErrNoIdentity
	}

	tx, err := s.client.TransactionByHash(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && tx == nil) {
		s.logger.Debug("[Replay] Transaction not found", "hash", txHash)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txHash.Hex(), err)
	}

	block := TraceBlock(tx, rewind)
	trace, err := s.client.TraceCall(ctx, tx, traceKinds, block)
	if err != nil {
		return nil, fmt.Errorf("failed to trace transaction %s at block %s: %w", txHash.Hex(), block.String(), err)
	}
	if trace == nil || trace.StateDiff == nil {
		s.logger.Debug("[Replay] No state diff in trace", "hash", txHash, "block", block)
		return nil, nil
	}

	profit := s.detector.DetectProfit(tx, trace.StateDiff)
	if profit == nil || profit.IsZero() {
		s.logger.Debug("[Replay] No profit detected", "hash", txHash, "block", block)
		return nil, nil
	}

	plan, err := Reconstruct(trace.Trace, s.Rewriter())
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct transaction %s: %w", txHash.Hex(), err)
	}
	if plan.Len() == 0 {
		s.logger.Info("[Replay] Profit detected but nothing replayable", "hash", txHash, "profit", profit, "skipped", plan.SkippedCount())
		return nil, nil
	}
	if s.exceedsSkipRatio(plan) {
		s.logger.Warn("[Replay] Plan rejected, too many skipped entries", "hash", txHash, "calls", plan.Len(), "skipped", plan.SkippedCount(), "maxSkippedRatio", s.cfg.MaxSkippedRatio)
		return nil, nil
	}

	s.logger.Info("[Replay] Replay plan built", "hash", txHash, "block", block, "profit", profit, "batches", len(plan), "calls", plan.Len(), "complete", plan.Complete())
	return &Result{
		Tx:        tx,
		Block:     block,
		Plan:      plan,
		Profit:    profit,
		Changeset: trace.StateDiff.Changeset(),
	}, nil
}

func (s *Simulator) exceedsSkipRatio(plan types.CallPlan) bool {
	if s.cfg.MaxSkippedRatio <= 0 {
		return false
	}
	skipped := plan.SkippedCount()
	total := plan.Len() + skipped
	return float64(skipped)/float64(total) > s.cfg.MaxSkippedRatio
}

package rtclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	ethereum "github.com/ethereum/go-ethereum"
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sieniven/xlayer-replay/cache"
	"github.com/sieniven/xlayer-replay/metrics"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/types"
	"golang.org/x/time/rate"
)

const (
	DefaultRetries         = 3
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxElapsedTime  = 10 * time.Second
)

type ReplayClient struct {
	c       *rpc.Client
	limiter *rate.Limiter
	retries uint64
	backoff time.Duration
	txCache *cache.TxCache
	metrics *metrics.Collector
	logger  log.Logger
}

var _ simulate.Client = (*ReplayClient)(nil)

type Option func(*ReplayClient)

// WithRateLimit caps outgoing requests per second. A non-positive limit
// disables rate limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(rc *ReplayClient) {
		if limit <= 0 {
			rc.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		rc.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithRetries sets how many times a failed transport call is retried, and the
// first retry interval.
func WithRetries(retries uint64, initialInterval time.Duration) Option {
	return func(rc *ReplayClient) {
		rc.retries = retries
		if initialInterval > 0 {
			rc.backoff = initialInterval
		}
	}
}

func WithTxCache(txCache *cache.TxCache) Option {
	return func(rc *ReplayClient) { rc.txCache = txCache }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(rc *ReplayClient) { rc.metrics = collector }
}

func WithLogger(logger log.Logger) Option {
	return func(rc *ReplayClient) { rc.logger = logger }
}

// Dial connects a client to the given URL.
func Dial(rawurl string, opts ...Option) (*ReplayClient, error) {
	return DialContext(context.Background(), rawurl, opts...)
}

// DialContext connects a client to the given URL with context.
func DialContext(ctx context.Context, rawurl string, opts ...Option) (*ReplayClient, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c, opts...), nil
}

// NewClient creates a client that uses the given RPC client.
func NewClient(c *rpc.Client, opts ...Option) *ReplayClient {
	rc := &ReplayClient{
		c:       c,
		retries: DefaultRetries,
		backoff: DefaultInitialInterval,
		logger:  log.Root(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func (rc *ReplayClient) Close() {
	rc.c.Close()
}

// TransactionByHash returns the transaction with the given hash, or
// ethereum.NotFound if the node does not know it.
func (rc *ReplayClient) TransactionByHash(ctx context.Context, txHash libcommon.Hash) (*types.Transaction, error) {
	if rc.txCache != nil {
		if tx, ok := rc.txCache.Get(txHash); ok {
			return tx, nil
		}
	}

	var tx *types.Transaction
	if err := rc.call(ctx, &tx, "eth_getTransactionByHash", txHash); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ethereum.NotFound
	}
	if rc.txCache != nil {
		rc.txCache.Add(tx)
	}
	return tx, nil
}

// TraceCall executes tx as a call on top of the state at block and returns the
// requested trace kinds.
func (rc *ReplayClient) TraceCall(ctx context.Context, tx *types.Transaction, kinds []types.TraceKind, block rpc.BlockNumber) (*types.BlockTrace, error) {
	var trace *types.BlockTrace
	if err := rc.call(ctx, &trace, "trace_call", tx.CallArgs(), kinds, block); err != nil {
		return nil, err
	}
	return trace, nil
}

// BlockNumber returns the number of the most recent block.
func (rc *ReplayClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	err := rc.call(ctx, &result, "eth_blockNumber")
	return uint64(result), err
}

// call retries transport failures only. The raw result is decoded after the
// retry loop, so a malformed payload fails once instead of being refetched.
func (rc *ReplayClient) call(ctx context.Context, result any, method string, args ...any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.backoff
	b.MaxElapsedTime = DefaultMaxElapsedTime

	var raw json.RawMessage
	operation := func() error {
		if rc.limiter != nil {
			if err := rc.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		start := time.Now()
		err := rc.c.CallContext(ctx, &raw, method, args...)
		rc.metrics.ObserveRPC(method, start)
		if err != nil && !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		rc.metrics.IncRPCRetry(method)
		rc.logger.Debug("[Replay] Retrying RPC call", "method", method, "wait", wait, "err", err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, rc.retries), ctx), notify)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%s: invalid result: %w", method, err)
	}
	return nil
}

// retryable reports whether err is a transport failure. Errors returned by the
// node itself are final.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}

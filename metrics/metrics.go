package metrics

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sieniven/xlayer-replay/simulate"
)

const (
	labelOutcome = "outcome"
	labelMethod  = "method"

	OutcomePlan   = "plan"
	OutcomeAbsent = "absent"
	OutcomeError  = "error"
)

var ErrWrongMetricType = errors.New("collector already registered with different type")

// Collector groups the replay metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	simulations    *prometheus.CounterVec
	skippedEntries prometheus.Counter
	profit         prometheus.Gauge
	rpcDuration    *prometheus.HistogramVec
	rpcRetries     *prometheus.CounterVec
}

func NewCollector(prom prometheus.Registerer) (*Collector, error) {
	simulations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_simulations_total",
		Help: "Simulations by outcome",
	}, []string{labelOutcome})

	skippedEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_skipped_entries_total",
		Help: "Trace entries that could not be rewritten into replayable calls",
	})

	profit := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_profit_wei",
		Help: "Profit of the most recent replay plan",
	})

	rpcDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replay_rpc_duration_seconds",
		Help:    "Latency of node RPC calls",
		Buckets: prometheus.DefBuckets,
	}, []string{labelMethod})

	rpcRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_rpc_retries_total",
		Help: "Retried node RPC calls",
	}, []string{labelMethod})

	var err error
	if simulations, err = registerCollector(prom, simulations); err != nil {
		return nil, err
	}
	if skippedEntries, err = registerCollector(prom, skippedEntries); err != nil {
		return nil, err
	}
	if profit, err = registerCollector(prom, profit); err != nil {
		return nil, err
	}
	if rpcDuration, err = registerCollector(prom, rpcDuration); err != nil {
		return nil, err
	}
	if rpcRetries, err = registerCollector(prom, rpcRetries); err != nil {
		return nil, err
	}

	return &Collector{
		simulations:    simulations,
		skippedEntries: skippedEntries,
		profit:         profit,
		rpcDuration:    rpcDuration,
		rpcRetries:     rpcRetries,
	}, nil
}

func (c *Collector) IncSimulation(outcome string) {
	if c == nil {
		return
	}
	c.simulations.With(prometheus.Labels{labelOutcome: outcome}).Inc()
}

// ObserveSimulation records the outcome of one simulation.
func (c *Collector) ObserveSimulation(res *simulate.Result, err error) {
	if c == nil {
		return
	}
	switch {
	case err != nil:
		c.IncSimulation(OutcomeError)
	case res == nil:
		c.IncSimulation(OutcomeAbsent)
	default:
		c.IncSimulation(OutcomePlan)
		c.AddSkippedEntries(res.Plan.SkippedCount())
		c.SetProfit(res.Profit)
	}
}

func (c *Collector) AddSkippedEntries(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.skippedEntries.Add(float64(n))
}

// SetProfit records profit in wei. Values beyond float64 precision are rounded.
func (c *Collector) SetProfit(profit *uint256.Int) {
	if c == nil || profit == nil {
		return
	}
	f, _ := new(big.Float).SetInt(profit.ToBig()).Float64()
	c.profit.Set(f)
}

func (c *Collector) ObserveRPC(method string, startTime time.Time) {
	if c == nil {
		return
	}
	c.rpcDuration.With(prometheus.Labels{labelMethod: method}).Observe(time.Since(startTime).Seconds())
}

func (c *Collector) IncRPCRetry(method string) {
	if c == nil {
		return
	}
	c.rpcRetries.With(prometheus.Labels{labelMethod: method}).Inc()
}

// registerCollector registers c, returning the already registered collector
// when an identical one exists.
func registerCollector[T prometheus.Collector](prom prometheus.Registerer, c T) (T, error) {
	err := prom.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, ErrWrongMetricType
	}
	return existing, nil
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// StartServer serves registry on addr under /metrics until ctx is cancelled.
func StartServer(ctx context.Context, addr string, registry *prometheus.Registry, logger log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("[Replay] Metrics server shutdown failed", "err", err)
		}
	}()

	logger.Info("[Replay] Starting metrics server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

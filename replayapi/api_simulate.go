package replayapi

import (
	"context"
	"fmt"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/sieniven/xlayer-replay/cache"
	"github.com/sieniven/xlayer-replay/simulate"
	"golang.org/x/sync/errgroup"
)

// Simulate implements replay_simulate.
// Returns the replay plan of a profitable transaction, or null when the
// transaction is unknown, unprofitable or not replayable.
func (api *ReplayAPIImpl) Simulate(ctx context.Context, hash libcommon.Hash, rewind *bool) (*SimulationResult, error) {
	res, err := api.simulate(ctx, hash, api.rewindOrDefault(rewind))
	if err != nil {
		return nil, err
	}
	return newSimulationResult(res), nil
}

// SimulateMany implements replay_simulateMany.
// Results are returned in request order; the first failure aborts the batch.
func (api *ReplayAPIImpl) SimulateMany(ctx context.Context, hashes []libcommon.Hash, rewind *bool) ([]*SimulationResult, error) {
	if api.sim == nil {
		return nil, ErrReplayNotEnabled
	}
	if len(hashes) > api.maxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(hashes), api.maxBatch)
	}

	rw := api.rewindOrDefault(rewind)
	results := make([]*SimulationResult, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(api.workers)
	for i, hash := range hashes {
		g.Go(func() error {
			res, err := api.simulate(gctx, hash, rw)
			if err != nil {
				return err
			}
			results[i] = newSimulationResult(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (api *ReplayAPIImpl) simulate(ctx context.Context, hash libcommon.Hash, rewind bool) (*simulate.Result, error) {
	if api.sim == nil {
		return nil, ErrReplayNotEnabled
	}

	key := cache.PlanKey{Hash: hash, Rewind: rewind}
	if api.planCache != nil {
		if res, ok := api.planCache.Get(key); ok {
			api.logger.Debug("[Replay] Plan cache hit", "hash", hash, "rewind", rewind)
			return res, nil
		}
	}

	res, err := api.sim.Run(ctx, hash, rewind)
	api.metrics.ObserveSimulation(res, err)
	if err != nil {
		api.logger.Warn("[Replay] Simulation failed", "hash", hash, "err", err)
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	if res.Tx.IsMined() && api.planCache != nil {
		api.planCache.Add(key, res)
	}
	api.subService.BroadcastPlan(res)
	return res, nil
}

func (api *ReplayAPIImpl) rewindOrDefault(rewind *bool) bool {
	if rewind == nil {
		return api.rewind
	}
	return *rewind
}

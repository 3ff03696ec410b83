package jsonrpc

import (
	"context"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sieniven/xlayer-replay/replayapi"
	"github.com/sieniven/xlayer-replay/subscription"
)

type ReplayAPI interface {
	// Simulation related (see ./api_simulate.go)
	Simulate(ctx context.Context, hash libcommon.Hash, rewind *bool) (*replayapi.SimulationResult, error)
	SimulateMany(ctx context.Context, hashes []libcommon.Hash, rewind *bool) ([]*replayapi.SimulationResult, error)

	// Config related (see ./api_config.go)
	Config(ctx context.Context) (*replayapi.ConfigResult, error)

	// Subscription related (see ./api_filters.go)
	Plans(ctx context.Context, crit subscription.PlanCriteria) (*rpc.Subscription, error)
}

var _ ReplayAPI = (*replayapi.ReplayAPIImpl)(nil)

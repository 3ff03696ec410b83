package replayapi

import "context"

// Config implements replay_config.
// Returns the addresses replayed calls are built with.
func (api *ReplayAPIImpl) Config(_ context.Context) (*ConfigResult, error) {
	if api.sim == nil {
		return nil, ErrReplayNotEnabled
	}
	rw := api.sim.Rewriter()
	return &ConfigResult{
		Signer:          rw.Signer(),
		Substitute:      rw.Substitute(),
		Rewind:          api.rewind,
		MaxSkippedRatio: api.sim.Config().MaxSkippedRatio,
	}, nil
}

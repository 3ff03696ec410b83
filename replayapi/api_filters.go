package replayapi

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sieniven/xlayer-replay/subscription"
)

// Plans implements replay_subscribe("plans").
// Sends a notification for each new replay plan matching the criteria.
func (api *ReplayAPIImpl) Plans(ctx context.Context, crit subscription.PlanCriteria) (*rpc.Subscription, error) {
	if api.subService == nil {
		return &rpc.Subscription{}, ErrReplayNotEnabled
	}

	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}

	planCh, id, err := api.subService.SubscribePlans(crit)
	if err != nil {
		return &rpc.Subscription{}, err
	}
	rpcSub := notifier.CreateSubscription()

	go func() {
		defer api.subService.UnsubscribePlans(id)

		for {
			select {
			case res, ok := <-planCh:
				if !ok {
					api.logger.Debug("[Replay] Plan subscription channel closed", "id", rpcSub.ID)
					return
				}
				if err := notifier.Notify(rpcSub.ID, newSimulationResult(res)); err != nil {
					api.logger.Warn("[Replay] Error while notifying subscription", "err", err)
				}
			case <-rpcSub.Err():
				return
			}
		}
	}()

	return rpcSub, nil
}

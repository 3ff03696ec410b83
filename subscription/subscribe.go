package subscription

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sieniven/xlayer-replay/simulate"
)

const (
	DefaultChannelSize          = 1000
	DefaultSubscribeChannelSize = 256

	// Limit the number of subscriptions on the node
	MaxSubscriptionsCount = 100
)

var ErrMaxSubscriptions = errors.New("max subscriptions count reached")

// PlanSubscription fans replay plans out to RPC subscribers.
type PlanSubscription struct {
	planSubs    *SyncMap[SubID, *PlanFilter]
	newPlanChan chan *simulate.Result
	logger      log.Logger
}

func NewPlanSubscription(logger log.Logger) *PlanSubscription {
	return &PlanSubscription{
		planSubs:    NewSyncMap[SubID, *PlanFilter](),
		newPlanChan: make(chan *simulate.Result, DefaultChannelSize),
		logger:      logger,
	}
}

// Start dispatches broadcast plans until ctx is done, then closes every
// subscriber channel.
func (ps *PlanSubscription) Start(ctx context.Context) {
	go func() {
		defer ps.closeAll()
		for {
			select {
			case <-ctx.Done():
				return
			case res := <-ps.newPlanChan:
				ps.handlePlan(res)
			}
		}
	}()
}

func (ps *PlanSubscription) handlePlan(res *simulate.Result) {
	ps.planSubs.Range(func(_ SubID, filter *PlanFilter) {
		if filter.Match(res) {
			filter.Send(res)
		}
	})
}

// BroadcastPlan queues res for delivery. Plans are dropped while the dispatch
// queue is full.
func (ps *PlanSubscription) BroadcastPlan(res *simulate.Result) {
	if ps == nil || res == nil {
		return
	}
	select {
	case ps.newPlanChan <- res:
	default:
		ps.logger.Warn("[Replay] Subscription queue full, dropping plan", "hash", res.Tx.Hash)
	}
}

func (ps *PlanSubscription) SubscribePlans(crit PlanCriteria) (<-chan *simulate.Result, SubID, error) {
	if ps.planSubs.Len() >= MaxSubscriptionsCount {
		return nil, "", ErrMaxSubscriptions
	}

	id := generateSubID()
	sub := newChanSub[*simulate.Result](DefaultSubscribeChannelSize)
	ps.planSubs.Put(id, newPlanFilter(crit, sub))
	return sub.ch, id, nil
}

func (ps *PlanSubscription) UnsubscribePlans(id SubID) bool {
	filter, ok := ps.planSubs.Delete(id)
	if !ok {
		return false
	}
	filter.Close()
	return true
}

func (ps *PlanSubscription) closeAll() {
	var ids []SubID
	ps.planSubs.Range(func(id SubID, _ *PlanFilter) {
		ids = append(ids, id)
	})
	for _, id := range ids {
		ps.UnsubscribePlans(id)
	}
}

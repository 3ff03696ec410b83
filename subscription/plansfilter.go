package subscription

import (
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sieniven/xlayer-replay/simulate"
)

// PlanCriteria selects which replay plans a subscriber receives. Empty
// criteria match every plan.
type PlanCriteria struct {
	// Addresses matches plans whose original transaction was sent from or to
	// one of the addresses.
	Addresses    []libcommon.Address `json:"addresses"`
	MinProfit    *hexutil.Big        `json:"minProfit"`
	CompleteOnly bool                `json:"completeOnly"`
}

type PlanFilter struct {
	addrs        map[libcommon.Address]struct{}
	minProfit    *hexutil.Big
	completeOnly bool
	sender       Sub[*simulate.Result]
}

func newPlanFilter(crit PlanCriteria, sender Sub[*simulate.Result]) *PlanFilter {
	filter := &PlanFilter{
		minProfit:    crit.MinProfit,
		completeOnly: crit.CompleteOnly,
		sender:       sender,
	}
	if len(crit.Addresses) > 0 {
		filter.addrs = make(map[libcommon.Address]struct{}, len(crit.Addresses))
		for _, addr := range crit.Addresses {
			filter.addrs[addr] = struct{}{}
		}
	}
	return filter
}

func (f *PlanFilter) Match(res *simulate.Result) bool {
	if res == nil || res.Tx == nil {
		return false
	}
	if f.completeOnly && !res.Plan.Complete() {
		return false
	}
	if f.minProfit != nil && (res.Profit == nil || res.Profit.ToBig().Cmp(f.minProfit.ToInt()) < 0) {
		return false
	}
	if f.addrs == nil {
		return true
	}
	if _, ok := f.addrs[res.Tx.From]; ok {
		return true
	}
	if res.Tx.To != nil {
		if _, ok := f.addrs[*res.Tx.To]; ok {
			return true
		}
	}
	return false
}

func (f *PlanFilter) Send(res *simulate.Result) {
	f.sender.Send(res)
}

func (f *PlanFilter) Close() {
	f.sender.Close()
}

// Package arbitrage implements the cross-feed opportunity detector:
// it tracks the latest A/B quotes per symbol, evaluates cross-feed
// crossing and same-side disparity, and reports a rolling window of
// recent opportunities plus a missed-opportunity counter derived from
// trade-timestamp skew.
package arbitrage

import (
	"sync"
	"time"

	"duplexmatch/internal/common"
	"github.com/rs/zerolog"
)

// OpportunityKind tags why an Opportunity fired.
type OpportunityKind uint8

const (
	// KindCrossFeed is a genuine buy-on-one-sell-on-other opportunity.
	KindCrossFeed OpportunityKind = iota
	// KindSameSideDisparity is an informational, zero-profit signal
	// that the two feeds simply disagree on a bid or ask.
	KindSameSideDisparity
)

func (k OpportunityKind) String() string {
	switch k {
	case KindCrossFeed:
		return "cross_feed"
	case KindSameSideDisparity:
		return "same_side_disparity"
	default:
		return "unknown"
	}
}

// Opportunity is one detected disagreement between feeds A and B for
// the same symbol.
type Opportunity struct {
	SymbolID            uint32
	Kind                OpportunityKind
	ProfitBps           float64
	FastFeed            common.FeedID
	SlowFeed            common.FeedID
	LatencyDifferenceNs int64
	PriceDifference     int64
	TimestampNs         int64
}

// OpportunityCallback is invoked once per detected opportunity, after
// the detector's mutex has been released.
type OpportunityCallback func(Opportunity)

const windowCapacity = 1000

type symbolState struct {
	quoteA, quoteB           *common.Quote
	lastTradeAns, lastTradeBns int64
}

// Detector serializes all cross-feed state behind a single mutex, per
// spec.md §4.5's concurrency requirement (called concurrently from two
// feed worker threads).
type Detector struct {
	mu      sync.Mutex
	symbols map[uint32]*symbolState

	// window is a fixed-capacity ring of the last windowCapacity
	// opportunities, grounded on ejyy-femto_go/events_ring.go's
	// masked-index ring idiom, adapted to a plain mutex-guarded ring
	// (already serialized by mu; a second lock-free layer would add
	// nothing) and to a non-power-of-two capacity since spec.md fixes
	// the window at exactly 1000.
	window     [windowCapacity]Opportunity
	windowLen  int
	windowNext int

	missedOpportunities uint64

	onOpportunity OpportunityCallback
	log           zerolog.Logger
}

// New constructs an empty Detector.
func New(log zerolog.Logger) *Detector {
	return &Detector{
		symbols: make(map[uint32]*symbolState),
		log:     log.With().Str("component", "arbitrage").Logger(),
	}
}

// SetCallback installs the opportunity callback. Install before any
// OnQuote/OnTrade calls.
func (d *Detector) SetCallback(cb OpportunityCallback) {
	d.onOpportunity = cb
}

// OnQuote records feed q's latest quote for its symbol and, once both
// feeds have quoted that symbol, evaluates crossing and disparity.
func (d *Detector) OnQuote(q common.Quote) {
	d.mu.Lock()
	st := d.stateFor(q.SymbolID)
	qc := q
	switch q.FeedID {
	case common.FeedA:
		st.quoteA = &qc
	case common.FeedB:
		st.quoteB = &qc
	}

	if st.quoteA == nil || st.quoteB == nil {
		d.mu.Unlock()
		return
	}

	opps := evaluateQuotes(q.SymbolID, st.quoteA, st.quoteB)
	for _, opp := range opps {
		d.pushLocked(opp)
	}
	d.mu.Unlock()

	for _, opp := range opps {
		if d.onOpportunity != nil {
			d.onOpportunity(opp)
		}
	}
}

// OnTrade records feed t's latest trade timestamp for its symbol and,
// once both feeds have traded it, bumps missed_opportunities when the
// two prints are more than 1ms apart. Trades never emit opportunities.
func (d *Detector) OnTrade(t common.TradeTick) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.stateFor(t.SymbolID)
	switch t.FeedID {
	case common.FeedA:
		st.lastTradeAns = t.TimestampNs
	case common.FeedB:
		st.lastTradeBns = t.TimestampNs
	}
	if st.lastTradeAns == 0 || st.lastTradeBns == 0 {
		return
	}
	diff := st.lastTradeAns - st.lastTradeBns
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(time.Millisecond) {
		d.missedOpportunities++
	}
}

// MissedOpportunities returns the running counter of trade prints that
// arrived more than 1ms apart across feeds.
func (d *Detector) MissedOpportunities() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.missedOpportunities
}

// RecentOpportunities returns a copy of the rolling window, oldest
// first.
func (d *Detector) RecentOpportunities() []Opportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Opportunity, d.windowLen)
	start := (d.windowNext - d.windowLen + windowCapacity) % windowCapacity
	for i := 0; i < d.windowLen; i++ {
		out[i] = d.window[(start+i)%windowCapacity]
	}
	return out
}

func (d *Detector) stateFor(symbolID uint32) *symbolState {
	st, ok := d.symbols[symbolID]
	if !ok {
		st = &symbolState{}
		d.symbols[symbolID] = st
	}
	return st
}

func (d *Detector) pushLocked(opp Opportunity) {
	d.window[d.windowNext] = opp
	d.windowNext = (d.windowNext + 1) % windowCapacity
	if d.windowLen < windowCapacity {
		d.windowLen++
	}
}

// evaluateQuotes implements spec.md §4.5's two opportunity classes.
// Cross-feed crossing fires at most twice (once per direction); same-
// side disparity fires independently for bid and ask.
func evaluateQuotes(symbolID uint32, a, b *common.Quote) []Opportunity {
	var opps []Opportunity

	if b.BidPrice > a.AskPrice {
		opps = append(opps, buildOpportunity(symbolID, KindCrossFeed, a, b, profitBps(b.BidPrice, a.AskPrice)))
	}
	if a.BidPrice > b.AskPrice {
		opps = append(opps, buildOpportunity(symbolID, KindCrossFeed, a, b, profitBps(a.BidPrice, b.AskPrice)))
	}
	if a.BidPrice != b.BidPrice {
		opps = append(opps, buildOpportunity(symbolID, KindSameSideDisparity, a, b, 0))
	}
	if a.AskPrice != b.AskPrice {
		opps = append(opps, buildOpportunity(symbolID, KindSameSideDisparity, a, b, 0))
	}
	return opps
}

func buildOpportunity(symbolID uint32, kind OpportunityKind, a, b *common.Quote, profitBps float64) Opportunity {
	fast, slow := common.FeedA, common.FeedB
	if b.TimestampNs < a.TimestampNs {
		fast, slow = common.FeedB, common.FeedA
	}

	latencyDiff := a.TimestampNs - b.TimestampNs
	if latencyDiff < 0 {
		latencyDiff = -latencyDiff
	}

	bidDiff := absInt64(a.BidPrice - b.BidPrice)
	askDiff := absInt64(a.AskPrice - b.AskPrice)
	priceDiff := bidDiff
	if askDiff > priceDiff {
		priceDiff = askDiff
	}

	ts := a.TimestampNs
	if b.TimestampNs > ts {
		ts = b.TimestampNs
	}

	return Opportunity{
		SymbolID:            symbolID,
		Kind:                kind,
		ProfitBps:           profitBps,
		FastFeed:            fast,
		SlowFeed:            slow,
		LatencyDifferenceNs: latencyDiff,
		PriceDifference:     priceDiff,
		TimestampNs:         ts,
	}
}

// profitBps computes (sell_leg - buy_leg) / buy_leg * 10000.
func profitBps(sellLeg, buyLeg int64) float64 {
	if buyLeg == 0 {
		return 0
	}
	return float64(sellLeg-buyLeg) / float64(buyLeg) * 10_000
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

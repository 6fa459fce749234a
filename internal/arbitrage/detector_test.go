package arbitrage

import (
	"testing"
	"time"

	"duplexmatch/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_CrossFeedOpportunityScenario6(t *testing.T) {
	d := New(zerolog.Nop())
	var opps []Opportunity
	d.SetCallback(func(o Opportunity) { opps = append(opps, o) })

	now := time.Now().UnixNano()
	d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedA, BidPrice: 1_000_000, AskPrice: 1_001_000, TimestampNs: now})
	d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedB, BidPrice: 1_002_000, AskPrice: 1_003_000, TimestampNs: now + 1000})

	var crossFeed []Opportunity
	for _, o := range opps {
		if o.Kind == KindCrossFeed {
			crossFeed = append(crossFeed, o)
		}
	}
	require.Len(t, crossFeed, 1, "exactly one profitable cross-feed direction exists for this quote pair")
	opp := crossFeed[0]
	assert.InDelta(t, 9.99, opp.ProfitBps, 0.01)
	assert.Equal(t, common.FeedA, opp.FastFeed)
	assert.EqualValues(t, 1, opp.SymbolID)
}

func TestDetector_SameSideDisparityIsZeroProfit(t *testing.T) {
	d := New(zerolog.Nop())
	var opps []Opportunity
	d.SetCallback(func(o Opportunity) { opps = append(opps, o) })

	now := time.Now().UnixNano()
	d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedA, BidPrice: 1_000_000, AskPrice: 1_001_000, TimestampNs: now})
	d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedB, BidPrice: 1_000_500, AskPrice: 1_001_500, TimestampNs: now})

	var disparities int
	for _, o := range opps {
		if o.Kind == KindSameSideDisparity {
			disparities++
			assert.Zero(t, o.ProfitBps)
		}
	}
	assert.Equal(t, 2, disparities, "bid and ask each disagree, so each fires its own disparity opportunity")
}

func TestDetector_NoOpportunityUntilBothFeedsQuote(t *testing.T) {
	d := New(zerolog.Nop())
	var fired int
	d.SetCallback(func(Opportunity) { fired++ })

	d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedA, BidPrice: 1_000_000, AskPrice: 1_001_000, TimestampNs: time.Now().UnixNano()})
	assert.Zero(t, fired)
}

func TestDetector_MissedOpportunityOnTradeSkew(t *testing.T) {
	d := New(zerolog.Nop())
	base := time.Now().UnixNano()

	d.OnTrade(common.TradeTick{SymbolID: 1, FeedID: common.FeedA, TimestampNs: base})
	d.OnTrade(common.TradeTick{SymbolID: 1, FeedID: common.FeedB, TimestampNs: base + int64(2*time.Millisecond)})

	assert.EqualValues(t, 1, d.MissedOpportunities())
}

func TestDetector_TradeWithinToleranceIsNotMissed(t *testing.T) {
	d := New(zerolog.Nop())
	base := time.Now().UnixNano()

	d.OnTrade(common.TradeTick{SymbolID: 1, FeedID: common.FeedA, TimestampNs: base})
	d.OnTrade(common.TradeTick{SymbolID: 1, FeedID: common.FeedB, TimestampNs: base + int64(500*time.Microsecond)})

	assert.EqualValues(t, 0, d.MissedOpportunities())
}

func TestDetector_RecentOpportunitiesWindowIsBounded(t *testing.T) {
	d := New(zerolog.Nop())
	now := time.Now().UnixNano()

	for i := 0; i < windowCapacity+10; i++ {
		d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedA, BidPrice: int64(1_000_000 + i), AskPrice: 1_001_000, TimestampNs: now})
		d.OnQuote(common.Quote{SymbolID: 1, FeedID: common.FeedB, BidPrice: int64(1_000_500 + i), AskPrice: 1_001_500, TimestampNs: now})
	}

	assert.Len(t, d.RecentOpportunities(), windowCapacity)
}

package handler

import (
	"testing"
	"time"

	"duplexmatch/internal/arbitrage"
	"duplexmatch/internal/common"
	"duplexmatch/internal/config"
	"duplexmatch/internal/engine"
	"duplexmatch/internal/feed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastFeedConfig() config.FeedConfig {
	cfg := config.DefaultFeedConfig()
	cfg.BaseLatencyNs = 0
	cfg.JitterNormalNs = 0
	cfg.SpikeProbability = 0
	cfg.DropProbability = 0
	cfg.SecondaryExtraLatencyNs = 0
	return cfg
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	eng := engine.New(zerolog.Nop())
	require.True(t, eng.RegisterSymbol(1))

	feedA := feed.New(common.FeedA, fastFeedConfig(), zerolog.Nop())
	bCfg := fastFeedConfig()
	bCfg.IsPrimaryFeed = false
	feedB := feed.New(common.FeedB, bCfg, zerolog.Nop())

	det := arbitrage.New(zerolog.Nop())
	h := New(eng, feedA, feedB, det, zerolog.Nop())
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Stop() })
	return h
}

func TestHandler_QuoteFanOutReachesDetector(t *testing.T) {
	h := newTestHandler(t)

	opps := make(chan arbitrage.Opportunity, 8)
	h.Detector.SetCallback(func(o arbitrage.Opportunity) { opps <- o })

	now := time.Now().UnixNano()
	errA, errB := h.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1_000_000, AskPrice: 1_001_000, TimestampNs: now})
	require.NoError(t, errA)
	require.NoError(t, errB)
	errA, errB = h.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1_002_000, AskPrice: 1_003_000, TimestampNs: now + 1000})
	require.NoError(t, errA)
	require.NoError(t, errB)

	select {
	case <-opps:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an arbitrage opportunity")
	}
}

func TestHandler_FeedASynthesizesRestingLiquidity(t *testing.T) {
	h := newTestHandler(t)

	require.NoError(t, h.FeedA.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1_000_000, AskPrice: 1_001_000, BidSize: 5, AskSize: 5}))

	require.Eventually(t, func() bool {
		b, ok := h.Engine.GetOrderBook(1)
		return ok && b.TotalOrders() == 2
	}, time.Second, time.Millisecond, "synthesized bid/ask pair should rest on the book")

	b, _ := h.Engine.GetOrderBook(1)
	bid, bidOK := b.BestBid()
	ask, askOK := b.BestAsk()
	require.True(t, bidOK)
	require.True(t, askOK)
	assert.EqualValues(t, 1_000_000, bid)
	assert.EqualValues(t, 1_001_000, ask)
}

func TestHandler_ReplacesPriorSynthesizedOrdersOnNewQuote(t *testing.T) {
	h := newTestHandler(t)

	require.NoError(t, h.FeedA.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1_000_000, AskPrice: 1_001_000, BidSize: 5, AskSize: 5}))
	require.Eventually(t, func() bool {
		b, ok := h.Engine.GetOrderBook(1)
		return ok && b.TotalOrders() == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, h.FeedA.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1_005_000, AskPrice: 1_006_000, BidSize: 5, AskSize: 5}))
	require.Eventually(t, func() bool {
		b, ok := h.Engine.GetOrderBook(1)
		if !ok {
			return false
		}
		bid, _ := b.BestBid()
		return b.TotalOrders() == 2 && bid == 1_005_000
	}, time.Second, time.Millisecond, "old synthesized pair must be cancelled, not accumulated")
}

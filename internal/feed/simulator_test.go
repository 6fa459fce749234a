package feed

import (
	"testing"
	"time"

	"duplexmatch/internal/common"
	"duplexmatch/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() config.FeedConfig {
	cfg := config.DefaultFeedConfig()
	cfg.BaseLatencyNs = 0
	cfg.JitterNormalNs = 0
	cfg.SpikeProbability = 0
	cfg.DropProbability = 0
	cfg.SecondaryExtraLatencyNs = 0
	return cfg
}

func recvUpdate(t *testing.T, ch chan common.MarketDataUpdate) common.MarketDataUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feed update")
		return common.MarketDataUpdate{}
	}
}

func TestSimulator_DeliversQuoteWithSequenceNumber(t *testing.T) {
	sim := New(common.FeedA, fastConfig(), zerolog.Nop())
	updates := make(chan common.MarketDataUpdate, 8)
	sim.SetCallback(func(u common.MarketDataUpdate, _ common.FeedStatsSnapshot) { updates <- u })
	require.NoError(t, sim.Start())
	defer sim.Stop()

	require.NoError(t, sim.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1000, AskPrice: 1010}))
	require.NoError(t, sim.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1001, AskPrice: 1011}))

	first := recvUpdate(t, updates)
	second := recvUpdate(t, updates)
	require.Equal(t, common.KindQuote, first.Kind)
	assert.EqualValues(t, 1, first.Quote.SequenceNumber)
	assert.EqualValues(t, 2, second.Quote.SequenceNumber)
	assert.Equal(t, common.FeedA, first.Quote.FeedID)

	stats := sim.Stats()
	assert.EqualValues(t, 2, stats.MessagesReceived)
	assert.EqualValues(t, 0, stats.MessagesDropped)
}

func TestSimulator_FullDropProbabilityDeliversNothing(t *testing.T) {
	cfg := fastConfig()
	cfg.DropProbability = 1
	sim := New(common.FeedB, cfg, zerolog.Nop())
	var delivered int
	sim.SetCallback(func(common.MarketDataUpdate, common.FeedStatsSnapshot) { delivered++ })
	require.NoError(t, sim.Start())

	const n = 25
	for i := 0; i < n; i++ {
		require.NoError(t, sim.PublishTrade(common.TradeTick{SymbolID: 1, Price: 1000, Quantity: 5}))
	}
	// Stop discards whatever is still queued, so wait for the worker to
	// have taken every published message before stopping.
	require.Eventually(t, func() bool {
		return sim.Stats().MessagesDropped == n
	}, time.Second, time.Millisecond)
	require.NoError(t, sim.Stop())

	assert.Zero(t, delivered)
	stats := sim.Stats()
	assert.EqualValues(t, n, stats.MessagesDropped)
	assert.EqualValues(t, 0, stats.MessagesReceived)
}

func TestSimulator_PublishWhileStoppedIsError(t *testing.T) {
	sim := New(common.FeedA, fastConfig(), zerolog.Nop())
	err := sim.PublishQuote(common.Quote{SymbolID: 1})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSimulator_SecondaryFeedAddsExtraLatency(t *testing.T) {
	cfg := fastConfig()
	cfg.IsPrimaryFeed = false
	cfg.SecondaryExtraLatencyNs = 1_000_000
	sim := New(common.FeedB, cfg, zerolog.Nop())
	assert.GreaterOrEqual(t, sim.sampleLatencyNs(), int64(1_000_000))
}

// jitter_events reflects the real wall-clock gap between deliveries,
// not the synthetic injected latency: with the injected latency
// pinned at zero, a warm-up run of near-instant deliveries followed by
// an artificial pause before the next one must still register as
// jitter, since that pause is exactly the "idle time captured in the
// inter-arrival gap" behavior grounded on the original feed simulator.
func TestSimulator_JitterEventsReflectRealInterArrivalGaps(t *testing.T) {
	sim := New(common.FeedA, fastConfig(), zerolog.Nop())
	updates := make(chan common.MarketDataUpdate, 200)
	sim.SetCallback(func(u common.MarketDataUpdate, _ common.FeedStatsSnapshot) { updates <- u })
	require.NoError(t, sim.Start())
	defer sim.Stop()

	for i := 0; i < 101; i++ {
		require.NoError(t, sim.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1000, AskPrice: 1010}))
		recvUpdate(t, updates)
	}
	require.Zero(t, sim.Stats().JitterEvents)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sim.PublishQuote(common.Quote{SymbolID: 1, BidPrice: 1000, AskPrice: 1010}))
	recvUpdate(t, updates)

	assert.GreaterOrEqual(t, sim.Stats().JitterEvents, uint64(1))
}

func TestSimulator_StopDiscardsQueuedUpdatesWithoutDelivering(t *testing.T) {
	cfg := fastConfig()
	cfg.BaseLatencyNs = int64(50 * time.Millisecond)
	sim := New(common.FeedA, cfg, zerolog.Nop())
	var delivered int
	sim.SetCallback(func(common.MarketDataUpdate, common.FeedStatsSnapshot) { delivered++ })
	require.NoError(t, sim.Start())

	for i := 0; i < 10; i++ {
		require.NoError(t, sim.PublishQuote(common.Quote{SymbolID: 1}))
	}
	require.NoError(t, sim.Stop())

	assert.Less(t, delivered, 10)
}

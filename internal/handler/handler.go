// Package handler composes two feed simulators, an arbitrage
// detector, and a matching engine into the end-to-end system spec.md
// §4.6 describes: feed A's quotes both feed the detector and
// synthesize resting liquidity in the engine, feed B's quotes only
// feed the detector.
package handler

import (
	"sync"
	"sync/atomic"

	"duplexmatch/internal/arbitrage"
	"duplexmatch/internal/common"
	"duplexmatch/internal/engine"
	"duplexmatch/internal/feed"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// syntheticIDStart is where the process-wide synthetic order-id
// counter begins, per spec.md §9's "synthetic engine-side order ids
// starting at 1_000_000 to distinguish from external ids".
const syntheticIDStart = 1_000_000

type synthPair struct {
	bidID, askID uint64
	has          bool
}

// Handler owns the feeds, the detector, and the engine (spec.md §9's
// cycle-free ownership: "the feed handler owns feeds, the detector,
// and the engine; no back-pointers").
type Handler struct {
	Engine   *engine.Engine
	FeedA    *feed.Simulator
	FeedB    *feed.Simulator
	Detector *arbitrage.Detector

	syntheticID atomic.Uint64

	mu        sync.Mutex
	synthetic map[uint32]synthPair

	log zerolog.Logger
}

// New wires feedA's and feedB's delivery callbacks to the detector
// (and, for feed A only, to synthesized order submission) and returns
// a ready-to-Start Handler.
func New(eng *engine.Engine, feedA, feedB *feed.Simulator, det *arbitrage.Detector, log zerolog.Logger) *Handler {
	h := &Handler{
		Engine:    eng,
		FeedA:     feedA,
		FeedB:     feedB,
		Detector:  det,
		synthetic: make(map[uint32]synthPair),
		log:       log.With().Str("component", "handler").Logger(),
	}
	h.syntheticID.Store(syntheticIDStart)

	feedA.SetCallback(h.onFeedAUpdate)
	feedB.SetCallback(h.onFeedBUpdate)
	return h
}

// Start brings up the engine and both feeds.
func (h *Handler) Start() error {
	if err := h.Engine.Start(); err != nil {
		return err
	}
	if err := h.FeedA.Start(); err != nil {
		return err
	}
	if err := h.FeedB.Start(); err != nil {
		return err
	}
	return nil
}

// Stop joins both feeds, then the engine.
func (h *Handler) Stop() error {
	_ = h.FeedA.Stop()
	_ = h.FeedB.Stop()
	return h.Engine.Stop()
}

// SetVolatileMarket propagates a single volatility flag to both feeds.
func (h *Handler) SetVolatileMarket(v bool) {
	h.FeedA.SetVolatileMarket(v)
	h.FeedB.SetVolatileMarket(v)
}

// PublishQuote fans the same logical quote out to both feed
// simulators; each stamps its own feed id, sequence number, and
// independently injected latency.
func (h *Handler) PublishQuote(q common.Quote) (errA, errB error) {
	errA = h.FeedA.PublishQuote(q)
	errB = h.FeedB.PublishQuote(q)
	return
}

// PublishTrade fans the same logical trade print out to both feeds.
func (h *Handler) PublishTrade(t common.TradeTick) (errA, errB error) {
	errA = h.FeedA.PublishTrade(t)
	errB = h.FeedB.PublishTrade(t)
	return
}

func (h *Handler) onFeedAUpdate(upd common.MarketDataUpdate, _ common.FeedStatsSnapshot) {
	switch upd.Kind {
	case common.KindQuote:
		h.Detector.OnQuote(*upd.Quote)
		h.synthesizeFromQuote(*upd.Quote)
	case common.KindTradeTick:
		h.Detector.OnTrade(*upd.Tick)
	}
}

func (h *Handler) onFeedBUpdate(upd common.MarketDataUpdate, _ common.FeedStatsSnapshot) {
	switch upd.Kind {
	case common.KindQuote:
		h.Detector.OnQuote(*upd.Quote)
	case common.KindTradeTick:
		h.Detector.OnTrade(*upd.Tick)
	}
}

// synthesizeFromQuote resolves spec.md §9's flagged Open Question:
// rather than resubmitting a fresh bid/ask pair on every quote update
// and accumulating unbounded resting liquidity, it cancels the prior
// synthesized pair for this symbol before submitting the replacement.
func (h *Handler) synthesizeFromQuote(q common.Quote) {
	h.mu.Lock()
	prior, hadPrior := h.synthetic[q.SymbolID]
	h.mu.Unlock()

	if hadPrior {
		_ = h.Engine.CancelOrder(q.SymbolID, prior.bidID)
		_ = h.Engine.CancelOrder(q.SymbolID, prior.askID)
	}

	pair := synthPair{has: true}
	if q.BidSize > 0 {
		pair.bidID = h.nextSyntheticID()
		h.log.Debug().Str("synthetic_id", uuid.New().String()).Uint64("order_id", pair.bidID).Msg("synthesizing bid")
		_ = h.Engine.SubmitOrder(common.Order{
			OrderID: pair.bidID, SymbolID: q.SymbolID, Side: common.Buy, Type: common.LimitOrder,
			Price: q.BidPrice, Quantity: q.BidSize,
		})
	}
	if q.AskSize > 0 {
		pair.askID = h.nextSyntheticID()
		h.log.Debug().Str("synthetic_id", uuid.New().String()).Uint64("order_id", pair.askID).Msg("synthesizing ask")
		_ = h.Engine.SubmitOrder(common.Order{
			OrderID: pair.askID, SymbolID: q.SymbolID, Side: common.Sell, Type: common.LimitOrder,
			Price: q.AskPrice, Quantity: q.AskSize,
		})
	}

	h.mu.Lock()
	h.synthetic[q.SymbolID] = pair
	h.mu.Unlock()
}

func (h *Handler) nextSyntheticID() uint64 {
	return h.syntheticID.Add(1) - 1
}

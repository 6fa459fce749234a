// Command server wires up one matching engine, two redundant market
// data feeds, and an arbitrage detector into a runnable demo: a
// synthetic quote stream drives feed A's resting liquidity and the
// detector, a rate-limited submitter fires aggressive orders against
// the book, and periodic stats are logged until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"duplexmatch/internal/arbitrage"
	"duplexmatch/internal/common"
	"duplexmatch/internal/config"
	"duplexmatch/internal/engine"
	"duplexmatch/internal/feed"
	"duplexmatch/internal/handler"
	"duplexmatch/internal/logging"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("DUPLEXMATCH_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{Level: os.Getenv("LOG_LEVEL"), Pretty: true})

	eng := engine.New(log)
	for _, sym := range cfg.Engine.Symbols {
		eng.RegisterSymbol(sym)
	}
	eng.SetTradeCallback(func(tr common.Trade) {
		log.Info().
			Str("price", formatPrice(tr.Price)).
			Uint64("quantity", tr.Quantity).
			Uint64("buy_order_id", tr.BuyOrderID).
			Uint64("sell_order_id", tr.SellOrderID).
			Msg("trade")
	})

	feedA := feed.New(common.FeedA, cfg.FeedA, log)
	feedB := feed.New(common.FeedB, cfg.FeedB, log)
	det := arbitrage.New(log)
	det.SetCallback(func(o arbitrage.Opportunity) {
		log.Debug().
			Uint32("symbol_id", o.SymbolID).
			Str("kind", o.Kind.String()).
			Float64("profit_bps", o.ProfitBps).
			Msg("arbitrage opportunity")
	})

	h := handler.New(eng, feedA, feedB, det, log)
	if err := h.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start handler")
		os.Exit(1)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go runQuotePublisher(ctx, &wg, h, cfg)
	go runSubmitter(ctx, &wg, eng, cfg)
	go runStatsPrinter(ctx, &wg, eng, feedA, feedB, det, log, time.Duration(cfg.Engine.StatsIntervalS)*time.Second)

	log.Info().Msg("duplexmatch running; press Ctrl+C to stop")
	<-ctx.Done()

	wg.Wait()
	if err := h.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping handler")
	}
	log.Info().Msg("duplexmatch stopped")
}

// runQuotePublisher simulates an upstream price feed: a slow random
// walk for feed A, mirrored with a small independent offset for feed B
// so the arbitrage detector has something to disagree about.
func runQuotePublisher(ctx context.Context, wg *sync.WaitGroup, h *handler.Handler, cfg config.Config) {
	defer wg.Done()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	mid := int64(100 * common.PriceScale)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mid += int64(rand.IntN(21) - 10)
			spread := int64(10)
			bOffset := int64(rand.IntN(21) - 10)

			for _, sym := range cfg.Engine.Symbols {
				now := time.Now().UnixNano()
				_ = h.FeedA.PublishQuote(common.Quote{
					SymbolID: sym, BidPrice: mid - spread, AskPrice: mid + spread,
					BidSize: 10, AskSize: 10, TimestampNs: now,
				})
				_ = h.FeedB.PublishQuote(common.Quote{
					SymbolID: sym, BidPrice: mid - spread + bOffset, AskPrice: mid + spread + bOffset,
					BidSize: 10, AskSize: 10, TimestampNs: now,
				})
			}
		}
	}
}

// runSubmitter fires rate-limited aggressive orders against the book
// to generate trades against feed A's synthesized resting liquidity.
func runSubmitter(ctx context.Context, wg *sync.WaitGroup, eng *engine.Engine, cfg config.Config) {
	defer wg.Done()
	limiter := rate.NewLimiter(rate.Limit(20), 5)
	var nextID atomic.Uint64
	nextID.Store(1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if len(cfg.Engine.Symbols) == 0 {
			continue
		}
		sym := cfg.Engine.Symbols[rand.IntN(len(cfg.Engine.Symbols))]
		side := common.Buy
		if rand.IntN(2) == 1 {
			side = common.Sell
		}
		price := int64(100*common.PriceScale) + int64(rand.IntN(41)-20)
		_ = eng.SubmitOrder(common.Order{
			OrderID: nextID.Add(1), SymbolID: sym, Side: side, Type: common.LimitOrder,
			Price: price, Quantity: uint64(1 + rand.IntN(5)),
		})
	}
}

func runStatsPrinter(
	ctx context.Context, wg *sync.WaitGroup,
	eng *engine.Engine, feedA, feedB *feed.Simulator, det *arbitrage.Detector,
	log zerolog.Logger, interval time.Duration,
) {
	defer wg.Done()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			es := eng.GetStats()
			as := feedA.Stats()
			bs := feedB.Stats()
			log.Info().
				Uint64("total_orders", es.TotalOrders).
				Uint64("total_trades", es.TotalTrades).
				Uint64("total_volume", es.TotalVolume).
				Float64("feed_a_avg_latency_ns", as.AverageLatencyNs()).
				Float64("feed_b_avg_latency_ns", bs.AverageLatencyNs()).
				Uint64("missed_opportunities", det.MissedOpportunities()).
				Msg("stats")
		}
	}
}

func formatPrice(p int64) string {
	return decimal.New(p, 0).DivRound(decimal.New(common.PriceScale, 0), 4).String()
}

// Package feed implements the market-data feed simulator: a
// publish-side API that timestamps and sequences quotes/trades onto an
// SPSC queue, and a worker thread that injects latency, applies
// Bernoulli packet loss, and invokes a delivery callback.
package feed

import (
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"duplexmatch/internal/common"
	"duplexmatch/internal/config"
	"duplexmatch/internal/queue"
	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

// ErrStopped is returned by Publish* when the simulator's worker is
// not running.
var ErrStopped = errors.New("feed: not running")

const idleSleep = 200 * time.Microsecond

// UpdateCallback is invoked on the worker thread for every delivered
// (non-dropped) update, alongside a snapshot of the stats taken at
// delivery time.
type UpdateCallback func(common.MarketDataUpdate, common.FeedStatsSnapshot)

type simState int32

const (
	stateIdle simState = iota
	stateRunning
	stateStopping
)

// Simulator is one feed's ingest queue plus its dedicated delivery
// worker. Grounded on internal/engine.Engine's tomb-supervised worker,
// generalized from dispatching commands to injecting latency before a
// single callback invocation.
type Simulator struct {
	id  common.FeedID
	cfg config.FeedConfig
	log zerolog.Logger

	q   *queue.SPSC[common.MarketDataUpdate]
	seq atomic.Uint64

	state    atomic.Int32
	volatile atomic.Bool
	t        *tomb.Tomb
	stats    stats

	onUpdate UpdateCallback
}

// New constructs a Simulator for the given feed identity. cfg is
// copied and clamped defensively (Load already clamps, but a
// Simulator built directly from a literal must not skip validation).
func New(id common.FeedID, cfg config.FeedConfig, log zerolog.Logger) *Simulator {
	cfg.Clamp()
	sim := &Simulator{
		id:  id,
		cfg: cfg,
		log: log.With().Str("component", "feed").Str("feed_id", id.String()).Logger(),
		q:   queue.NewSPSC[common.MarketDataUpdate](),
	}
	sim.volatile.Store(cfg.VolatileMarket)
	return sim
}

// SetCallback installs the delivery callback. Install before Start().
func (s *Simulator) SetCallback(cb UpdateCallback) {
	s.onUpdate = cb
}

// SetVolatileMarket toggles volatility mode at runtime, letting
// internal/handler propagate a single market-wide flag to both feeds
// (spec.md §4.6: "volatility mode is propagated to both feeds").
func (s *Simulator) SetVolatileMarket(v bool) {
	s.volatile.Store(v)
}

// Stats returns a snapshot of the running counters.
func (s *Simulator) Stats() common.FeedStatsSnapshot {
	return s.stats.Snapshot()
}

// PublishQuote assigns a monotonic sequence number and timestamp (if
// unset), enqueues, and returns immediately.
func (s *Simulator) PublishQuote(q common.Quote) error {
	if simState(s.state.Load()) != stateRunning {
		return ErrStopped
	}
	q.FeedID = s.id
	q.SequenceNumber = s.seq.Add(1)
	if q.TimestampNs == 0 {
		q.TimestampNs = time.Now().UnixNano()
	}
	s.q.Enqueue(common.MarketDataUpdate{Kind: common.KindQuote, Quote: &q})
	return nil
}

// PublishTrade assigns a monotonic sequence number and timestamp (if
// unset), enqueues, and returns immediately.
func (s *Simulator) PublishTrade(tick common.TradeTick) error {
	if simState(s.state.Load()) != stateRunning {
		return ErrStopped
	}
	tick.FeedID = s.id
	tick.SequenceNumber = s.seq.Add(1)
	if tick.TimestampNs == 0 {
		tick.TimestampNs = time.Now().UnixNano()
	}
	s.q.Enqueue(common.MarketDataUpdate{Kind: common.KindTradeTick, Tick: &tick})
	return nil
}

// Start spawns the delivery worker.
func (s *Simulator) Start() error {
	if !s.state.CompareAndSwap(int32(stateIdle), int32(stateRunning)) {
		return errors.New("feed: already running")
	}
	s.t = &tomb.Tomb{}
	s.t.Go(s.run)
	s.log.Info().Msg("feed started")
	return nil
}

// Stop signals shutdown and discards any updates still queued, per
// spec.md §5's "any still-queued pending updates are discarded on
// stop" clause — unlike the engine, the feed does not drain.
func (s *Simulator) Stop() error {
	if simState(s.state.Load()) == stateIdle {
		return nil
	}
	s.state.Store(int32(stateStopping))
	s.t.Kill(nil)
	err := s.t.Wait()
	s.state.Store(int32(stateIdle))
	s.log.Info().Msg("feed stopped")
	return err
}

func (s *Simulator) run() error {
	for {
		select {
		case <-s.t.Dying():
			for {
				if _, ok := s.q.Dequeue(); !ok {
					return nil
				}
			}
		default:
			upd, ok := s.q.Dequeue()
			if !ok {
				time.Sleep(idleSleep)
				continue
			}
			s.deliver(upd)
		}
	}
}

func (s *Simulator) deliver(upd common.MarketDataUpdate) {
	latencyNs := s.sampleLatencyNs()
	time.Sleep(time.Duration(latencyNs))

	if rand.Float64() < s.cfg.DropProbability {
		s.stats.recordDropped()
		return
	}

	s.stats.recordDelivered(time.Now().UnixNano())
	if s.onUpdate != nil {
		s.onUpdate(upd, s.stats.Snapshot())
	}
}

// sampleLatencyNs draws one injected-latency value per spec.md §4.4:
// a constant floor, uniform jitter (or a Bernoulli spike replacing it),
// an extra fixed delay for non-primary feeds, and a volatility
// multiplier that also suppresses the spike branch.
func (s *Simulator) sampleLatencyNs() int64 {
	base := s.cfg.BaseLatencyNs
	if !s.cfg.IsPrimaryFeed {
		base += s.cfg.SecondaryExtraLatencyNs
	}

	normalJitterNs := float64(s.cfg.JitterNormalNs)
	if s.volatile.Load() {
		normalJitterNs *= s.cfg.VolatileJitterMultiplier
		return base + int64(rand.Float64()*normalJitterNs)
	}

	if rand.Float64() < s.cfg.SpikeProbability {
		return base + int64(rand.Float64()*float64(s.cfg.JitterSpikeNs))
	}
	return base + int64(rand.Float64()*normalJitterNs)
}

package feed

import (
	"sync/atomic"

	"duplexmatch/internal/common"
)

// stats holds a feed simulator's running counters as independent
// atomics, the same layout idiom as internal/engine.stats.
//
// The latency figures are not derived from the synthetic latency
// injected by sampleLatencyNs — that value only drives how long
// deliver() sleeps before this message is recorded. What stats
// actually measures is the real wall-clock gap between one delivery
// and the next, grounded on
// _examples/original_source/include/network/feed_simulator.hpp's
// worker_loop() (`now - stats_.last_update`). That gap also captures
// any time the worker spent idling with an empty queue, so it reflects
// actual delivery cadence, not just the injected-latency distribution.
type stats struct {
	messagesReceived atomic.Uint64
	messagesDropped  atomic.Uint64
	minLatencyNs     atomic.Uint64
	maxLatencyNs     atomic.Uint64
	sumLatencyNs     atomic.Uint64
	jitterEvents     atomic.Uint64
	lastUpdateNs     atomic.Int64
}

// recordDelivered folds one delivered message's real inter-arrival gap
// (the wall-clock time since the previous delivery) into the running
// min/max/sum, and bumps jitter_events when that gap exceeds 10x the
// running average after a 100-message warm-up. nowNs is the delivery
// timestamp; the very first delivery has no predecessor to diff
// against, so it only seeds lastUpdateNs and counts toward
// messages_received.
func (s *stats) recordDelivered(nowNs int64) {
	received := s.messagesReceived.Add(1)
	prev := s.lastUpdateNs.Swap(nowNs)
	if prev == 0 {
		return
	}
	gapNs := uint64(nowNs - prev)

	s.sumLatencyNs.Add(gapNs)
	for {
		cur := s.minLatencyNs.Load()
		if cur != 0 && cur <= gapNs {
			break
		}
		if s.minLatencyNs.CompareAndSwap(cur, gapNs) {
			break
		}
	}
	for {
		cur := s.maxLatencyNs.Load()
		if cur >= gapNs {
			break
		}
		if s.maxLatencyNs.CompareAndSwap(cur, gapNs) {
			break
		}
	}

	if received > 100 {
		avg := float64(s.sumLatencyNs.Load()) / float64(received-1)
		if avg > 0 && float64(gapNs) > 10*avg {
			s.jitterEvents.Add(1)
		}
	}
}

func (s *stats) recordDropped() {
	s.messagesDropped.Add(1)
}

// Snapshot copies each counter independently into a plain value. See
// common.FeedStatsSnapshot's doc comment: no cross-field atomicity is
// implied.
func (s *stats) Snapshot() common.FeedStatsSnapshot {
	return common.FeedStatsSnapshot{
		MessagesReceived: s.messagesReceived.Load(),
		MessagesDropped:  s.messagesDropped.Load(),
		MinLatencyNs:     s.minLatencyNs.Load(),
		MaxLatencyNs:     s.maxLatencyNs.Load(),
		SumLatencyNs:     s.sumLatencyNs.Load(),
		JitterEvents:     s.jitterEvents.Load(),
	}
}

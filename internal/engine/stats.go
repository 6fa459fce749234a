package engine

import (
	"sync/atomic"

	"duplexmatch/internal/common"
)

// stats holds the engine's running counters as independent atomics.
// Grounded on the atomic-field idiom in
// ejyy-femto_go/ringbuffer.go (load/store on individual uint64
// fields), generalized from two positions to a full counter set.
type stats struct {
	totalOrders     atomic.Uint64
	rejectedOrders  atomic.Uint64
	cancelledOrders atomic.Uint64
	modifiedOrders  atomic.Uint64
	totalTrades     atomic.Uint64
	totalVolume     atomic.Uint64
}

// Snapshot copies each counter independently into a plain value. See
// common.EngineStatsSnapshot's doc comment: no cross-field atomicity
// is implied.
func (s *stats) Snapshot() common.EngineStatsSnapshot {
	return common.EngineStatsSnapshot{
		TotalOrders:     s.totalOrders.Load(),
		RejectedOrders:  s.rejectedOrders.Load(),
		CancelledOrders: s.cancelledOrders.Load(),
		ModifiedOrders:  s.modifiedOrders.Load(),
		TotalTrades:     s.totalTrades.Load(),
		TotalVolume:     s.totalVolume.Load(),
	}
}

package book

import "duplexmatch/internal/common"

// Depth returns up to n price levels per side, best price first.
//
// Supplemented from original_source/include/core/orderbook.hpp, whose
// C++ orderbook exposes a depth snapshot for its CLI demo. It is pure
// read-derived data over existing state — no new invariant — so it is
// folded in here rather than treated as a new book operation.
func (b *OrderBook) Depth(n int) (bids, asks []common.PriceLevelView) {
	bids = scanLevels(b.buyLevels, n)
	asks = scanLevels(b.sellLevels, n)
	return bids, asks
}

func scanLevels(levels interface {
	Scan(func(*PriceLevel) bool)
}, n int) []common.PriceLevelView {
	views := make([]common.PriceLevelView, 0, n)
	levels.Scan(func(lvl *PriceLevel) bool {
		if len(views) >= n {
			return false
		}
		views = append(views, common.PriceLevelView{
			Price:       lvl.Price,
			TotalVolume: lvl.TotalVolume(),
			OrderCount:  lvl.OrderCount(),
		})
		return true
	})
	return views
}

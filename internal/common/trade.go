package common

import "fmt"

// Trade is one matched slice, created atomically with the match and
// never mutated after emission.
//
// Same packing discipline as Order: fields ordered largest-to-smallest
// so the struct is exactly 64 bytes, cache-line aligned.
type Trade struct {
	TradeID     uint64 // monotonic within a book, starting at 1
	Price       int64  // execution price: always the resting (passive) order's price
	Quantity    uint64
	TimestampNs int64
	BuyOrderID  uint64
	SellOrderID uint64

	SymbolID uint32

	// AggressorSide is the side of the order that triggered the match
	// (crossed the book). The opposite side is the passive / maker side.
	AggressorSide Side

	_ [11]byte // pad to 64 bytes
}

// AggressorOrderID returns the id of the order that crossed the book.
func (t *Trade) AggressorOrderID() uint64 {
	if t.AggressorSide == Buy {
		return t.BuyOrderID
	}
	return t.SellOrderID
}

// PassiveOrderID returns the id of the resting order that was matched.
func (t *Trade) PassiveOrderID() uint64 {
	if t.AggressorSide == Buy {
		return t.SellOrderID
	}
	return t.BuyOrderID
}

// BuyIsMaker reports whether the buy-side order was the resting
// (maker) order in this trade.
func (t *Trade) BuyIsMaker() bool {
	return t.AggressorSide == Sell
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%d symbol=%d price=%d qty=%d buy=%d sell=%d aggressor=%s}",
		t.TradeID, t.SymbolID, t.Price, t.Quantity, t.BuyOrderID, t.SellOrderID, t.AggressorSide,
	)
}

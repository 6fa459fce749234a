package common

import "fmt"

// Order is a limit order resting in, or being matched against, a book.
//
// Field order is deliberate: grouped largest-to-smallest with no gaps,
// so the struct packs to exactly one cache line (64 bytes) without the
// compiler inserting alignment padding. layout_test.go asserts this.
type Order struct {
	OrderID          uint64 // caller-assigned, unique within a symbol
	Price            int64  // fixed-point, scale = PriceScale
	Quantity         uint64 // original quantity
	ExecutedQuantity uint64
	TimestampNs      int64 // monotonic nanoseconds, assigned at construction if zero

	// SequenceNumber is assigned by OrderBook.AddOrder from a
	// per-book monotonic counter when the order is accepted; it is
	// zero on an order that was rejected before reaching the book
	// (unknown symbol, invalid price/quantity, duplicate id).
	SequenceNumber uint64

	SymbolID uint32
	ClientID uint32

	Side   Side
	Type   OrderType
	TIF    TimeInForce
	Status OrderStatus

	_ [4]byte // pad to 64 bytes
}

// Remaining returns the unexecuted quantity.
func (o *Order) Remaining() uint64 {
	return o.Quantity - o.ExecutedQuantity
}

// Filled reports whether the order has no quantity left to execute.
func (o *Order) Filled() bool {
	return o.ExecutedQuantity >= o.Quantity
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d symbol=%d side=%s price=%d qty=%d/%d status=%s seq=%d}",
		o.OrderID, o.SymbolID, o.Side, o.Price, o.ExecutedQuantity, o.Quantity, o.Status, o.SequenceNumber,
	)
}

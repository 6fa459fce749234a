// Package book implements the per-symbol limit order book: price
// levels indexed by price, strict price/time priority matching, and
// partial-fill accounting.
package book

import (
	"container/list"

	"duplexmatch/internal/common"
)

// PriceLevel is the FIFO of orders resting at one price on one side,
// plus a cached total of their remaining quantity.
//
// Grounded on saiputravu-Exchange/internal/engine/orderbook.go's
// PriceLevel{priceLevel float64; orders []*Order}, but backed by a
// container/list.List instead of a slice: order_index needs an O(1)
// removal handle for cancel (spec's O(log n) contract on order_index
// would otherwise degrade to an O(n) slice search per cancel).
type PriceLevel struct {
	Price       int64
	orders      *list.List
	totalVolume uint64
}

func newPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{Price: price, orders: list.New()}
}

// pushBack rests o at the tail of the level (new arrival, or an order
// that just lost time priority via modify).
func (l *PriceLevel) pushBack(o *common.Order) *list.Element {
	l.totalVolume += o.Remaining()
	return l.orders.PushBack(o)
}

// front returns the oldest resting order's element, or nil if empty.
func (l *PriceLevel) front() *list.Element {
	return l.orders.Front()
}

// remove detaches e from the level. Caller is responsible for also
// removing the order from order_index.
func (l *PriceLevel) remove(e *list.Element) {
	o := e.Value.(*common.Order)
	l.totalVolume -= o.Remaining()
	l.orders.Remove(e)
}

// shrink accounts for a match that reduced a still-resting order's
// remaining quantity by qty, without removing it from the level.
func (l *PriceLevel) shrink(qty uint64) {
	l.totalVolume -= qty
}

func (l *PriceLevel) empty() bool {
	return l.orders.Len() == 0
}

// TotalVolume is the sum of remaining quantity across every order
// resting at this level.
func (l *PriceLevel) TotalVolume() uint64 {
	return l.totalVolume
}

// OrderCount is the number of orders resting at this level.
func (l *PriceLevel) OrderCount() int {
	return l.orders.Len()
}

package book

import (
	"container/list"
	"sync/atomic"
	"time"

	"duplexmatch/internal/common"
	"github.com/rs/zerolog"
	"github.com/tidwall/btree"
)

// orderLocation is the non-owning handle order_index keeps for each
// resting order: enough to reach it (and remove it) without searching.
type orderLocation struct {
	side  common.Side
	level *PriceLevel
	elem  *list.Element
}

// OrderBook is one symbol's book: price-indexed levels on each side
// plus an order-id index, matching strictly by price then arrival time.
//
// buyLevels/sellLevels are tidwall/btree.BTreeG[*PriceLevel], grounded
// directly on saiputravu-Exchange/internal/engine/orderbook.go (same
// construction: a custom less-func per side, MinMut/GetMut/Set/Delete
// for level access).
type OrderBook struct {
	SymbolID uint32

	buyLevels  *btree.BTreeG[*PriceLevel] // highest price first
	sellLevels *btree.BTreeG[*PriceLevel] // lowest price first

	orderIndex map[uint64]*orderLocation

	nextTradeID    atomic.Uint64
	nextSequenceNo atomic.Uint64

	log zerolog.Logger
}

// NewOrderBook constructs an empty book for one symbol.
func NewOrderBook(symbolID uint32, log zerolog.Logger) *OrderBook {
	return &OrderBook{
		SymbolID: symbolID,
		buyLevels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price > b.Price
		}),
		sellLevels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price < b.Price
		}),
		orderIndex: make(map[uint64]*orderLocation),
		log:        log.With().Uint32("symbol", symbolID).Logger(),
	}
}

func (b *OrderBook) levelsFor(side common.Side) *btree.BTreeG[*PriceLevel] {
	if side == common.Buy {
		return b.buyLevels
	}
	return b.sellLevels
}

func (b *OrderBook) oppositeLevelsFor(side common.Side) *btree.BTreeG[*PriceLevel] {
	if side == common.Buy {
		return b.sellLevels
	}
	return b.buyLevels
}

// crosses reports whether an incoming order at side/price crosses the
// opposing best price. Equal prices cross: a buy at the ask or a sell
// at the bid both trade at that shared price.
func crosses(side common.Side, price int64, bestOpposite int64) bool {
	if side == common.Buy {
		return price >= bestOpposite
	}
	return price <= bestOpposite
}

// AddOrder validates, matches, and rests o. Non-positive price or
// zero quantity orders are silently dropped (no trades, no counters).
// A duplicate order id on this book is a no-op. Every order that
// passes validation is stamped with this book's next sequence number,
// the same monotonic-counter idiom internal/feed uses for quotes and
// trade ticks, so every accepted order can be placed in the book's
// total order regardless of which side or price level it touched.
// Dropped orders are not stamped.
func (b *OrderBook) AddOrder(o common.Order) []common.Trade {
	if o.Quantity == 0 || o.Price <= 0 {
		return nil
	}
	if _, exists := b.orderIndex[o.OrderID]; exists {
		return nil
	}
	if o.TimestampNs == 0 {
		o.TimestampNs = time.Now().UnixNano()
	}
	o.SequenceNumber = b.nextSequenceNo.Add(1)
	o.Status = common.StatusNew

	incoming := &o
	var trades []common.Trade

	opposite := b.oppositeLevelsFor(incoming.Side)
	for incoming.Remaining() > 0 {
		best, ok := opposite.MinMut()
		if !ok || !crosses(incoming.Side, incoming.Price, best.Price) {
			break
		}

		for incoming.Remaining() > 0 && !best.empty() {
			elem := best.front()
			resting := elem.Value.(*common.Order)

			matchQty := min(incoming.Remaining(), resting.Remaining())
			incoming.ExecutedQuantity += matchQty
			resting.ExecutedQuantity += matchQty
			best.shrink(matchQty)

			trades = append(trades, b.buildTrade(incoming, resting, matchQty))

			if resting.Filled() {
				resting.Status = common.StatusFilled
				best.orders.Remove(elem)
				delete(b.orderIndex, resting.OrderID)
			} else {
				resting.Status = common.StatusPartiallyFilled
			}
		}

		if best.empty() {
			opposite.Delete(best)
		}
	}

	if incoming.ExecutedQuantity > 0 {
		if incoming.Filled() {
			incoming.Status = common.StatusFilled
		} else {
			incoming.Status = common.StatusPartiallyFilled
		}
	}

	if incoming.Remaining() > 0 {
		b.rest(incoming)
	}

	return trades
}

// rest inserts o at the tail of its level, creating the level if this
// is its first order at that price.
func (b *OrderBook) rest(o *common.Order) {
	levels := b.levelsFor(o.Side)
	level, ok := levels.GetMut(&PriceLevel{Price: o.Price})
	if !ok {
		level = newPriceLevel(o.Price)
		levels.Set(level)
	}
	elem := level.pushBack(o)
	b.orderIndex[o.OrderID] = &orderLocation{side: o.Side, level: level, elem: elem}
}

func (b *OrderBook) buildTrade(incoming, resting *common.Order, qty uint64) common.Trade {
	t := common.Trade{
		TradeID:       b.nextTradeID.Add(1),
		SymbolID:      b.SymbolID,
		Price:         resting.Price, // the passive order's price always wins
		Quantity:      qty,
		TimestampNs:   time.Now().UnixNano(),
		AggressorSide: incoming.Side,
	}
	if incoming.Side == common.Buy {
		t.BuyOrderID = incoming.OrderID
		t.SellOrderID = resting.OrderID
	} else {
		t.BuyOrderID = resting.OrderID
		t.SellOrderID = incoming.OrderID
	}
	return t
}

// CancelOrder removes order_id from its level. Returns false if the
// id is unknown to this book.
func (b *OrderBook) CancelOrder(orderID uint64) bool {
	loc, ok := b.orderIndex[orderID]
	if !ok {
		return false
	}
	loc.level.remove(loc.elem)
	delete(b.orderIndex, orderID)
	if loc.level.empty() {
		b.levelsFor(loc.side).Delete(loc.level)
	}
	return true
}

// ModifyOrder replaces order_id with a fresh order at newPrice/newQty,
// taking a new timestamp — the order loses time priority at its (new)
// price even if only the quantity changed. Returns the resulting order,
// or nil if order_id was unknown or newPrice/newQty are invalid (the
// same validation AddOrder applies, checked here before the resting
// order is touched, so an invalid modify is a true no-op rather than
// canceling the original and then dropping its replacement). A modify
// may itself produce trades if the replacement crosses the book.
func (b *OrderBook) ModifyOrder(orderID uint64, newPrice int64, newQty uint64) (*common.Order, []common.Trade) {
	loc, ok := b.orderIndex[orderID]
	if !ok {
		return nil, nil
	}
	if newQty == 0 || newPrice <= 0 {
		return nil, nil
	}
	old := loc.elem.Value.(*common.Order)
	side := old.Side
	clientID := old.ClientID
	symbolID := old.SymbolID
	orderType := old.Type
	tif := old.TIF

	b.CancelOrder(orderID)

	replacement := common.Order{
		OrderID:   orderID,
		SymbolID:  symbolID,
		ClientID:  clientID,
		Price:     newPrice,
		Quantity:  newQty,
		Side:      side,
		Type:      orderType,
		TIF:       tif,
		Status:    common.StatusNew,
	}
	trades := b.AddOrder(replacement)

	// newPrice/newQty were already validated above and orderID was
	// just removed from the index, so AddOrder cannot have dropped
	// this replacement for invalidity or as a duplicate id: absence
	// from the index here can only mean it matched in full.
	loc2, stillResting := b.orderIndex[orderID]
	if stillResting {
		return loc2.elem.Value.(*common.Order), trades
	}
	replacement.ExecutedQuantity = newQty
	replacement.Status = common.StatusFilled
	return &replacement, trades
}

// BestBid returns the highest resting buy price, if any.
func (b *OrderBook) BestBid() (int64, bool) {
	lvl, ok := b.buyLevels.Min()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting sell price, if any.
func (b *OrderBook) BestAsk() (int64, bool) {
	lvl, ok := b.sellLevels.Min()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// VolumeAtPrice returns the resting volume at price on side.
func (b *OrderBook) VolumeAtPrice(price int64, side common.Side) uint64 {
	lvl, ok := b.levelsFor(side).Get(&PriceLevel{Price: price})
	if !ok {
		return 0
	}
	return lvl.TotalVolume()
}

// OrderCountAtPrice returns the number of orders resting at price on side.
func (b *OrderBook) OrderCountAtPrice(price int64, side common.Side) int {
	lvl, ok := b.levelsFor(side).Get(&PriceLevel{Price: price})
	if !ok {
		return 0
	}
	return lvl.OrderCount()
}

// TotalOrders returns the number of orders resting anywhere in the book.
func (b *OrderBook) TotalOrders() int {
	return len(b.orderIndex)
}

// Clear empties the book entirely.
func (b *OrderBook) Clear() {
	b.buyLevels = btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
	b.sellLevels = btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
	b.orderIndex = make(map[uint64]*orderLocation)
}

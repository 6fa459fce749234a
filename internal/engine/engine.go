// Package engine implements the matching engine dispatcher: a registry
// of per-symbol order books, a single-producer/single-consumer request
// queue, one dedicated worker, and the trade/order callbacks.
package engine

import (
	"errors"
	"sync"
	"time"

	"duplexmatch/internal/book"
	"duplexmatch/internal/common"
	"duplexmatch/internal/queue"
	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

// ErrStopped is returned by the submit/cancel/modify methods when the
// engine is not running. This is the one hard, synchronous error the
// engine surfaces; everything else is data-plane (spec.md §7).
var ErrStopped = errors.New("engine: not running")

type engineState int32

const (
	stateIdle engineState = iota
	stateRunning
	stateStopping
)

const idleSleep = 200 * time.Microsecond

// TradeCallback is invoked synchronously from the worker thread for
// every trade, in aggressor-arrival then time-priority order.
type TradeCallback func(common.Trade)

// OrderCallback is invoked synchronously from the worker thread once
// per submitted order, reporting whether it was accepted.
type OrderCallback func(order common.Order, accepted bool)

// Engine owns a set of order books keyed by symbol id and serializes
// all mutating requests through a single worker goroutine.
//
// Worker lifecycle is grounded on
// saiputravu-Exchange/internal/net/server.go's tomb-supervised run
// loop: a fresh tomb.Tomb is allocated on every Start(), which is what
// makes a Stop() → Start() restart legal (a tomb.Tomb is otherwise
// one-shot).
type Engine struct {
	mu    sync.RWMutex
	books map[uint32]*book.OrderBook

	reqQueue *queue.SPSC[engineRequest]
	t        *tomb.Tomb

	state   atomicState
	stats   stats
	onTrade TradeCallback
	onOrder OrderCallback

	log zerolog.Logger
}

// New constructs an Engine with no symbols registered.
func New(log zerolog.Logger) *Engine {
	return &Engine{
		books:    make(map[uint32]*book.OrderBook),
		reqQueue: queue.NewSPSC[engineRequest](),
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// RegisterSymbol adds an empty book for symbolID. Returns false if
// already registered.
func (e *Engine) RegisterSymbol(symbolID uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.books[symbolID]; ok {
		return false
	}
	e.books[symbolID] = book.NewOrderBook(symbolID, e.log)
	return true
}

// UnregisterSymbol drops symbolID's book from the registry. Returns
// false if it was never registered. The book itself is not cleared: a
// caller still holding it from GetOrderBook sees its last state.
func (e *Engine) UnregisterSymbol(symbolID uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.books[symbolID]; !ok {
		return false
	}
	delete(e.books, symbolID)
	return true
}

// GetOrderBook returns a borrow of symbolID's book for read-only
// inspection (best bid/ask, depth). The book has no lock of its own
// beyond its btrees' internal one: BestBid/BestAsk go through that
// lock, but VolumeAtPrice, OrderCountAtPrice, TotalOrders and Depth
// read level and index state the worker mutates unsynchronized. Those
// accessors are race-free only when called from the worker thread
// (inside a TradeCallback/OrderCallback) or while the engine is
// stopped.
func (e *Engine) GetOrderBook(symbolID uint32) (*book.OrderBook, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[symbolID]
	return b, ok
}

// SetTradeCallback installs the trade callback. Install at startup
// only, before Start(); the worker reads it without synchronization.
func (e *Engine) SetTradeCallback(cb TradeCallback) {
	e.onTrade = cb
}

// SetOrderCallback installs the order-acceptance callback. Install at
// startup only, before Start().
func (e *Engine) SetOrderCallback(cb OrderCallback) {
	e.onOrder = cb
}

// GetStats returns a snapshot of the engine's counters.
func (e *Engine) GetStats() common.EngineStatsSnapshot {
	return e.stats.Snapshot()
}

// SubmitOrder enqueues a new-order request. Non-blocking; returns
// ErrStopped if the engine is not running.
func (e *Engine) SubmitOrder(o common.Order) error {
	if e.state.load() != stateRunning {
		return ErrStopped
	}
	if o.TimestampNs == 0 {
		o.TimestampNs = time.Now().UnixNano()
	}
	e.reqQueue.Enqueue(engineRequest{kind: reqSubmit, order: o})
	return nil
}

// CancelOrder enqueues a cancel request. Non-blocking; returns
// ErrStopped if the engine is not running.
func (e *Engine) CancelOrder(symbolID uint32, orderID uint64) error {
	if e.state.load() != stateRunning {
		return ErrStopped
	}
	e.reqQueue.Enqueue(engineRequest{kind: reqCancel, symbolID: symbolID, orderID: orderID})
	return nil
}

// ModifyOrder enqueues a modify request. Non-blocking; returns
// ErrStopped if the engine is not running.
func (e *Engine) ModifyOrder(symbolID uint32, orderID uint64, newPrice int64, newQty uint64) error {
	if e.state.load() != stateRunning {
		return ErrStopped
	}
	e.reqQueue.Enqueue(engineRequest{
		kind: reqModify, symbolID: symbolID, orderID: orderID, newPrice: newPrice, newQty: newQty,
	})
	return nil
}

// Start spawns the worker goroutine. Running → Running starts are
// rejected; Stop() → Start() restarts are permitted.
func (e *Engine) Start() error {
	if !e.state.transition(stateIdle, stateRunning) {
		return errors.New("engine: already running")
	}
	e.t = &tomb.Tomb{}
	e.t.Go(e.run)
	e.log.Info().Msg("engine started")
	return nil
}

// Stop signals shutdown, drains all remaining queued requests, then
// joins the worker. Safe to call Start() again afterward.
func (e *Engine) Stop() error {
	if e.state.load() == stateIdle {
		return nil
	}
	e.state.store(stateStopping)
	e.t.Kill(nil)
	err := e.t.Wait()
	e.state.store(stateIdle)
	e.log.Info().Msg("engine stopped")
	return err
}

func (e *Engine) run() error {
	for {
		select {
		case <-e.t.Dying():
			e.drain()
			return nil
		default:
			req, ok := e.reqQueue.Dequeue()
			if !ok {
				time.Sleep(idleSleep)
				continue
			}
			e.dispatch(req)
		}
	}
}

// drain processes every request still queued at shutdown, per
// spec.md §4.3's "final drain" clause.
func (e *Engine) drain() {
	for {
		req, ok := e.reqQueue.Dequeue()
		if !ok {
			return
		}
		e.dispatch(req)
	}
}

func (e *Engine) dispatch(req engineRequest) {
	switch req.kind {
	case reqSubmit:
		e.dispatchSubmit(req.order)
	case reqCancel:
		e.dispatchCancel(req.symbolID, req.orderID)
	case reqModify:
		e.dispatchModify(req.symbolID, req.orderID, req.newPrice, req.newQty)
	}
}

func (e *Engine) dispatchSubmit(o common.Order) {
	e.stats.totalOrders.Add(1)

	b, ok := e.GetOrderBook(o.SymbolID)
	if !ok {
		e.stats.rejectedOrders.Add(1)
		if e.onOrder != nil {
			e.onOrder(o, false)
		}
		return
	}

	trades := b.AddOrder(o)
	if e.onOrder != nil {
		e.onOrder(o, true)
	}
	e.reportTrades(trades)
}

func (e *Engine) dispatchCancel(symbolID uint32, orderID uint64) {
	b, ok := e.GetOrderBook(symbolID)
	if !ok {
		return
	}
	if b.CancelOrder(orderID) {
		e.stats.cancelledOrders.Add(1)
	}
}

func (e *Engine) dispatchModify(symbolID uint32, orderID uint64, newPrice int64, newQty uint64) {
	b, ok := e.GetOrderBook(symbolID)
	if !ok {
		return
	}
	result, trades := b.ModifyOrder(orderID, newPrice, newQty)
	if result == nil {
		return
	}
	e.stats.modifiedOrders.Add(1)
	e.reportTrades(trades)
}

func (e *Engine) reportTrades(trades []common.Trade) {
	if len(trades) == 0 {
		return
	}
	var volume uint64
	for _, tr := range trades {
		volume += tr.Quantity
	}
	e.stats.totalTrades.Add(uint64(len(trades)))
	e.stats.totalVolume.Add(volume)
	if e.onTrade != nil {
		for _, tr := range trades {
			e.onTrade(tr)
		}
	}
}

package common

// Quote is a level-1 market-data record from one feed.
type Quote struct {
	SymbolID       uint32
	BidPrice       int64
	AskPrice       int64
	BidSize        uint64
	AskSize        uint64
	FeedID         FeedID
	TimestampNs    int64
	SequenceNumber uint64
}

// TradeTick is a trade print from one feed.
type TradeTick struct {
	SymbolID       uint32
	Price          int64
	Quantity       uint64
	IsBuySide      bool
	FeedID         FeedID
	TimestampNs    int64
	SequenceNumber uint64
}

// MarketDataKind tags which variant a MarketDataUpdate carries.
type MarketDataKind uint8

const (
	KindQuote MarketDataKind = iota
	KindTradeTick
	// KindImbalance and KindStatus are reserved for future variants;
	// nothing matches on them today.
	KindImbalance
	KindStatus
)

// MarketDataUpdate is a tagged union over the market-data variants. It
// is a tagged struct, not a raw memory overlay: exactly one of Quote /
// Tick is populated, selected by Kind.
type MarketDataUpdate struct {
	Kind MarketDataKind
	Quote *Quote
	Tick  *TradeTick
}

// SymbolIDOf returns the symbol the update pertains to, regardless of kind.
func (u MarketDataUpdate) SymbolIDOf() uint32 {
	switch u.Kind {
	case KindQuote:
		return u.Quote.SymbolID
	case KindTradeTick:
		return u.Tick.SymbolID
	default:
		return 0
	}
}

// TimestampOf returns the update's timestamp, regardless of kind.
func (u MarketDataUpdate) TimestampOf() int64 {
	switch u.Kind {
	case KindQuote:
		return u.Quote.TimestampNs
	case KindTradeTick:
		return u.Tick.TimestampNs
	default:
		return 0
	}
}

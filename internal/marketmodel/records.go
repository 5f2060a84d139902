package marketmodel

// Bookticker is the normalized best-bid/offer record.
type Bookticker struct {
	Symbol        Symbol
	ProductType   ProductType
	UpdateID      uint64
	BidPrice      Price
	BidQty        Quantity
	AskPrice      Price
	AskQty        Quantity
	ExchangeTsUs  int64
	RecvTsUs      int64
}

// Trade is a single execution.
type Trade struct {
	Symbol       Symbol
	ProductType  ProductType
	TradeID      uint64
	Price        Price
	Qty          Quantity
	IsBuyerMaker bool
	ExchangeTsUs int64
	RecvTsUs     int64
}

// AggTrade is a venue-aggregated trade combining multiple fills at one
// price.
type AggTrade struct {
	Symbol       Symbol
	ProductType  ProductType
	AggTradeID   uint64
	Price        Price
	Qty          Quantity
	IsBuyerMaker bool
	ExchangeTsUs int64
	RecvTsUs     int64
}

// Depth5 is the top-5-level order book snapshot on each side.
type Depth5 struct {
	Symbol       Symbol
	ProductType  ProductType
	UpdateID     uint64
	BidPrices    [5]Price
	BidQtys      [5]Quantity
	AskPrices    [5]Price
	AskQtys      [5]Quantity
	ExchangeTsUs int64
	RecvTsUs     int64
}

// ParsedRecord is a tagged union over the four normalized record types,
// plus the routing key used by dedup and SHM dispatch.
type ParsedRecord struct {
	Type        MessageType
	Symbol      Symbol
	ProductType ProductType

	Bookticker Bookticker
	Trade      Trade
	AggTrade   AggTrade
	Depth5     Depth5

	// IDBytes carries an opaque identifier (e.g. a UUID trade id) for
	// records whose DedupKindFor(Type) is DedupByIDHash. Unused
	// otherwise.
	IDBytes []byte
}

// DedupKind selects which gate from the dedup package a record flows
// through.
type DedupKind uint8

const (
	// DedupByUpdateID gates on the record's monotonic sequence number
	// (Bookticker.UpdateID, Depth5.UpdateID, or Trade/AggTrade's numeric
	// id treated as a sequence). The zero value, so a stream that never
	// populates DedupKinds for a message type gets this gate.
	DedupByUpdateID DedupKind = iota
	// DedupByIDHash gates on ParsedRecord.IDBytes (e.g. Bybit's UUID
	// trade ids).
	DedupByIDHash
)

// SeqKey extracts the monotonic sequence number used by DedupByUpdateID
// streams, per message type.
func (r ParsedRecord) SeqKey() uint64 {
	switch r.Type {
	case MessageBBO:
		return r.Bookticker.UpdateID
	case MessageDepth5:
		return r.Depth5.UpdateID
	case MessageTrade:
		return r.Trade.TradeID
	case MessageAggTrade:
		return r.AggTrade.AggTradeID
	default:
		return 0
	}
}

// StreamDef is an adaptor-produced descriptor of a single logical
// subscription. Immutable after construction.
type StreamDef struct {
	Name             string
	URL              string
	SubscribePayload []byte
	MessageType      MessageType
	ProductType      ProductType
	Symbols          []string
	// ShmNames maps each MessageType this stream can emit to the shared
	// memory region it writes into. Single-channel streams (e.g. Binance's
	// aggTrade connection) populate one entry; multi-channel streams (e.g.
	// Binance's SBE connection carrying bookTicker/trade/depth5, or OKX's
	// single connection carrying bbo-tbt/trades/books5) populate one entry
	// per channel so the pipeline can route each record by its own type
	// rather than by the stream's nominal MessageType.
	ShmNames map[MessageType]string
	// DedupKinds maps each MessageType this stream can emit to the gate
	// its records flow through. A single connection can carry message
	// types that need different gates (Bybit's BBO/Depth5 update ids are
	// monotonic and sequence-gated, but its futures trade ids are UUIDs
	// and need the hash gate) so this is keyed per type rather than one
	// kind for the whole stream. A message type absent from the map gets
	// DedupByUpdateID, the zero value.
	DedupKinds map[MessageType]DedupKind
	// Parse turns one raw frame into zero or more normalized records. May
	// close over mutable state (e.g. Bybit's order-book reconstruction);
	// this is the adaptor contract's only required surface.
	Parse func(frame []byte) []ParsedRecord
}

// DedupKindFor returns the gate kind for a message type, defaulting to
// DedupByUpdateID when the stream never set one.
func (s StreamDef) DedupKindFor(t MessageType) DedupKind {
	return s.DedupKinds[t]
}

package marketmodel

// ProductType selects which market a subscription targets.
type ProductType uint8

const (
	ProductSpotLike ProductType = iota
	ProductLinearFutures
	ProductInverseFutures
)

func (p ProductType) String() string {
	switch p {
	case ProductSpotLike:
		return "spot"
	case ProductLinearFutures:
		return "linear_futures"
	case ProductInverseFutures:
		return "inverse_futures"
	default:
		return "unknown"
	}
}

// MessageType identifies which normalized record a ParsedRecord carries.
type MessageType uint8

const (
	MessageBBO MessageType = iota
	MessageTrade
	MessageAggTrade
	MessageDepth5
)

func (m MessageType) String() string {
	switch m {
	case MessageBBO:
		return "bbo"
	case MessageTrade:
		return "trade"
	case MessageAggTrade:
		return "agg_trade"
	case MessageDepth5:
		return "depth5"
	default:
		return "unknown"
	}
}

// Exchange identifies the venue a connection config targets.
type Exchange string

const (
	ExchangeBinance Exchange = "binance"
	ExchangeOKX     Exchange = "okx"
	ExchangeBitget  Exchange = "bitget"
	ExchangeBybit   Exchange = "bybit"
	ExchangeUDP     Exchange = "udp"
)

package marketmodel

import "encoding/binary"

// Fixed-size wire encodings for the four normalized record types, shared
// by the SHM ring store and the UDP publisher. Grounded on
// internal/codec/marketdata.go's fixed-offset encoding/binary technique.

const (
	BooktickerSize = SymbolLen + 1 + 8 + 8 + 8 + 8 + 8 + 8 + 8 // symbol+product+update_id+bid_px+bid_qty+ask_px+ask_qty+ts*2
	TradeSize      = SymbolLen + 1 + 8 + 8 + 8 + 1 + 8 + 8
	AggTradeSize   = SymbolLen + 1 + 8 + 8 + 8 + 1 + 8 + 8
	Depth5Size     = SymbolLen + 1 + 8 + 8*5 + 8*5 + 8*5 + 8*5 + 8 + 8
)

func EncodeBookticker(dst []byte, r Bookticker) []byte {
	if cap(dst) < BooktickerSize {
		dst = make([]byte, BooktickerSize)
	} else {
		dst = dst[:BooktickerSize]
	}
	off := 0
	copy(dst[off:off+SymbolLen], r.Symbol[:])
	off += SymbolLen
	dst[off] = byte(r.ProductType)
	off++
	binary.LittleEndian.PutUint64(dst[off:off+8], r.UpdateID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.BidPrice))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.BidQty))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.AskPrice))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.AskQty))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.ExchangeTsUs))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.RecvTsUs))
	return dst
}

func DecodeBookticker(src []byte) (Bookticker, bool) {
	if len(src) < BooktickerSize {
		return Bookticker{}, false
	}
	var r Bookticker
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.UpdateID = binary.LittleEndian.Uint64(src[off : off+8])
	off += 8
	r.BidPrice = Price(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.BidQty = Quantity(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.AskPrice = Price(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.AskQty = Quantity(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.ExchangeTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.RecvTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	return r, true
}

func EncodeTrade(dst []byte, r Trade) []byte {
	if cap(dst) < TradeSize {
		dst = make([]byte, TradeSize)
	} else {
		dst = dst[:TradeSize]
	}
	off := 0
	copy(dst[off:off+SymbolLen], r.Symbol[:])
	off += SymbolLen
	dst[off] = byte(r.ProductType)
	off++
	binary.LittleEndian.PutUint64(dst[off:off+8], r.TradeID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.Price))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.Qty))
	off += 8
	if r.IsBuyerMaker {
		dst[off] = 1
	} else {
		dst[off] = 0
	}
	off++
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.ExchangeTsUs))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.RecvTsUs))
	return dst
}

func DecodeTrade(src []byte) (Trade, bool) {
	if len(src) < TradeSize {
		return Trade{}, false
	}
	var r Trade
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.TradeID = binary.LittleEndian.Uint64(src[off : off+8])
	off += 8
	r.Price = Price(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.Qty = Quantity(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.IsBuyerMaker = src[off] != 0
	off++
	r.ExchangeTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.RecvTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	return r, true
}

func EncodeAggTrade(dst []byte, r AggTrade) []byte {
	if cap(dst) < AggTradeSize {
		dst = make([]byte, AggTradeSize)
	} else {
		dst = dst[:AggTradeSize]
	}
	off := 0
	copy(dst[off:off+SymbolLen], r.Symbol[:])
	off += SymbolLen
	dst[off] = byte(r.ProductType)
	off++
	binary.LittleEndian.PutUint64(dst[off:off+8], r.AggTradeID)
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.Price))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.Qty))
	off += 8
	if r.IsBuyerMaker {
		dst[off] = 1
	} else {
		dst[off] = 0
	}
	off++
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.ExchangeTsUs))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.RecvTsUs))
	return dst
}

func DecodeAggTrade(src []byte) (AggTrade, bool) {
	if len(src) < AggTradeSize {
		return AggTrade{}, false
	}
	var r AggTrade
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.AggTradeID = binary.LittleEndian.Uint64(src[off : off+8])
	off += 8
	r.Price = Price(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.Qty = Quantity(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.IsBuyerMaker = src[off] != 0
	off++
	r.ExchangeTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.RecvTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	return r, true
}

func EncodeDepth5(dst []byte, r Depth5) []byte {
	if cap(dst) < Depth5Size {
		dst = make([]byte, Depth5Size)
	} else {
		dst = dst[:Depth5Size]
	}
	off := 0
	copy(dst[off:off+SymbolLen], r.Symbol[:])
	off += SymbolLen
	dst[off] = byte(r.ProductType)
	off++
	binary.LittleEndian.PutUint64(dst[off:off+8], r.UpdateID)
	off += 8
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.BidPrices[i]))
		off += 8
	}
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.BidQtys[i]))
		off += 8
	}
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.AskPrices[i]))
		off += 8
	}
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.AskQtys[i]))
		off += 8
	}
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.ExchangeTsUs))
	off += 8
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(r.RecvTsUs))
	return dst
}

func DecodeDepth5(src []byte) (Depth5, bool) {
	if len(src) < Depth5Size {
		return Depth5{}, false
	}
	var r Depth5
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.UpdateID = binary.LittleEndian.Uint64(src[off : off+8])
	off += 8
	for i := 0; i < 5; i++ {
		r.BidPrices[i] = Price(binary.LittleEndian.Uint64(src[off : off+8]))
		off += 8
	}
	for i := 0; i < 5; i++ {
		r.BidQtys[i] = Quantity(binary.LittleEndian.Uint64(src[off : off+8]))
		off += 8
	}
	for i := 0; i < 5; i++ {
		r.AskPrices[i] = Price(binary.LittleEndian.Uint64(src[off : off+8]))
		off += 8
	}
	for i := 0; i < 5; i++ {
		r.AskQtys[i] = Quantity(binary.LittleEndian.Uint64(src[off : off+8]))
		off += 8
	}
	r.ExchangeTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	r.RecvTsUs = int64(binary.LittleEndian.Uint64(src[off : off+8]))
	return r, true
}

// EncodeRecord dispatches on the record's MessageType to the matching
// fixed-layout encoder, returning the bytes the SHM ring/UDP publisher
// stores or sends.
func EncodeRecord(r ParsedRecord) []byte {
	switch r.Type {
	case MessageBBO:
		return EncodeBookticker(nil, r.Bookticker)
	case MessageTrade:
		return EncodeTrade(nil, r.Trade)
	case MessageAggTrade:
		return EncodeAggTrade(nil, r.AggTrade)
	case MessageDepth5:
		return EncodeDepth5(nil, r.Depth5)
	default:
		return nil
	}
}

// RecordSize returns the fixed byte width for a MessageType, used to
// size a ShmStore's ring buffer at creation.
func RecordSize(t MessageType) int {
	switch t {
	case MessageBBO:
		return BooktickerSize
	case MessageTrade:
		return TradeSize
	case MessageAggTrade:
		return AggTradeSize
	case MessageDepth5:
		return Depth5Size
	default:
		return 0
	}
}

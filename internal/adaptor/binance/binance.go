// Package binance builds StreamDefs for Binance spot and futures market
// data, grounded on original_source/crates/k4-md/src/binance (sbe_parser.rs
// for the SBE binary feed, json_parser.rs for the aggTrade feed) and the
// teacher's internal/adapter symbol/common conventions.
package binance

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/logs"

	"main/internal/adaptor/common"
	"main/internal/marketmodel"
	"main/internal/mdconfig"
	"main/internal/mderrors"
)

const (
	sbeHeaderSize = 8 // blockLength(2) + templateId(2) + schemaId(2) + version(2)

	templateTrades      = 10000
	templateBestBidAsk  = 10001
	templateDepth       = 10002

	decimalFieldSize = 9 // int64 mantissa + int8 exponent
)

// Build produces, per enabled product group of the given connection
// config, one SBE StreamDef carrying bookTicker/trade/depth5 and one
// aggTrade StreamDef, each only when one of its SHM names is set.
func Build(cfg mdconfig.ConnectionConfig) []marketmodel.StreamDef {
	var streams []marketmodel.StreamDef
	if cfg.Spot != nil {
		streams = append(streams, buildGroup(*cfg.Spot, marketmodel.ProductSpotLike, "stream.binance.com")...)
	}
	if cfg.Futures != nil {
		streams = append(streams, buildGroup(*cfg.Futures, marketmodel.ProductLinearFutures, "fstream.binance.com")...)
	}
	if cfg.InverseFutures != nil {
		streams = append(streams, buildGroup(*cfg.InverseFutures, marketmodel.ProductInverseFutures, "dstream.binance.com")...)
	}
	return streams
}

func buildGroup(group mdconfig.ProductGroup, product marketmodel.ProductType, host string) []marketmodel.StreamDef {
	priceScale := group.Scale.PriceScale
	qtyScale := group.Scale.QtyScale

	var streams []marketmodel.StreamDef

	if group.BboShmName != "" || group.TradeShmName != "" || group.DepthShmName != "" {
		parts := make([]string, 0, len(group.Symbols)*3)
		for _, s := range group.Symbols {
			lower := toLowerSymbol(s)
			if group.BboShmName != "" {
				parts = append(parts, lower+"@bookTicker")
			}
			if group.TradeShmName != "" {
				parts = append(parts, lower+"@trade")
			}
			if group.DepthShmName != "" {
				parts = append(parts, lower+"@depth5@100ms")
			}
		}
		streams = append(streams, marketmodel.StreamDef{
			Name:        "binance-sbe-" + string(product),
			URL:         fmt.Sprintf("wss://%s/stream?streams=%s", host, joinStreams(parts)),
			MessageType: marketmodel.MessageBBO,
			ProductType: product,
			Symbols:     group.Symbols,
			ShmNames: map[marketmodel.MessageType]string{
				marketmodel.MessageBBO:    group.BboShmName,
				marketmodel.MessageTrade:  group.TradeShmName,
				marketmodel.MessageDepth5: group.DepthShmName,
			},
			Parse: parseSBEFrame(product, priceScale, qtyScale),
		})
	}

	if group.AggShmName != "" {
		parts := make([]string, 0, len(group.Symbols))
		for _, s := range group.Symbols {
			parts = append(parts, toLowerSymbol(s)+"@aggTrade")
		}
		streams = append(streams, marketmodel.StreamDef{
			Name:        "binance-aggtrade-" + string(product),
			URL:         fmt.Sprintf("wss://%s/stream?streams=%s", host, joinStreams(parts)),
			MessageType: marketmodel.MessageAggTrade,
			ProductType: product,
			Symbols:     group.Symbols,
			ShmNames: map[marketmodel.MessageType]string{marketmodel.MessageAggTrade: group.AggShmName},
			Parse:    parseAggTradeFrame(product, priceScale, qtyScale),
		})
	}

	return streams
}

func toLowerSymbol(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func joinStreams(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

// parseSBEFrame returns a Parse func dispatching an SBE binary frame by its
// template id: BBO, trade, and depth share one wire format, distinguished by
// header.templateId.
func parseSBEFrame(product marketmodel.ProductType, priceScale, qtyScale int) func([]byte) []marketmodel.ParsedRecord {
	return func(frame []byte) []marketmodel.ParsedRecord {
		if len(frame) < sbeHeaderSize {
			logs.Warnf("binance: %v len=%d", mderrors.ErrParseShortFrame, len(frame))
			return nil
		}
		templateID := binary.LittleEndian.Uint16(frame[2:4])
		body := frame[sbeHeaderSize:]
		switch templateID {
		case templateBestBidAsk:
			return parseBestBidAsk(body, product, priceScale, qtyScale)
		case templateTrades:
			return parseTrades(body, product, priceScale, qtyScale)
		case templateDepth:
			return parseDepth5(body, product, priceScale, qtyScale)
		default:
			logs.Warnf("binance: %v templateId=%d", mderrors.ErrParseUnknownKind, templateID)
			return nil
		}
	}
}

func decodeDecimalAt(buf []byte, offset int, targetScale int) int64 {
	mantissa := int64(binary.LittleEndian.Uint64(buf[offset : offset+8]))
	exponent := int8(buf[offset+8])
	return marketmodel.DecodeDecimal128(mantissa, exponent).Rescale(targetScale)
}

// parseBestBidAsk layout: symbolLen(1) + symbol(var) + updateId(8) +
// bidPrice(9) + bidQty(9) + askPrice(9) + askQty(9) + transactTime(8).
func parseBestBidAsk(body []byte, product marketmodel.ProductType, priceScale, qtyScale int) []marketmodel.ParsedRecord {
	if len(body) < 1 {
		return nil
	}
	symLen := int(body[0])
	off := 1
	if len(body) < off+symLen+8+decimalFieldSize*4+8 {
		return nil
	}
	symName := string(body[off : off+symLen])
	off += symLen
	updateID := binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	bidPrice := decodeDecimalAt(body, off, priceScale)
	off += decimalFieldSize
	bidQty := decodeDecimalAt(body, off, qtyScale)
	off += decimalFieldSize
	askPrice := decodeDecimalAt(body, off, priceScale)
	off += decimalFieldSize
	askQty := decodeDecimalAt(body, off, qtyScale)
	off += decimalFieldSize
	transactTime := int64(binary.LittleEndian.Uint64(body[off : off+8]))

	sym := symbolFromBinance(symName)
	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageBBO,
		Symbol:      sym,
		ProductType: product,
		Bookticker: marketmodel.Bookticker{
			Symbol:       sym,
			ProductType:  product,
			UpdateID:     updateID,
			BidPrice:     marketmodel.Price(bidPrice),
			BidQty:       marketmodel.Quantity(bidQty),
			AskPrice:     marketmodel.Price(askPrice),
			AskQty:       marketmodel.Quantity(askQty),
			ExchangeTsUs: transactTime * 1000,
		},
	}}
}

// parseTrades layout: symbolLen(1) + symbol(var) + numTrades(2), then per
// trade: price(9) + qty(9) + tradeId(8) + transactTime(8) + isBuyerMaker(1).
func parseTrades(body []byte, product marketmodel.ProductType, priceScale, qtyScale int) []marketmodel.ParsedRecord {
	if len(body) < 1 {
		return nil
	}
	symLen := int(body[0])
	off := 1
	if len(body) < off+symLen+2 {
		return nil
	}
	symName := string(body[off : off+symLen])
	off += symLen
	numTrades := int(binary.LittleEndian.Uint16(body[off : off+2]))
	off += 2

	sym := symbolFromBinance(symName)
	perTrade := decimalFieldSize*2 + 8 + 8 + 1
	records := make([]marketmodel.ParsedRecord, 0, numTrades)
	for i := 0; i < numTrades; i++ {
		if len(body) < off+perTrade {
			break
		}
		price := decodeDecimalAt(body, off, priceScale)
		off += decimalFieldSize
		qty := decodeDecimalAt(body, off, qtyScale)
		off += decimalFieldSize
		tradeID := binary.LittleEndian.Uint64(body[off : off+8])
		off += 8
		transactTime := int64(binary.LittleEndian.Uint64(body[off : off+8]))
		off += 8
		isBuyerMaker := body[off] != 0
		off++

		records = append(records, marketmodel.ParsedRecord{
			Type:        marketmodel.MessageTrade,
			Symbol:      sym,
			ProductType: product,
			Trade: marketmodel.Trade{
				Symbol:       sym,
				ProductType:  product,
				TradeID:      tradeID,
				Price:        marketmodel.Price(price),
				Qty:          marketmodel.Quantity(qty),
				IsBuyerMaker: isBuyerMaker,
				ExchangeTsUs: transactTime * 1000,
			},
		})
	}
	return records
}

// parseDepth5 layout: symbolLen(1) + symbol(var) + updateId(8), then 5 bid
// levels (price(9)+qty(9)) followed by 5 ask levels (price(9)+qty(9)), then
// transactTime(8).
func parseDepth5(body []byte, product marketmodel.ProductType, priceScale, qtyScale int) []marketmodel.ParsedRecord {
	if len(body) < 1 {
		return nil
	}
	symLen := int(body[0])
	off := 1
	levelsSize := decimalFieldSize * 2 * 10
	if len(body) < off+symLen+8+levelsSize+8 {
		return nil
	}
	symName := string(body[off : off+symLen])
	off += symLen
	updateID := binary.LittleEndian.Uint64(body[off : off+8])
	off += 8

	var d marketmodel.Depth5
	for i := 0; i < 5; i++ {
		d.BidPrices[i] = marketmodel.Price(decodeDecimalAt(body, off, priceScale))
		off += decimalFieldSize
		d.BidQtys[i] = marketmodel.Quantity(decodeDecimalAt(body, off, qtyScale))
		off += decimalFieldSize
	}
	for i := 0; i < 5; i++ {
		d.AskPrices[i] = marketmodel.Price(decodeDecimalAt(body, off, priceScale))
		off += decimalFieldSize
		d.AskQtys[i] = marketmodel.Quantity(decodeDecimalAt(body, off, qtyScale))
		off += decimalFieldSize
	}
	transactTime := int64(binary.LittleEndian.Uint64(body[off : off+8]))

	sym := symbolFromBinance(symName)
	d.Symbol = sym
	d.ProductType = product
	d.UpdateID = updateID
	d.ExchangeTsUs = transactTime * 1000

	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageDepth5,
		Symbol:      sym,
		ProductType: product,
		Depth5:      d,
	}}
}

// aggTradeMsg mirrors Binance's combined-stream aggTrade JSON envelope.
type aggTradeMsg struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol       string          `json:"s"`
		AggTradeID   uint64          `json:"a"`
		Price        decimal.Decimal `json:"p"`
		Qty          decimal.Decimal `json:"q"`
		TradeTime    int64           `json:"T"`
		IsBuyerMaker bool            `json:"m"`
	} `json:"data"`
}

func parseAggTradeFrame(product marketmodel.ProductType, priceScale, qtyScale int) func([]byte) []marketmodel.ParsedRecord {
	return func(frame []byte) []marketmodel.ParsedRecord {
		var msg aggTradeMsg
		if err := json.Unmarshal(frame, &msg); err != nil {
			return nil
		}
		if msg.Data.Symbol == "" {
			return nil
		}
		sym := symbolFromBinance(msg.Data.Symbol)
		return []marketmodel.ParsedRecord{{
			Type:        marketmodel.MessageAggTrade,
			Symbol:      sym,
			ProductType: product,
			AggTrade: marketmodel.AggTrade{
				Symbol:       sym,
				ProductType:  product,
				AggTradeID:   msg.Data.AggTradeID,
				Price:        common.JSONPrice(msg.Data.Price, priceScale),
				Qty:          common.JSONQty(msg.Data.Qty, qtyScale),
				IsBuyerMaker: msg.Data.IsBuyerMaker,
				ExchangeTsUs: msg.Data.TradeTime * 1000,
			},
		}}
	}
}

// symbolFromBinance splits a concatenated Binance pair symbol (e.g.
// "BTCUSDT") at the recognized quote-asset suffix, matching
// original_source's split_binance_symbol table.
func symbolFromBinance(raw string) marketmodel.Symbol {
	return common.SymbolFromConcat(raw)
}

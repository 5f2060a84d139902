// Package okx builds StreamDefs for OKX spot and swap market data, grounded
// on original_source/crates/k4-md/src/okx (json_parser.rs's arg.channel
// routing, config.rs's per-product-type symbol/SHM wiring).
package okx

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yanun0323/decimal"

	"main/internal/adaptor/common"
	"main/internal/marketmodel"
	"main/internal/mdconfig"
)

const wsURL = "wss://ws.okx.com:8443/ws/v5/public"

// Build produces one StreamDef per enabled product group. Unlike Binance's
// multiplexed SBE feed, OKX sends each channel as its own JSON message type
// over a single connection, so one StreamDef per product group carries all
// three channels and Parse routes on arg.channel.
func Build(cfg mdconfig.ConnectionConfig) []marketmodel.StreamDef {
	var streams []marketmodel.StreamDef
	if cfg.Spot != nil {
		streams = append(streams, buildGroup(*cfg.Spot, marketmodel.ProductSpotLike)...)
	}
	if cfg.Futures != nil {
		streams = append(streams, buildGroup(*cfg.Futures, marketmodel.ProductLinearFutures)...)
	}
	if cfg.InverseFutures != nil {
		streams = append(streams, buildGroup(*cfg.InverseFutures, marketmodel.ProductInverseFutures)...)
	}
	return streams
}

func buildGroup(group mdconfig.ProductGroup, product marketmodel.ProductType) []marketmodel.StreamDef {
	instIDs := make([]string, len(group.Symbols))
	symByInstID := make(map[string]marketmodel.Symbol, len(group.Symbols))
	for i, s := range group.Symbols {
		instID := toOkxInstID(s, product)
		instIDs[i] = instID
		symByInstID[instID] = symbolFromGeneric(s)
	}

	var args []subscribeArg
	if group.BboShmName != "" {
		for _, id := range instIDs {
			args = append(args, subscribeArg{Channel: "bbo-tbt", InstID: id})
		}
	}
	if group.TradeShmName != "" {
		for _, id := range instIDs {
			args = append(args, subscribeArg{Channel: "trades", InstID: id})
		}
	}
	if group.DepthShmName != "" {
		for _, id := range instIDs {
			args = append(args, subscribeArg{Channel: "books5", InstID: id})
		}
	}
	if len(args) == 0 {
		return nil
	}

	payload, _ := json.Marshal(subscribeMsg{ID: "1", Op: "subscribe", Args: args})

	return []marketmodel.StreamDef{{
		Name:             "okx-" + string(product),
		URL:              wsURL,
		SubscribePayload: payload,
		MessageType:      marketmodel.MessageBBO, // nominal tag; each record carries its own Type
		ProductType:      product,
		Symbols:          group.Symbols,
		ShmNames: map[marketmodel.MessageType]string{
			marketmodel.MessageBBO:    group.BboShmName,
			marketmodel.MessageTrade:  group.TradeShmName,
			marketmodel.MessageDepth5: group.DepthShmName,
		},
		Parse: parseFrame(product, group.Scale, symByInstID),
	}}
}

type subscribeMsg struct {
	ID   string         `json:"id"`
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsEnvelope struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data json.RawMessage `json:"data"`
}

func parseFrame(product marketmodel.ProductType, scale mdconfig.ScaleSpec, symByInstID map[string]marketmodel.Symbol) func([]byte) []marketmodel.ParsedRecord {
	return func(frame []byte) []marketmodel.ParsedRecord {
		if string(frame) == "pong" {
			return nil
		}
		var env wsEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			return nil
		}
		sym, ok := symByInstID[env.Arg.InstID]
		if !ok {
			return nil
		}
		switch env.Arg.Channel {
		case "bbo-tbt":
			return parseBookTicker(env.Data, sym, product, scale)
		case "trades":
			return parseTrades(env.Data, sym, product, scale)
		case "books5":
			return parseDepth5(env.Data, sym, product, scale)
		default:
			return nil
		}
	}
}

type bookTickerEntry struct {
	Asks  [][2]decimal.Decimal `json:"asks"`
	Bids  [][2]decimal.Decimal `json:"bids"`
	TS    string               `json:"ts"`
	SeqID string               `json:"seqId"`
}

func parseBookTicker(data json.RawMessage, sym marketmodel.Symbol, product marketmodel.ProductType, scale mdconfig.ScaleSpec) []marketmodel.ParsedRecord {
	var entries []bookTickerEntry
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) == 0 {
		return nil
	}
	e := entries[0]
	if len(e.Asks) == 0 || len(e.Bids) == 0 {
		return nil
	}
	tsMs, _ := strconv.ParseInt(e.TS, 10, 64)
	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageBBO,
		Symbol:      sym,
		ProductType: product,
		Bookticker: marketmodel.Bookticker{
			Symbol:       sym,
			ProductType:  product,
			UpdateID:     common.ParseStrU64(e.SeqID),
			BidPrice:     common.JSONPrice(e.Bids[0][0], scale.PriceScale),
			BidQty:       common.JSONQty(e.Bids[0][1], scale.QtyScale),
			AskPrice:     common.JSONPrice(e.Asks[0][0], scale.PriceScale),
			AskQty:       common.JSONQty(e.Asks[0][1], scale.QtyScale),
			ExchangeTsUs: tsMs * 1000,
		},
	}}
}

type tradeEntry struct {
	TradeID string          `json:"tradeId"`
	Px      decimal.Decimal `json:"px"`
	Sz      decimal.Decimal `json:"sz"`
	Side    string          `json:"side"`
	TS      string          `json:"ts"`
}

func parseTrades(data json.RawMessage, sym marketmodel.Symbol, product marketmodel.ProductType, scale mdconfig.ScaleSpec) []marketmodel.ParsedRecord {
	var entries []tradeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	records := make([]marketmodel.ParsedRecord, 0, len(entries))
	for _, e := range entries {
		tsMs, _ := strconv.ParseInt(e.TS, 10, 64)
		records = append(records, marketmodel.ParsedRecord{
			Type:        marketmodel.MessageTrade,
			Symbol:      sym,
			ProductType: product,
			Trade: marketmodel.Trade{
				Symbol:       sym,
				ProductType:  product,
				TradeID:      common.ParseStrU64(e.TradeID),
				Price:        common.JSONPrice(e.Px, scale.PriceScale),
				Qty:          common.JSONQty(e.Sz, scale.QtyScale),
				IsBuyerMaker: e.Side == "sell",
				ExchangeTsUs: tsMs * 1000,
			},
		})
	}
	return records
}

type depth5Entry struct {
	Asks  [][2]decimal.Decimal `json:"asks"`
	Bids  [][2]decimal.Decimal `json:"bids"`
	TS    string               `json:"ts"`
	SeqID string               `json:"seqId"`
}

func parseDepth5(data json.RawMessage, sym marketmodel.Symbol, product marketmodel.ProductType, scale mdconfig.ScaleSpec) []marketmodel.ParsedRecord {
	var entries []depth5Entry
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) == 0 {
		return nil
	}
	e := entries[0]
	tsMs, _ := strconv.ParseInt(e.TS, 10, 64)

	var d marketmodel.Depth5
	d.Symbol = sym
	d.ProductType = product
	d.UpdateID = common.ParseStrU64(e.SeqID)
	d.ExchangeTsUs = tsMs * 1000
	for i := 0; i < 5 && i < len(e.Bids); i++ {
		d.BidPrices[i] = common.JSONPrice(e.Bids[i][0], scale.PriceScale)
		d.BidQtys[i] = common.JSONQty(e.Bids[i][1], scale.QtyScale)
	}
	for i := 0; i < 5 && i < len(e.Asks); i++ {
		d.AskPrices[i] = common.JSONPrice(e.Asks[i][0], scale.PriceScale)
		d.AskQtys[i] = common.JSONQty(e.Asks[i][1], scale.QtyScale)
	}

	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageDepth5,
		Symbol:      sym,
		ProductType: product,
		Depth5:      d,
	}}
}

// toOkxInstID converts a generic "BTCUSDT"-style symbol into OKX's
// dash-separated instId, adding -SWAP for the two futures product types.
func toOkxInstID(symbol string, product marketmodel.ProductType) string {
	base, quote := splitGeneric(symbol)
	switch product {
	case marketmodel.ProductLinearFutures:
		return base + "-" + quote + "-SWAP"
	case marketmodel.ProductInverseFutures:
		return base + "-USD-SWAP"
	default:
		return base + "-" + quote
	}
}

func symbolFromGeneric(symbol string) marketmodel.Symbol {
	base, quote := splitGeneric(symbol)
	return marketmodel.NewSymbol(base, quote)
}

func splitGeneric(symbol string) (base, quote string) {
	if i := strings.IndexByte(symbol, '-'); i >= 0 {
		return symbol[:i], symbol[i+1:]
	}
	if i := strings.IndexByte(symbol, '/'); i >= 0 {
		return symbol[:i], symbol[i+1:]
	}
	quotes := []string{"USDT", "USDC", "USD", "BTC", "ETH"}
	for _, q := range quotes {
		if len(symbol) > len(q) && symbol[len(symbol)-len(q):] == q {
			return symbol[:len(symbol)-len(q)], q
		}
	}
	return symbol, ""
}

// Package bitget builds StreamDefs for Bitget spot and USDT-futures market
// data, grounded on original_source/crates/k4-md/src/bitget/json_parser.rs
// (arg.channel routing, reverse-order trade batches) and config.rs (subscribe
// payload shape).
package bitget

import (
	"encoding/json"

	"github.com/yanun0323/decimal"

	"main/internal/adaptor/common"
	"main/internal/marketmodel"
	"main/internal/mdconfig"
)

const wsURL = "wss://ws.bitget.com/v2/ws/public"

func Build(cfg mdconfig.ConnectionConfig) []marketmodel.StreamDef {
	var streams []marketmodel.StreamDef
	if cfg.Spot != nil {
		streams = append(streams, buildGroup(*cfg.Spot, marketmodel.ProductSpotLike, "SPOT")...)
	}
	if cfg.Futures != nil {
		streams = append(streams, buildGroup(*cfg.Futures, marketmodel.ProductLinearFutures, "USDT-FUTURES")...)
	}
	return streams
}

func buildGroup(group mdconfig.ProductGroup, product marketmodel.ProductType, instType string) []marketmodel.StreamDef {
	symByInstID := make(map[string]marketmodel.Symbol, len(group.Symbols))
	for _, s := range group.Symbols {
		symByInstID[s] = common.SymbolFromConcat(s)
	}

	var args []subscribeArg
	if group.BboShmName != "" {
		for _, s := range group.Symbols {
			args = append(args, subscribeArg{InstType: instType, Channel: "books1", InstID: s})
		}
	}
	if group.TradeShmName != "" {
		for _, s := range group.Symbols {
			args = append(args, subscribeArg{InstType: instType, Channel: "trade", InstID: s})
		}
	}
	if group.DepthShmName != "" {
		for _, s := range group.Symbols {
			args = append(args, subscribeArg{InstType: instType, Channel: "books5", InstID: s})
		}
	}
	if len(args) == 0 {
		return nil
	}

	payload, _ := json.Marshal(subscribeMsg{Op: "subscribe", Args: args})

	return []marketmodel.StreamDef{{
		Name:             "bitget-" + string(product),
		URL:              wsURL,
		SubscribePayload: payload,
		MessageType:      marketmodel.MessageBBO,
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
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

type wsEnvelope struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data json.RawMessage `json:"data"`
}

// parseFrame routes a Bitget frame by arg.channel. "pong" keepalive text
// frames carry no JSON and are ignored.
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
		case "books1":
			return parseBookTicker(env.Data, sym, product, scale)
		case "trade":
			return parseTrades(env.Data, sym, product, scale)
		case "books5":
			return parseDepth5(env.Data, sym, product, scale)
		default:
			return nil
		}
	}
}

type books1Entry struct {
	Asks [][2]decimal.Decimal `json:"asks"`
	Bids [][2]decimal.Decimal `json:"bids"`
	TS   string               `json:"ts"`
	Seq  string               `json:"seq"`
}

func parseBookTicker(data json.RawMessage, sym marketmodel.Symbol, product marketmodel.ProductType, scale mdconfig.ScaleSpec) []marketmodel.ParsedRecord {
	var entries []books1Entry
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) == 0 {
		return nil
	}
	e := entries[0]
	if len(e.Asks) == 0 || len(e.Bids) == 0 {
		return nil
	}
	tsMs := common.ParseStrU64(e.TS)
	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageBBO,
		Symbol:      sym,
		ProductType: product,
		Bookticker: marketmodel.Bookticker{
			Symbol:       sym,
			ProductType:  product,
			UpdateID:     common.ParseStrU64(e.Seq),
			BidPrice:     common.JSONPrice(e.Bids[0][0], scale.PriceScale),
			BidQty:       common.JSONQty(e.Bids[0][1], scale.QtyScale),
			AskPrice:     common.JSONPrice(e.Asks[0][0], scale.PriceScale),
			AskQty:       common.JSONQty(e.Asks[0][1], scale.QtyScale),
			ExchangeTsUs: int64(tsMs) * 1000,
		},
	}}
}

type tradeEntry struct {
	TradeID string          `json:"tradeId"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Side    string          `json:"side"`
	TS      string          `json:"ts"`
}

// parseTrades reverses Bitget's newest-first batch ordering so records are
// emitted oldest-first, matching original_source's parse_trades.
func parseTrades(data json.RawMessage, sym marketmodel.Symbol, product marketmodel.ProductType, scale mdconfig.ScaleSpec) []marketmodel.ParsedRecord {
	var entries []tradeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	records := make([]marketmodel.ParsedRecord, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		tsMs := common.ParseStrU64(e.TS)
		records = append(records, marketmodel.ParsedRecord{
			Type:        marketmodel.MessageTrade,
			Symbol:      sym,
			ProductType: product,
			Trade: marketmodel.Trade{
				Symbol:       sym,
				ProductType:  product,
				TradeID:      common.ParseStrU64(e.TradeID),
				Price:        common.JSONPrice(e.Price, scale.PriceScale),
				Qty:          common.JSONQty(e.Size, scale.QtyScale),
				IsBuyerMaker: e.Side == "sell",
				ExchangeTsUs: int64(tsMs) * 1000,
			},
		})
	}
	return records
}

type books5Entry struct {
	Asks [][2]decimal.Decimal `json:"asks"`
	Bids [][2]decimal.Decimal `json:"bids"`
	TS   string               `json:"ts"`
	Seq  string               `json:"seq"`
}

func parseDepth5(data json.RawMessage, sym marketmodel.Symbol, product marketmodel.ProductType, scale mdconfig.ScaleSpec) []marketmodel.ParsedRecord {
	var entries []books5Entry
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) == 0 {
		return nil
	}
	e := entries[0]
	tsMs := common.ParseStrU64(e.TS)

	var d marketmodel.Depth5
	d.Symbol = sym
	d.ProductType = product
	d.UpdateID = common.ParseStrU64(e.Seq)
	d.ExchangeTsUs = int64(tsMs) * 1000
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

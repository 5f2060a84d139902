// Package bybit builds StreamDefs for Bybit spot and linear-futures market
// data, grounded on original_source/crates/k4-md/src/bybit (json_parser.rs's
// topic-prefix routing and UUID/numeric trade id handling, order_book.rs's
// incremental orderbook.50 reconstruction, uuid_dedup.rs's k4_core::UuidDedup
// re-export for futures trade ids).
package bybit

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/yanun0323/decimal"

	"main/internal/adaptor/common"
	"main/internal/marketmodel"
	"main/internal/mdconfig"
)

const wsURLSpot = "wss://stream.bybit.com/v5/public/spot"
const wsURLLinear = "wss://stream.bybit.com/v5/public/linear"

func Build(cfg mdconfig.ConnectionConfig) []marketmodel.StreamDef {
	var streams []marketmodel.StreamDef
	if cfg.Spot != nil {
		streams = append(streams, buildGroup(*cfg.Spot, marketmodel.ProductSpotLike, wsURLSpot)...)
	}
	if cfg.Futures != nil {
		streams = append(streams, buildGroup(*cfg.Futures, marketmodel.ProductLinearFutures, wsURLLinear)...)
	}
	return streams
}

func buildGroup(group mdconfig.ProductGroup, product marketmodel.ProductType, url string) []marketmodel.StreamDef {
	symByRaw := make(map[string]marketmodel.Symbol, len(group.Symbols))
	for _, s := range group.Symbols {
		symByRaw[s] = common.SymbolFromConcat(s)
	}

	var args []string
	if group.TradeShmName != "" {
		for _, s := range group.Symbols {
			args = append(args, "publicTrade."+s)
		}
	}
	if group.BboShmName != "" {
		for _, s := range group.Symbols {
			args = append(args, "orderbook.1."+s)
		}
	}
	if group.DepthShmName != "" {
		for _, s := range group.Symbols {
			args = append(args, "orderbook.50."+s)
		}
	}
	if len(args) == 0 {
		return nil
	}

	payload, _ := json.Marshal(subscribeMsg{ReqID: "3000", Op: "subscribe", Args: args})

	books := newBookRegistry()

	return []marketmodel.StreamDef{{
		Name:             "bybit-" + string(product),
		URL:              url,
		SubscribePayload: payload,
		MessageType:      marketmodel.MessageBBO,
		ProductType:      product,
		Symbols:          group.Symbols,
		ShmNames: map[marketmodel.MessageType]string{
			marketmodel.MessageBBO:    group.BboShmName,
			marketmodel.MessageTrade:  group.TradeShmName,
			marketmodel.MessageDepth5: group.DepthShmName,
		},
		// BBO and Depth5 update ids are monotonic per symbol and are
		// sequence-gated (the map default, DedupByUpdateID); only
		// futures trade ids are UUID strings that need the hash gate.
		DedupKinds: map[marketmodel.MessageType]marketmodel.DedupKind{
			marketmodel.MessageTrade: marketmodel.DedupByIDHash,
		},
		Parse: parseFrame(product, group.Scale, symByRaw, books),
	}}
}

type subscribeMsg struct {
	ReqID string   `json:"req_id"`
	Op    string   `json:"op"`
	Args  []string `json:"args"`
}

type wsEnvelope struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	TS    int64           `json:"ts"`
	CTS   int64           `json:"cts"`
	Data  json.RawMessage `json:"data"`
}

// parseFrame routes a Bybit frame by its topic prefix. Trades and BBO decode
// directly; orderbook.50 deltas flow through the stateful per-symbol
// registry since Bybit depth is incremental, not a full snapshot per frame —
// the closure is where this venue's statefulness lives.
func parseFrame(product marketmodel.ProductType, scale mdconfig.ScaleSpec, symByRaw map[string]marketmodel.Symbol, books *bookRegistry) func([]byte) []marketmodel.ParsedRecord {
	return func(frame []byte) []marketmodel.ParsedRecord {
		var env wsEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			return nil
		}
		switch {
		case strings.HasPrefix(env.Topic, "publicTrade."):
			return parseTrades(env, product, scale, symByRaw)
		case strings.HasPrefix(env.Topic, "orderbook.1."):
			return parseBBO(env, product, scale, symByRaw)
		case strings.HasPrefix(env.Topic, "orderbook.50."):
			return parseDepth50(env, product, scale, symByRaw, books)
		default:
			return nil
		}
	}
}

type tradeEntry struct {
	ID     string          `json:"i"`
	Symbol string          `json:"s"`
	Ts     int64           `json:"T"`
	Side   string          `json:"S"`
	Price  decimal.Decimal `json:"p"`
	Vol    decimal.Decimal `json:"v"`
}

func parseTrades(env wsEnvelope, product marketmodel.ProductType, scale mdconfig.ScaleSpec, symByRaw map[string]marketmodel.Symbol) []marketmodel.ParsedRecord {
	var entries []tradeEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil
	}
	records := make([]marketmodel.ParsedRecord, 0, len(entries))
	for _, e := range entries {
		sym, ok := symByRaw[e.Symbol]
		if !ok {
			continue
		}
		// Spot trade ids are numeric; futures trade ids are UUIDs. Either
		// way the dedup gate hashes IDBytes: the raw bytes of a numeric id,
		// or the canonical string form of a parsed UUID. An id that is
		// neither is dropped before it reaches the dedup gate.
		idBytes := []byte(e.ID)
		var numericID uint64
		if v, err := strconv.ParseUint(e.ID, 10, 64); err == nil {
			numericID = v
		} else if parsed, err := uuid.Parse(e.ID); err == nil {
			idBytes = []byte(parsed.String())
		} else {
			continue
		}
		records = append(records, marketmodel.ParsedRecord{
			Type:        marketmodel.MessageTrade,
			Symbol:      sym,
			ProductType: product,
			Trade: marketmodel.Trade{
				Symbol:       sym,
				ProductType:  product,
				TradeID:      numericID,
				Price:        common.JSONPrice(e.Price, scale.PriceScale),
				Qty:          common.JSONQty(e.Vol, scale.QtyScale),
				IsBuyerMaker: e.Side == "Sell",
				ExchangeTsUs: e.Ts * 1000,
			},
			IDBytes: idBytes,
		})
	}
	return records
}

type bboData struct {
	Symbol   string               `json:"s"`
	Bids     [][2]decimal.Decimal `json:"b"`
	Asks     [][2]decimal.Decimal `json:"a"`
	UpdateID uint64               `json:"u"`
}

func parseBBO(env wsEnvelope, product marketmodel.ProductType, scale mdconfig.ScaleSpec, symByRaw map[string]marketmodel.Symbol) []marketmodel.ParsedRecord {
	var data bboData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil
	}
	sym, ok := symByRaw[data.Symbol]
	if !ok || len(data.Bids) == 0 || len(data.Asks) == 0 {
		return nil
	}
	cts := env.CTS
	if cts == 0 {
		cts = env.TS
	}
	idBytes := strconv.AppendUint(nil, data.UpdateID, 10)
	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageBBO,
		Symbol:      sym,
		ProductType: product,
		Bookticker: marketmodel.Bookticker{
			Symbol:       sym,
			ProductType:  product,
			UpdateID:     data.UpdateID,
			BidPrice:     common.JSONPrice(data.Bids[0][0], scale.PriceScale),
			BidQty:       common.JSONQty(data.Bids[0][1], scale.QtyScale),
			AskPrice:     common.JSONPrice(data.Asks[0][0], scale.PriceScale),
			AskQty:       common.JSONQty(data.Asks[0][1], scale.QtyScale),
			ExchangeTsUs: env.TS * 1000,
		},
		IDBytes: idBytes,
	}}
}

type depthData struct {
	Symbol   string               `json:"s"`
	Bids     [][2]decimal.Decimal `json:"b"`
	Asks     [][2]decimal.Decimal `json:"a"`
	UpdateID uint64               `json:"u"`
}

func parseDepth50(env wsEnvelope, product marketmodel.ProductType, scale mdconfig.ScaleSpec, symByRaw map[string]marketmodel.Symbol, books *bookRegistry) []marketmodel.ParsedRecord {
	var data depthData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil
	}
	sym, ok := symByRaw[data.Symbol]
	if !ok {
		return nil
	}

	bids := toLevels(data.Bids)
	asks := toLevels(data.Asks)

	book := books.get(data.Symbol)
	if env.Type == "snapshot" {
		book.setSnapshot(bids, asks)
	} else {
		book.update(bids, asks)
	}

	bidPrices, bidQtys, askPrices, askQtys := book.depth5(scale.PriceScale, scale.QtyScale)

	idBytes := strconv.AppendUint(nil, data.UpdateID, 10)
	return []marketmodel.ParsedRecord{{
		Type:        marketmodel.MessageDepth5,
		Symbol:      sym,
		ProductType: product,
		Depth5: marketmodel.Depth5{
			Symbol:       sym,
			ProductType:  product,
			UpdateID:     data.UpdateID,
			BidPrices:    bidPrices,
			BidQtys:      bidQtys,
			AskPrices:    askPrices,
			AskQtys:      askQtys,
			ExchangeTsUs: env.TS * 1000,
		},
		IDBytes: idBytes,
	}}
}

func toLevels(raw [][2]decimal.Decimal) []level {
	out := make([]level, 0, len(raw))
	for _, r := range raw {
		priceStr, qtyStr := r[0].String(), r[1].String()
		price, _ := strconv.ParseFloat(priceStr, 64)
		qty, _ := strconv.ParseFloat(qtyStr, 64)
		out = append(out, level{price: price, qty: qty, priceStr: priceStr, qtyStr: qtyStr})
	}
	return out
}

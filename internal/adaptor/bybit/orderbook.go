package bybit

import (
	"sync"

	"main/internal/adaptor/common"
	"main/internal/marketmodel"
)

const maxLevels = 50
const priceEps = 1e-10

// level is a single price/volume pair, keeping both the parsed float (for
// sorted-position comparisons) and the original decimal string (for
// lossless rescale into the process-wide fixed-point Price/Quantity).
type level struct {
	price, qty       float64
	priceStr, qtyStr string
}

// book maintains up to maxLevels price levels per side for one symbol's
// orderbook.50 stream, mirroring original_source's OrderBook<N> (bids sorted
// descending, asks ascending).
type book struct {
	mu   sync.Mutex
	bids []level
	asks []level
}

func (b *book) setSnapshot(bids, asks []level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(bids) > maxLevels {
		bids = bids[:maxLevels]
	}
	if len(asks) > maxLevels {
		asks = asks[:maxLevels]
	}
	b.bids = append([]level(nil), bids...)
	b.asks = append([]level(nil), asks...)
	sortDesc(b.bids)
	sortAsc(b.asks)
}

func (b *book) update(bids, asks []level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, lv := range bids {
		b.bids = applySideDesc(b.bids, lv, maxLevels)
	}
	for _, lv := range asks {
		b.asks = applySideAsc(b.asks, lv, maxLevels)
	}
}

func (b *book) depth5(priceScale, qtyScale int) (bidPrices [5]marketmodel.Price, bidQtys [5]marketmodel.Quantity, askPrices [5]marketmodel.Price, askQtys [5]marketmodel.Quantity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.bids)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		bidPrices[i] = common.RescalePrice(b.bids[i].priceStr, priceScale)
		bidQtys[i] = common.RescaleQty(b.bids[i].qtyStr, qtyScale)
	}
	n = len(b.asks)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		askPrices[i] = common.RescalePrice(b.asks[i].priceStr, priceScale)
		askQtys[i] = common.RescaleQty(b.asks[i].qtyStr, qtyScale)
	}
	return
}

func sortDesc(levels []level) {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j].price > levels[j-1].price; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

func sortAsc(levels []level) {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j].price < levels[j-1].price; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

func applySideDesc(levels []level, lv level, max int) []level {
	for i, existing := range levels {
		if absFloat(existing.price-lv.price) < priceEps {
			if lv.qty == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i] = lv
			return levels
		}
	}
	if lv.qty == 0 {
		return levels
	}
	pos := len(levels)
	for i, existing := range levels {
		if existing.price < lv.price {
			pos = i
			break
		}
	}
	levels = append(levels, level{})
	copy(levels[pos+1:], levels[pos:])
	levels[pos] = lv
	if len(levels) > max {
		levels = levels[:max]
	}
	return levels
}

func applySideAsc(levels []level, lv level, max int) []level {
	for i, existing := range levels {
		if absFloat(existing.price-lv.price) < priceEps {
			if lv.qty == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i] = lv
			return levels
		}
	}
	if lv.qty == 0 {
		return levels
	}
	pos := len(levels)
	for i, existing := range levels {
		if existing.price > lv.price {
			pos = i
			break
		}
	}
	levels = append(levels, level{})
	copy(levels[pos+1:], levels[pos:])
	levels[pos] = lv
	if len(levels) > max {
		levels = levels[:max]
	}
	return levels
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// bookRegistry holds one book per symbol for a single orderbook.50 stream,
// created lazily on first message: stateful adaptors capture their state
// inside the Parse closure, not in the pipeline.
type bookRegistry struct {
	mu    sync.Mutex
	books map[string]*book
}

func newBookRegistry() *bookRegistry {
	return &bookRegistry{books: make(map[string]*book)}
}

func (r *bookRegistry) get(symbol string) *book {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[symbol]
	if !ok {
		b = &book{}
		r.books[symbol] = b
	}
	return b
}

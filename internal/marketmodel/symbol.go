package marketmodel

const (
	baseCap  = 12
	quoteCap = 8
	// SymbolLen is the fixed byte width of an encoded Symbol as stored in
	// record slots: base and quote packed into baseCap+quoteCap bytes,
	// consistent across connections. It is independent of the SHM symbol
	// directory, whose 16-byte name field holds the symbol's string form.
	SymbolLen = baseCap + quoteCap
)

var (
	symbolCharset = [...]rune{
		'\x00',
		'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
		'-', '_', '.',
	}
	symbolCharsetMap = initSymbolCharsetMap()
)

// Symbol is a venue-agnostic string key encoded into a fixed-width byte
// array so it can be stored directly in shared-memory ring slots.
// Immutable for the lifetime of a subscription.
type Symbol [SymbolLen]byte

// NewSymbol encodes a base/quote pair (e.g. "BTC", "USDT") into a Symbol.
func NewSymbol(base, quote string) Symbol {
	var s Symbol
	for i, r := range base {
		if i >= baseCap {
			break
		}
		s[i] = symbolCharsetMap[r]
	}
	for i, r := range quote {
		if i >= quoteCap {
			break
		}
		s[i+baseCap] = symbolCharsetMap[r]
	}
	return s
}

// String decodes a Symbol back to its "BASEQUOTE" form.
func (s Symbol) String() string {
	buf := make([]rune, 0, SymbolLen)
	for _, n := range s[:] {
		if n == 0 {
			continue
		}
		buf = append(buf, symbolCharset[n])
	}
	return string(buf)
}

func initSymbolCharsetMap() map[rune]uint8 {
	m := make(map[rune]uint8, len(symbolCharset))
	for i, r := range symbolCharset {
		m[r] = uint8(i)
	}
	return m
}

package domain

// CoinGeckoID maps internal symbols to CoinGecko API identifiers.
var CoinGeckoID = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"XRP": "ripple",
	"SOL": "solana",
	"ADA": "cardano",
}

// YahooTicker maps internal symbols to Yahoo Finance tickers.
var YahooTicker = map[string]string{
	"BTC": "BTC-USD",
	"ETH": "ETH-USD",
	"XRP": "XRP-USD",
	"SOL": "SOL-USD",
	"ADA": "ADA-USD",
}

// SupportedSymbols lists the index constituents in display order.
var SupportedSymbols = []string{"BTC", "ETH", "XRP", "SOL", "ADA"}

// IsSupported reports whether symbol is a known index constituent.
func IsSupported(symbol string) bool {
	_, ok := CoinGeckoID[symbol]
	return ok
}

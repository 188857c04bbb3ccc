package domain

import "strings"

// wellKnownAssets maps contract pair fragments to display asset names.
// XBT is Kraken's legacy bitcoin code.
var wellKnownAssets = []struct {
	pair  string
	asset string
}{
	{"XBTUSD", "BTC"},
	{"BTCUSD", "BTC"},
	{"ETHUSD", "ETH"},
	{"SOLUSD", "SOL"},
	{"XRPUSD", "XRP"},
	{"DOGEUSD", "DOGE"},
	{"ADAUSD", "ADA"},
	{"AVAXUSD", "AVAX"},
	{"MATICUSD", "MATIC"},
	{"DOTUSD", "DOT"},
	{"LINKUSD", "LINK"},
}

// AssetFromContract extracts a display asset name from a futures contract
// symbol: "PF_XBTUSD" -> "BTC", "FI_ETHUSD_241225" -> "ETH". Unknown formats
// return "Unknown".
func AssetFromContract(contract string) string {
	if contract == "" {
		return "Unknown"
	}

	c := strings.ToUpper(contract)
	c = strings.ReplaceAll(c, "PF_", "")
	c = strings.ReplaceAll(c, "FI_", "")

	for _, w := range wellKnownAssets {
		if strings.Contains(c, w.pair) {
			return w.asset
		}
	}

	if i := strings.Index(c, "USD"); i >= 0 {
		asset := c[:i]
		asset = strings.ReplaceAll(asset, "_", "")
		asset = strings.ReplaceAll(asset, "-", "")
		if asset != "" {
			return asset
		}
	}

	return "Unknown"
}

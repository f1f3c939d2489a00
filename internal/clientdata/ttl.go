package clientdata

import "time"

// TTL defaults. The quote TTL is normally overridden by PRICE_CACHE_TTL.
const (
	TTLPriceQuote = 30 * time.Second
	// Daily bars only change once a session closes
	TTLPriceHistory = time.Hour
)

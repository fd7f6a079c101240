// Package utils provides utility functions for the application.
package utils

// Redis cache keys shared across flows and the scheduler
const (
	DynamicOptionsCacheKey = "filter:dynamic_options"
	ExchangeRateCacheKey   = "rates" // prefix; full key is rates:<from>:<to>
)

// HTTP constants
const (
	CORSMaxAge = 86400 // seconds
)

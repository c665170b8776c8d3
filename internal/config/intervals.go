package config

import "time"

// Default intervals
const (
	// ThrottleInterval is the minimum spacing of distance lookups per observation
	ThrottleInterval = 3 * time.Second

	// RoutingTimeout bounds one directions API call
	RoutingTimeout = 10 * time.Second

	// RouteCacheTTL is how long a routed distance is reused for the same origin cell
	RouteCacheTTL = 30 * time.Second

	// ArrivalFlushInterval defines how often new arrivals are saved to PostgreSQL
	ArrivalFlushInterval = 20 * time.Second

	// ArrivalRetention is how long saved arrivals stay in memory
	ArrivalRetention = 24 * time.Hour

	// MemoryStatsInterval defines how often runtime memory usage is logged
	MemoryStatsInterval = 30 * time.Second
)

package constants

import "time"

const (
	// MIGRATOR_PARAM is the query parameter and body field naming the migration source
	MIGRATOR_PARAM = "migrator"

	DEFAULT_MAX_RUN_TIME    = 25 * time.Second
	DEFAULT_STATS_CACHE_TTL = time.Minute
)

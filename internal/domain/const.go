package domain

const (
	// Migration defaults
	DEFAULT_BATCH_SIZE         = 100
	DEFAULT_RECOUNT_CHUNK_SIZE = 100
	DEFAULT_WORKERS            = 4
	DEFAULT_TABLE_PREFIX       = "wp_"

	// Persisted state key suffixes
	STATUS_KEY_SUFFIX = "_migrated_status"
)

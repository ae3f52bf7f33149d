package ingestion

// Thresholds driving the chapter-to-embedding fanout in phase 2.2. The
// per-text oversize threshold for phase 2.3 comes from
// config.IngestionConfig.OversizeThresholdPct instead, since it is operator
// tunable.
const (
	idealChunkSizeTokens   = 2000
	summaryThresholdTokens = 2500
	summaryMaxTokens       = 1024
)

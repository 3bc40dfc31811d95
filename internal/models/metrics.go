package models

import "time"

// SystemMetrics is a JSON snapshot of the Prometheus instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	Generations              uint64    `json:"generations"`
	GenerationFailures       uint64    `json:"generation_failures"`
	FreeSlotRatio            float64   `json:"free_slot_ratio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

package rpc

import "context"

func metricsTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_get_metrics",
			Description: "Snapshot of counters, gauges, and histograms",
			Category:    "metrics",
			Handler:     handleGetMetrics,
		},
	}
}

func handleGetMetrics(_ context.Context, deps *Deps, _ Args) (interface{}, error) {
	stats := deps.Registry.Stats()
	if deps.Metrics != nil {
		deps.Metrics.SetGauge("active_sessions", float64(stats.SessionCount))
		deps.Metrics.SetGauge("total_memory_bytes", float64(stats.TotalMemoryBytes))
		deps.Metrics.SetGauge("cache_size", float64(stats.ChunkCacheSize))
		deps.Metrics.SetGauge("index_size", float64(stats.IndexCacheSize))
	}
	if deps.Metrics == nil {
		return map[string]interface{}{}, nil
	}
	return deps.Metrics.Snapshot(), nil
}

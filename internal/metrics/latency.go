package metrics

import (
	"math"
	"sort"
)

// LatencyStats summarizes a latency sample in milliseconds.
type LatencyStats struct {
	Minimum      float64
	Maximum      float64
	Average      float64
	Percentile50 float64
	Percentile95 float64
	Percentile99 float64
}

// ComputeLatencyStats derives deterministic distribution statistics from the sample.
// An empty sample yields all-zero stats; that is the legitimate outcome of an
// all-failed run, not an error.
func ComputeLatencyStats(latencies []float64) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}

	sortedLatencies := make([]float64, len(latencies))
	copy(sortedLatencies, latencies)
	sort.Float64s(sortedLatencies)

	sum := 0.0
	for _, latency := range sortedLatencies {
		sum += latency
	}

	return LatencyStats{
		Minimum:      sortedLatencies[0],
		Maximum:      sortedLatencies[len(sortedLatencies)-1],
		Average:      sum / float64(len(sortedLatencies)),
		Percentile50: percentileValue(sortedLatencies, 50),
		Percentile95: percentileValue(sortedLatencies, 95),
		Percentile99: percentileValue(sortedLatencies, 99),
	}
}

// percentileValue selects the ceiling-index percentile from an ascending sample.
func percentileValue(sortedLatencies []float64, percentile float64) float64 {
	index := int(math.Ceil(percentile/100*float64(len(sortedLatencies)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sortedLatencies) {
		index = len(sortedLatencies) - 1
	}
	return sortedLatencies[index]
}

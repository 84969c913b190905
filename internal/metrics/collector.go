package metrics

import (
	"errors"
	"sync"
	"time"
)

const (
	collectorNotStartedMessageConstant = "metrics collector finalized before Start was called"

	// ErrorCodeTimeout marks a task abandoned after exceeding its deadline.
	ErrorCodeTimeout = "TIMEOUT"
	// ErrorCodeRateLimited marks a task rejected by backend rate limiting.
	ErrorCodeRateLimited = "RATE_LIMITED"
	// ErrorCodeUnknown marks a failure without a more specific category.
	ErrorCodeUnknown = "UNKNOWN"
)

// ErrCollectorNotStarted indicates Finalize was invoked on a collector that never started.
var ErrCollectorNotStarted = errors.New(collectorNotStartedMessageConstant)

// TaskResult captures the outcome of a single unit of load-generation work.
type TaskResult struct {
	Success              bool
	DurationMilliseconds float64
	ErrorMessage         string
	ErrorCode            string
}

// ScenarioResult aggregates every TaskResult recorded during one scenario run.
type ScenarioResult struct {
	ScenarioName              string
	TotalDurationMilliseconds float64
	TotalRequests             int
	Succeeded                 int
	Failed                    int
	Latencies                 []float64
	ErrorCounts               map[string]int
}

// Collector accumulates TaskResults between Start and Finalize.
type Collector struct {
	mutex        sync.Mutex
	started      bool
	startInstant time.Time
	results      []TaskResult
	errorCounts  map[string]int
	clock        func() time.Time
}

// NewCollector constructs an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		errorCounts: map[string]int{},
		clock:       time.Now,
	}
}

// Start records the wall-clock baseline for the run. Call exactly once before Record.
func (collector *Collector) Start() {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.started = true
	collector.startInstant = collector.clock()
}

// Record appends a TaskResult, tallying failure codes for the error histogram.
func (collector *Collector) Record(result TaskResult) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.results = append(collector.results, result)
	if !result.Success && len(result.ErrorCode) > 0 {
		collector.errorCounts[result.ErrorCode]++
	}
}

// Finalize computes the aggregate ScenarioResult. Finalizing an unstarted collector
// is a harness programming error and fails loudly instead of reporting a zero duration.
func (collector *Collector) Finalize(scenarioName string) (ScenarioResult, error) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()

	if !collector.started {
		return ScenarioResult{}, ErrCollectorNotStarted
	}

	elapsed := collector.clock().Sub(collector.startInstant)

	succeeded := 0
	latencies := make([]float64, 0, len(collector.results))
	for _, recordedResult := range collector.results {
		if recordedResult.Success {
			succeeded++
			latencies = append(latencies, recordedResult.DurationMilliseconds)
		}
	}

	errorCounts := make(map[string]int, len(collector.errorCounts))
	for errorCode, count := range collector.errorCounts {
		errorCounts[errorCode] = count
	}

	return ScenarioResult{
		ScenarioName:              scenarioName,
		TotalDurationMilliseconds: float64(elapsed) / float64(time.Millisecond),
		TotalRequests:             len(collector.results),
		Succeeded:                 succeeded,
		Failed:                    len(collector.results) - succeeded,
		Latencies:                 latencies,
		ErrorCounts:               errorCounts,
	}, nil
}

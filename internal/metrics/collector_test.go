package metrics_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/metrics"
)

const (
	collectorSubtestNameTemplateConstant = "%d_%s"
	collectorScenarioNameConstant        = "charge_burst"
)

func TestCollectorFinalizeAggregatesResults(testInstance *testing.T) {
	testCases := []struct {
		name                string
		recordedResults     []metrics.TaskResult
		expectedSucceeded   int
		expectedFailed      int
		expectedLatencies   []float64
		expectedErrorCounts map[string]int
	}{
		{
			name:                "empty_run",
			recordedResults:     nil,
			expectedSucceeded:   0,
			expectedFailed:      0,
			expectedLatencies:   []float64{},
			expectedErrorCounts: map[string]int{},
		},
		{
			name: "successes_only",
			recordedResults: []metrics.TaskResult{
				{Success: true, DurationMilliseconds: 12},
				{Success: true, DurationMilliseconds: 18},
			},
			expectedSucceeded:   2,
			expectedFailed:      0,
			expectedLatencies:   []float64{12, 18},
			expectedErrorCounts: map[string]int{},
		},
		{
			name: "mixed_results_with_error_histogram",
			recordedResults: []metrics.TaskResult{
				{Success: true, DurationMilliseconds: 25},
				{Success: false, DurationMilliseconds: 100, ErrorCode: metrics.ErrorCodeTimeout},
				{Success: false, DurationMilliseconds: 4, ErrorCode: metrics.ErrorCodeRateLimited},
				{Success: false, DurationMilliseconds: 6, ErrorCode: metrics.ErrorCodeRateLimited},
				{Success: true, DurationMilliseconds: 31},
			},
			expectedSucceeded: 2,
			expectedFailed:    3,
			expectedLatencies: []float64{25, 31},
			expectedErrorCounts: map[string]int{
				metrics.ErrorCodeTimeout:     1,
				metrics.ErrorCodeRateLimited: 2,
			},
		},
		{
			name: "failure_without_code_is_not_counted_in_histogram",
			recordedResults: []metrics.TaskResult{
				{Success: false, DurationMilliseconds: 9},
			},
			expectedSucceeded:   0,
			expectedFailed:      1,
			expectedLatencies:   []float64{},
			expectedErrorCounts: map[string]int{},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(collectorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			collector := metrics.NewCollector()
			collector.Start()
			for _, recordedResult := range testCase.recordedResults {
				collector.Record(recordedResult)
			}

			scenarioResult, finalizeError := collector.Finalize(collectorScenarioNameConstant)
			require.NoError(testInstance, finalizeError)

			require.Equal(testInstance, collectorScenarioNameConstant, scenarioResult.ScenarioName)
			require.Equal(testInstance, len(testCase.recordedResults), scenarioResult.TotalRequests)
			require.Equal(testInstance, testCase.expectedSucceeded, scenarioResult.Succeeded)
			require.Equal(testInstance, testCase.expectedFailed, scenarioResult.Failed)
			require.Equal(testInstance, testCase.expectedLatencies, scenarioResult.Latencies)
			require.Equal(testInstance, testCase.expectedErrorCounts, scenarioResult.ErrorCounts)

			require.Equal(testInstance, scenarioResult.TotalRequests, scenarioResult.Succeeded+scenarioResult.Failed)
			require.Len(testInstance, scenarioResult.Latencies, scenarioResult.Succeeded)
			require.GreaterOrEqual(testInstance, scenarioResult.TotalDurationMilliseconds, 0.0)
		})
	}
}

func TestCollectorFinalizeWithoutStartFails(testInstance *testing.T) {
	collector := metrics.NewCollector()
	collector.Record(metrics.TaskResult{Success: true, DurationMilliseconds: 5})

	_, finalizeError := collector.Finalize(collectorScenarioNameConstant)
	require.ErrorIs(testInstance, finalizeError, metrics.ErrCollectorNotStarted)
}

func TestCollectorLatenciesPreserveInsertionOrder(testInstance *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()
	collector.Record(metrics.TaskResult{Success: true, DurationMilliseconds: 30})
	collector.Record(metrics.TaskResult{Success: false, DurationMilliseconds: 1, ErrorCode: metrics.ErrorCodeUnknown})
	collector.Record(metrics.TaskResult{Success: true, DurationMilliseconds: 10})
	collector.Record(metrics.TaskResult{Success: true, DurationMilliseconds: 20})

	scenarioResult, finalizeError := collector.Finalize(collectorScenarioNameConstant)
	require.NoError(testInstance, finalizeError)
	require.Equal(testInstance, []float64{30, 10, 20}, scenarioResult.Latencies)
}

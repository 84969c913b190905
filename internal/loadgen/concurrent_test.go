package loadgen_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/loadgen"
	"github.com/tyemirov/dripcheck/internal/metrics"
)

func TestRunConcurrentReturnsEveryResult(testInstance *testing.T) {
	const taskCount = 10

	tasks := make([]loadgen.Task, 0, taskCount)
	for taskIndex := 0; taskIndex < taskCount; taskIndex++ {
		succeeded := taskIndex%2 == 0
		tasks = append(tasks, func(executionContext context.Context) metrics.TaskResult {
			return metrics.TaskResult{Success: succeeded, DurationMilliseconds: 1}
		})
	}

	collectedResults := loadgen.RunConcurrent(context.Background(), tasks, 3)
	require.Len(testInstance, collectedResults, taskCount)

	succeededCount := 0
	for _, taskResult := range collectedResults {
		if taskResult.Success {
			succeededCount++
		}
	}
	require.Equal(testInstance, 5, succeededCount)
}

func TestRunConcurrentHonorsConcurrencyBound(testInstance *testing.T) {
	const (
		taskCount        = 10
		concurrencyLimit = 3
	)

	var inFlight atomic.Int64
	var observedMaximum atomic.Int64

	tasks := make([]loadgen.Task, 0, taskCount)
	for taskIndex := 0; taskIndex < taskCount; taskIndex++ {
		tasks = append(tasks, func(executionContext context.Context) metrics.TaskResult {
			currentInFlight := inFlight.Add(1)
			for {
				previousMaximum := observedMaximum.Load()
				if currentInFlight <= previousMaximum || observedMaximum.CompareAndSwap(previousMaximum, currentInFlight) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return metrics.TaskResult{Success: true, DurationMilliseconds: 20}
		})
	}

	collectedResults := loadgen.RunConcurrent(context.Background(), tasks, concurrencyLimit)
	require.Len(testInstance, collectedResults, taskCount)
	require.LessOrEqual(testInstance, observedMaximum.Load(), int64(concurrencyLimit))
}

func TestRunConcurrentConvertsPanicsToFailedResults(testInstance *testing.T) {
	tasks := []loadgen.Task{
		func(executionContext context.Context) metrics.TaskResult {
			return metrics.TaskResult{Success: true, DurationMilliseconds: 1}
		},
		func(executionContext context.Context) metrics.TaskResult {
			panic("charge endpoint exploded")
		},
	}

	collectedResults := loadgen.RunConcurrent(context.Background(), tasks, 2)
	require.Len(testInstance, collectedResults, 2)

	failedCount := 0
	for _, taskResult := range collectedResults {
		if !taskResult.Success {
			failedCount++
			require.Contains(testInstance, taskResult.ErrorMessage, "charge endpoint exploded")
			require.Equal(testInstance, metrics.ErrorCodeUnknown, taskResult.ErrorCode)
		}
	}
	require.Equal(testInstance, 1, failedCount)
}

func TestRunConcurrentWithoutTasks(testInstance *testing.T) {
	collectedResults := loadgen.RunConcurrent(context.Background(), nil, 4)
	require.Empty(testInstance, collectedResults)
}

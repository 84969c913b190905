package loadgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/tyemirov/dripcheck/internal/metrics"
)

const taskPanicMessageTemplateConstant = "task panicked: %v"

// Task produces exactly one TaskResult. Implementations must convert their own
// failures into a failed TaskResult instead of panicking; panics are still
// recovered and recorded as failures so an executor never loses a slot.
type Task func(executionContext context.Context) metrics.TaskResult

// RunConcurrent executes every task with at most concurrencyLimit in flight.
// Results arrive in completion order, not submission order; callers needing
// submission order must tag results inside the task itself.
func RunConcurrent(executionContext context.Context, tasks []Task, concurrencyLimit int) []metrics.TaskResult {
	if len(tasks) == 0 {
		return nil
	}
	if concurrencyLimit < 1 {
		concurrencyLimit = 1
	}

	taskChannel := make(chan Task, len(tasks))
	resultChannel := make(chan metrics.TaskResult, len(tasks))

	var workerGroup sync.WaitGroup
	for workerIndex := 0; workerIndex < concurrencyLimit; workerIndex++ {
		workerGroup.Add(1)
		go func() {
			defer workerGroup.Done()
			for pendingTask := range taskChannel {
				resultChannel <- runGuarded(executionContext, pendingTask)
			}
		}()
	}

	for _, pendingTask := range tasks {
		taskChannel <- pendingTask
	}
	close(taskChannel)

	go func() {
		workerGroup.Wait()
		close(resultChannel)
	}()

	collectedResults := make([]metrics.TaskResult, 0, len(tasks))
	for taskResult := range resultChannel {
		collectedResults = append(collectedResults, taskResult)
	}
	return collectedResults
}

func runGuarded(executionContext context.Context, pendingTask Task) (taskResult metrics.TaskResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			taskResult = metrics.TaskResult{
				Success:      false,
				ErrorMessage: fmt.Sprintf(taskPanicMessageTemplateConstant, recovered),
				ErrorCode:    metrics.ErrorCodeUnknown,
			}
		}
	}()
	return pendingTask(executionContext)
}

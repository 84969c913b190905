package healthcheck

import (
	"context"
	"fmt"
	"time"
)

const (
	checkTimeoutMessageTemplateConstant   = "Check timed out after %dms"
	checkTimeoutSuggestionConstant        = "Verify the API endpoint is reachable and responsive, or raise the per-check timeout."
	checkCancelledMessageTemplateConstant = "Check abandoned after %dms: %v"
	checkCancelledSuggestionConstant      = "The run was cancelled before this check finished."
	checkPanicMessageTemplateConstant     = "Check failed with exception: %v"
	checkPanicSuggestionConstant          = "Inspect diagnostic logs for the recovered stack trace."
)

// RunnerCallbacks observe check lifecycle events. Either field may be nil.
type RunnerCallbacks struct {
	OnCheckStart    func(check Check)
	OnCheckComplete func(result CheckResult)
}

// RunnerResult aggregates one sequential run over a check suite.
type RunnerResult struct {
	Results                   []CheckResult
	Passed                    int
	Failed                    int
	TotalDurationMilliseconds float64
}

// Healthy reports whether every executed check succeeded.
func (runnerResult RunnerResult) Healthy() bool {
	return runnerResult.Failed == 0
}

// RunChecks executes the suite strictly in order. Every check yields exactly
// one CheckResult: a panic is recovered into a failed result and a check that
// outlives its timeout is abandoned with a synthesized timeout result while the
// runner moves on. The abandoned check's context is cancelled so cooperative
// checks can stop work early.
func RunChecks(executionContext context.Context, checks []Check, checkContext *CheckContext, callbacks RunnerCallbacks) RunnerResult {
	runStart := time.Now()
	runnerResult := RunnerResult{Results: make([]CheckResult, 0, len(checks))}
	for _, currentCheck := range checks {
		if callbacks.OnCheckStart != nil {
			callbacks.OnCheckStart(currentCheck)
		}
		checkResult := runSingleCheck(executionContext, currentCheck, checkContext)
		runnerResult.Results = append(runnerResult.Results, checkResult)
		if checkResult.Success {
			runnerResult.Passed++
		} else {
			runnerResult.Failed++
		}
		if callbacks.OnCheckComplete != nil {
			callbacks.OnCheckComplete(checkResult)
		}
	}
	runnerResult.TotalDurationMilliseconds = float64(time.Since(runStart)) / float64(time.Millisecond)
	return runnerResult
}

func runSingleCheck(executionContext context.Context, currentCheck Check, checkContext *CheckContext) CheckResult {
	checkTimeout := checkContext.CheckTimeout()
	timedContext, cancelTimedContext := context.WithTimeout(executionContext, checkTimeout)
	defer cancelTimedContext()

	checkStart := time.Now()
	resultChannel := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if recoveredValue := recover(); recoveredValue != nil {
				resultChannel <- CheckResult{
					Name:                 currentCheck.Name,
					Success:              false,
					DurationMilliseconds: float64(time.Since(checkStart)) / float64(time.Millisecond),
					Message:              fmt.Sprintf(checkPanicMessageTemplateConstant, recoveredValue),
					Suggestion:           checkPanicSuggestionConstant,
				}
			}
		}()
		resultChannel <- currentCheck.Run(timedContext, checkContext)
	}()

	select {
	case checkResult := <-resultChannel:
		checkResult.Name = currentCheck.Name
		if checkResult.DurationMilliseconds == 0 {
			checkResult.DurationMilliseconds = float64(time.Since(checkStart)) / float64(time.Millisecond)
		}
		return checkResult
	case <-timedContext.Done():
		if parentError := executionContext.Err(); parentError != nil {
			elapsed := time.Since(checkStart)
			return CheckResult{
				Name:                 currentCheck.Name,
				Success:              false,
				DurationMilliseconds: float64(elapsed) / float64(time.Millisecond),
				Message:              fmt.Sprintf(checkCancelledMessageTemplateConstant, elapsed.Milliseconds(), parentError),
				Suggestion:           checkCancelledSuggestionConstant,
			}
		}
		return CheckResult{
			Name:                 currentCheck.Name,
			Success:              false,
			DurationMilliseconds: float64(checkTimeout) / float64(time.Millisecond),
			Message:              fmt.Sprintf(checkTimeoutMessageTemplateConstant, checkTimeout.Milliseconds()),
			Suggestion:           checkTimeoutSuggestionConstant,
		}
	}
}

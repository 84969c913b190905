package loadgen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tyemirov/dripcheck/internal/metrics"
)

const (
	invalidRateMessageConstant     = "requests per second must be positive"
	invalidDurationMessageConstant = "load duration must be positive"

	// DefaultDrainGracePeriod bounds how long the executor waits for
	// still-pending tasks after the timed loop ends.
	DefaultDrainGracePeriod = 60 * time.Second
)

// ErrInvalidRate indicates a non-positive requests-per-second setting.
var ErrInvalidRate = errors.New(invalidRateMessageConstant)

// ErrInvalidDuration indicates a non-positive load duration setting.
var ErrInvalidDuration = errors.New(invalidDurationMessageConstant)

// RateLimitOptions configures a fixed-rate load run.
type RateLimitOptions struct {
	RequestsPerSecond int
	Duration          time.Duration
	DrainGracePeriod  time.Duration
}

// RateLimitOutcome reports issuance accounting for a fixed-rate load run.
type RateLimitOutcome struct {
	Issued  int
	Drained bool
}

// RunWithRateLimit issues tasks produced by generator at a fixed target rate for
// the configured duration without awaiting completion, invoking onResult as each
// task settles. The issue rate is bounded, not the completion rate: under load,
// completions lag behind issues and the pending set grows. After the timed loop,
// pending tasks get a bounded drain grace period; stragglers are abandoned and
// their results never reach onResult.
func RunWithRateLimit(executionContext context.Context, generator Task, options RateLimitOptions, onResult func(metrics.TaskResult)) (RateLimitOutcome, error) {
	if options.RequestsPerSecond < 1 {
		return RateLimitOutcome{}, ErrInvalidRate
	}
	if options.Duration <= 0 {
		return RateLimitOutcome{}, ErrInvalidDuration
	}

	drainGracePeriod := options.DrainGracePeriod
	if drainGracePeriod <= 0 {
		drainGracePeriod = DefaultDrainGracePeriod
	}

	issueInterval := time.Second / time.Duration(options.RequestsPerSecond)
	loopDeadline := time.Now().Add(options.Duration)

	issued := 0
	var pendingGroup sync.WaitGroup

	for time.Now().Before(loopDeadline) && executionContext.Err() == nil {
		issueStart := time.Now()

		pendingGroup.Add(1)
		issued++
		go func() {
			defer pendingGroup.Done()
			taskResult := runGuarded(executionContext, generator)
			if onResult != nil {
				onResult(taskResult)
			}
		}()

		issueElapsed := time.Since(issueStart)
		if sleepDuration := issueInterval - issueElapsed; sleepDuration > 0 {
			sleepTimer := time.NewTimer(sleepDuration)
			select {
			case <-sleepTimer.C:
			case <-executionContext.Done():
				sleepTimer.Stop()
			}
		}
	}

	drained := waitWithGrace(&pendingGroup, drainGracePeriod)
	return RateLimitOutcome{Issued: issued, Drained: drained}, nil
}

// waitWithGrace waits for the pending group up to the grace period and reports
// whether every task settled in time.
func waitWithGrace(pendingGroup *sync.WaitGroup, gracePeriod time.Duration) bool {
	settled := make(chan struct{})
	go func() {
		pendingGroup.Wait()
		close(settled)
	}()

	graceTimer := time.NewTimer(gracePeriod)
	defer graceTimer.Stop()

	select {
	case <-settled:
		return true
	case <-graceTimer.C:
		return false
	}
}

package healthcheck

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/report"
	"github.com/tyemirov/dripcheck/internal/utils"
	flagutils "github.com/tyemirov/dripcheck/internal/utils/flags"
)

const (
	checkCommandUseConstant              = "check"
	checkCommandShortDescriptionConstant = "Run health checks against a Drip API deployment"
	checkCommandLongDescriptionConstant  = "check runs the ordered health check suite against the configured Drip API, reporting per-check outcomes and an aggregate status."

	onlyFlagNameConstant       = "only"
	onlyFlagUsageConstant      = "Run only checks whose names contain any of the given substrings (case-insensitive)."
	quickFlagNameConstant      = "quick"
	quickFlagUsageConstant     = "Run only the quick, read-only checks."
	verboseFlagNameConstant    = "verbose"
	verboseFlagUsageConstant   = "Print per-check diagnostic details."
	formatFlagNameConstant     = "format"
	formatFlagUsageConstant    = "Output format: pretty or json."
	noCleanupFlagNameConstant  = "no-cleanup"
	noCleanupFlagUsageConstant = "Keep resources created during the run."
	timeoutFlagNameConstant    = "timeout"
	timeoutFlagUsageConstant   = "Per-check timeout in seconds."

	missingAPIKeyMessageConstant           = "no API key configured (set drip.api_key or the DRIP_API_KEY environment variable)"
	unsupportedCheckFormatTemplateConstant = "check does not support the %q output format"
	unexpectedArgumentsMessageConstant     = "check does not accept positional arguments"
	checkStartedDebugMessageConstant       = "health check started"
	checkCompletedDebugMessageConstant     = "health check completed"
	sinkUnavailableWarnMessageConstant     = "webhook sink degraded; delivery check may be skipped"
	checkNameLogFieldConstant              = "check_name"
	checkSuccessLogFieldConstant           = "check_success"
	checkDurationLogFieldConstant          = "duration_ms"
	failedChecksErrorTemplateConstant      = "%d of %d checks failed"
)

// ErrChecksFailed indicates at least one check in the run failed.
var ErrChecksFailed = errors.New("one or more checks failed")

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current check command configuration.
type ConfigurationProvider func() CommandConfiguration

// SuiteProvider assembles the filtered check suite for a run. The teardown
// function, when non-nil, is invoked after the run completes.
type SuiteProvider func(configuration CommandConfiguration, onlyPatterns []string, quickOnly bool) (suite []Check, teardown func(), err error)

// CommandBuilder assembles the check command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
	SuiteProvider                SuiteProvider
}

// Build constructs the check command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	checkCommand := &cobra.Command{
		Use:           checkCommandUseConstant,
		Short:         checkCommandShortDescriptionConstant,
		Long:          checkCommandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runCheck,
	}

	checkCommand.Flags().StringSlice(onlyFlagNameConstant, nil, onlyFlagUsageConstant)
	checkCommand.Flags().Bool(quickFlagNameConstant, false, quickFlagUsageConstant)
	checkCommand.Flags().Bool(verboseFlagNameConstant, false, verboseFlagUsageConstant)
	checkCommand.Flags().String(formatFlagNameConstant, "", formatFlagUsageConstant)
	checkCommand.Flags().Bool(noCleanupFlagNameConstant, false, noCleanupFlagUsageConstant)
	checkCommand.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagUsageConstant)

	return checkCommand, nil
}

func (builder *CommandBuilder) runCheck(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return utils.NewConfigurationError(errors.New(unexpectedArgumentsMessageConstant))
	}

	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration(command)

	outputFormat, formatError := report.ParseFormat(configuration.Format)
	if formatError != nil {
		return utils.NewConfigurationError(formatError)
	}
	if outputFormat == report.FormatCSV {
		return utils.NewConfigurationError(fmt.Errorf(unsupportedCheckFormatTemplateConstant, configuration.Format))
	}
	if len(configuration.APIKey) == 0 {
		return utils.NewConfigurationError(errors.New(missingAPIKeyMessageConstant))
	}

	dripClient, clientError := drip.NewClient(drip.ClientConfiguration{
		APIKey:  configuration.APIKey,
		BaseURL: configuration.BaseURL,
		Timeout: time.Duration(configuration.TimeoutSeconds) * time.Second,
	})
	if clientError != nil {
		return utils.NewConfigurationError(clientError)
	}

	onlyPatterns, _, _ := flagutils.StringSliceFlag(command, onlyFlagNameConstant)
	quickOnly, _, _ := flagutils.BoolFlag(command, quickFlagNameConstant)
	suite, teardown, suiteError := builder.resolveSuite(configuration, onlyPatterns, quickOnly, logger)
	if suiteError != nil {
		return utils.NewConfigurationError(suiteError)
	}
	if teardown != nil {
		defer teardown()
	}

	checkContext := &CheckContext{
		Client:            dripClient,
		APIKey:            configuration.APIKey,
		BaseURL:           configuration.BaseURL,
		SeededCustomerID:  configuration.CustomerID,
		SkipCleanup:       configuration.SkipCleanup,
		Timeout:           time.Duration(configuration.TimeoutSeconds) * time.Second,
		MinimumAPIVersion: configuration.MinimumAPIVersion,
		RenderCheckout:    configuration.RenderCheckout,
	}

	reporter := &report.CheckReporter{
		Writer:   command.OutOrStdout(),
		Verbose:  configuration.Verbose,
		UseColor: builder.humanReadableLoggingEnabled(),
	}
	callbacks := RunnerCallbacks{
		OnCheckStart: func(check Check) {
			logger.Debug(checkStartedDebugMessageConstant, zap.String(checkNameLogFieldConstant, check.Name))
		},
		OnCheckComplete: func(result CheckResult) {
			logger.Debug(checkCompletedDebugMessageConstant,
				zap.String(checkNameLogFieldConstant, result.Name),
				zap.Bool(checkSuccessLogFieldConstant, result.Success),
				zap.Float64(checkDurationLogFieldConstant, result.DurationMilliseconds),
			)
			if outputFormat == report.FormatPretty {
				reporter.RenderCheckLine(reportableOutcome(result))
			}
		},
	}

	runnerResult := RunChecks(command.Context(), suite, checkContext, callbacks)
	if renderError := reporter.RenderSummary(reportableRunOutcome(runnerResult), outputFormat); renderError != nil {
		return renderError
	}
	if !runnerResult.Healthy() {
		return fmt.Errorf(failedChecksErrorTemplateConstant+": %w", runnerResult.Failed, len(runnerResult.Results), ErrChecksFailed)
	}
	return nil
}

func reportableOutcome(checkResult CheckResult) report.CheckOutcome {
	return report.CheckOutcome{
		Name:                 checkResult.Name,
		Success:              checkResult.Success,
		DurationMilliseconds: checkResult.DurationMilliseconds,
		Message:              checkResult.Message,
		Details:              checkResult.Details,
		Suggestion:           checkResult.Suggestion,
	}
}

func reportableRunOutcome(runnerResult RunnerResult) report.CheckRunOutcome {
	runOutcome := report.CheckRunOutcome{
		Outcomes:                  make([]report.CheckOutcome, 0, len(runnerResult.Results)),
		Passed:                    runnerResult.Passed,
		Failed:                    runnerResult.Failed,
		TotalDurationMilliseconds: runnerResult.TotalDurationMilliseconds,
	}
	for _, checkResult := range runnerResult.Results {
		runOutcome.Outcomes = append(runOutcome.Outcomes, reportableOutcome(checkResult))
	}
	return runOutcome
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration = configuration.Sanitize()

	if verboseValue, verboseChanged, verboseError := flagutils.BoolFlag(command, verboseFlagNameConstant); verboseError == nil && verboseChanged {
		configuration.Verbose = verboseValue
	}
	if formatValue, formatChanged, formatError := flagutils.StringFlag(command, formatFlagNameConstant); formatError == nil && formatChanged {
		configuration.Format = formatValue
	}
	if noCleanupValue, noCleanupChanged, noCleanupError := flagutils.BoolFlag(command, noCleanupFlagNameConstant); noCleanupError == nil && noCleanupChanged {
		configuration.SkipCleanup = noCleanupValue
	}
	if timeoutValue, timeoutChanged, timeoutError := flagutils.IntFlag(command, timeoutFlagNameConstant); timeoutError == nil && timeoutChanged && timeoutValue > 0 {
		configuration.TimeoutSeconds = timeoutValue
	}
	return configuration
}

func (builder *CommandBuilder) resolveSuite(configuration CommandConfiguration, onlyPatterns []string, quickOnly bool, logger *zap.Logger) ([]Check, func(), error) {
	if builder.SuiteProvider == nil {
		return nil, nil, errors.New("no check suite provider configured")
	}
	suite, teardown, suiteError := builder.SuiteProvider(configuration, onlyPatterns, quickOnly)
	if suiteError != nil && len(suite) > 0 {
		logger.Warn(sinkUnavailableWarnMessageConstant, zap.Error(suiteError))
		suiteError = nil
	}
	return suite, teardown, suiteError
}

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	return builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider()
}

package loadgen

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dripcheck/internal/drip"
	"github.com/tyemirov/dripcheck/internal/metrics"
	"github.com/tyemirov/dripcheck/internal/report"
	"github.com/tyemirov/dripcheck/internal/utils"
	flagutils "github.com/tyemirov/dripcheck/internal/utils/flags"
)

const (
	loadtestCommandUseConstant              = "loadtest"
	loadtestCommandShortDescriptionConstant = "Generate charge traffic against a Drip API deployment"
	loadtestCommandLongDescriptionConstant  = "loadtest issues charge requests at a bounded rate or concurrency against the configured Drip API and reports latency and error aggregates."

	rpsFlagNameConstant          = "rps"
	rpsFlagUsageConstant         = "Target request issue rate per second (rate mode)."
	durationFlagNameConstant     = "duration"
	durationFlagUsageConstant    = "Test duration in seconds (rate mode)."
	concurrencyFlagNameConstant  = "concurrency"
	concurrencyFlagUsageConstant = "Maximum in-flight requests (burst mode)."
	requestsFlagNameConstant     = "requests"
	requestsFlagUsageConstant    = "Total number of requests to issue (burst mode)."
	modeFlagNameConstant         = "mode"
	modeFlagUsageConstant        = "Load mode: rate or burst."
	scenarioFlagNameConstant     = "scenario"
	scenarioFlagUsageConstant    = "Path to a YAML scenario file; overrides rate/burst flags."
	outputFlagNameConstant       = "format"
	outputFlagUsageConstant      = "Output format: pretty, json, or csv."
	customerFlagNameConstant     = "customer"
	customerFlagUsageConstant    = "Existing customer identifier to bill; a disposable customer is created when omitted."

	loadMissingAPIKeyMessageConstant  = "no API key configured (set drip.api_key or the DRIP_API_KEY environment variable)"
	loadUnexpectedArgumentsConstant   = "loadtest does not accept positional arguments"
	unknownModeTemplateConstant       = "unknown load mode %q (expected rate or burst)"
	scenarioReadErrorTemplateConstant = "read scenario file %s"
	customerSetupErrorMessageConstant = "create load-test customer"
	loadStartedInfoMessageConstant    = "load test started"
	loadFinishedInfoMessageConstant   = "load test finished"
	loadDrainWarnMessageConstant      = "drain grace period expired; straggler results were dropped"
	scenarioNameLogFieldConstant      = "scenario"
	loadModeLogFieldConstant          = "mode"
	issuedRequestsLogFieldConstant    = "issued"
	recordedRequestsLogFieldConstant  = "recorded"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current loadtest command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the loadtest command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
}

// Build constructs the loadtest command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	loadtestCommand := &cobra.Command{
		Use:           loadtestCommandUseConstant,
		Short:         loadtestCommandShortDescriptionConstant,
		Long:          loadtestCommandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runLoadtest,
	}

	loadtestCommand.Flags().Int(rpsFlagNameConstant, 0, rpsFlagUsageConstant)
	loadtestCommand.Flags().Int(durationFlagNameConstant, 0, durationFlagUsageConstant)
	loadtestCommand.Flags().Int(concurrencyFlagNameConstant, 0, concurrencyFlagUsageConstant)
	loadtestCommand.Flags().Int(requestsFlagNameConstant, 0, requestsFlagUsageConstant)
	loadtestCommand.Flags().String(modeFlagNameConstant, ScenarioModeRate, modeFlagUsageConstant)
	loadtestCommand.Flags().String(scenarioFlagNameConstant, "", scenarioFlagUsageConstant)
	loadtestCommand.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	loadtestCommand.Flags().String(customerFlagNameConstant, "", customerFlagUsageConstant)

	return loadtestCommand, nil
}

func (builder *CommandBuilder) runLoadtest(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return utils.NewConfigurationError(errors.New(loadUnexpectedArgumentsConstant))
	}

	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration(command)

	outputFormat, formatError := report.ParseFormat(configuration.Format)
	if formatError != nil {
		return utils.NewConfigurationError(formatError)
	}
	if len(configuration.APIKey) == 0 {
		return utils.NewConfigurationError(errors.New(loadMissingAPIKeyMessageConstant))
	}

	scenario, scenarioError := builder.resolveScenario(command, configuration)
	if scenarioError != nil {
		return utils.NewConfigurationError(scenarioError)
	}

	dripClient, clientError := drip.NewClient(drip.ClientConfiguration{
		APIKey:  configuration.APIKey,
		BaseURL: configuration.BaseURL,
		Timeout: time.Duration(configuration.TimeoutSeconds) * time.Second,
	})
	if clientError != nil {
		return utils.NewConfigurationError(clientError)
	}

	executionContext := command.Context()
	customerID, customerCleanup, customerError := ensureLoadCustomer(executionContext, dripClient, configuration.CustomerID)
	if customerError != nil {
		return utils.NewConfigurationError(customerError)
	}
	defer customerCleanup()

	logger.Info(loadStartedInfoMessageConstant,
		zap.String(scenarioNameLogFieldConstant, scenario.Name),
		zap.String(loadModeLogFieldConstant, scenario.Mode),
	)

	collector := metrics.NewCollector()
	collector.Start()
	chargeTask := newChargeTask(dripClient, customerID, scenario.Meter, scenario.Quantity)

	switch scenario.Mode {
	case ScenarioModeBurst:
		tasks := make([]Task, scenario.TotalRequests)
		for taskIndex := range tasks {
			tasks[taskIndex] = chargeTask
		}
		for _, taskResult := range RunConcurrent(executionContext, tasks, scenario.Concurrency) {
			collector.Record(taskResult)
		}
	case ScenarioModeRate:
		rateOutcome, rateError := RunWithRateLimit(executionContext, chargeTask, RateLimitOptions{
			RequestsPerSecond: scenario.RequestsPerSecond,
			Duration:          time.Duration(scenario.DurationSeconds) * time.Second,
		}, collector.Record)
		if rateError != nil {
			return utils.NewConfigurationError(rateError)
		}
		if !rateOutcome.Drained {
			logger.Warn(loadDrainWarnMessageConstant, zap.Int(issuedRequestsLogFieldConstant, rateOutcome.Issued))
		}
	default:
		return utils.NewConfigurationError(fmt.Errorf(unknownModeTemplateConstant, scenario.Mode))
	}

	scenarioResult, finalizeError := collector.Finalize(scenario.Name)
	if finalizeError != nil {
		return finalizeError
	}
	logger.Info(loadFinishedInfoMessageConstant,
		zap.String(scenarioNameLogFieldConstant, scenarioResult.ScenarioName),
		zap.Int(recordedRequestsLogFieldConstant, scenarioResult.TotalRequests),
	)

	reporter := &report.ScenarioReporter{
		Writer:   command.OutOrStdout(),
		UseColor: builder.humanReadableLoggingEnabled(),
	}
	return reporter.Render(scenarioResult, outputFormat)
}

func (builder *CommandBuilder) resolveScenario(command *cobra.Command, configuration CommandConfiguration) (Scenario, error) {
	if len(configuration.ScenarioPath) > 0 {
		scenarioContent, readError := os.ReadFile(configuration.ScenarioPath)
		if readError != nil {
			return Scenario{}, fmt.Errorf(scenarioReadErrorTemplateConstant+": %w", configuration.ScenarioPath, readError)
		}
		return ParseScenario(scenarioContent)
	}

	loadMode := ScenarioModeRate
	if modeValue, modeChanged, modeError := flagutils.StringFlag(command, modeFlagNameConstant); modeError == nil && modeChanged {
		loadMode = strings.ToLower(strings.TrimSpace(modeValue))
	}
	if loadMode != ScenarioModeRate && loadMode != ScenarioModeBurst {
		return Scenario{}, fmt.Errorf(unknownModeTemplateConstant, loadMode)
	}

	return Scenario{
		Name:              defaultLoadScenarioNameConstant,
		Mode:              loadMode,
		RequestsPerSecond: configuration.RequestsPerSecond,
		DurationSeconds:   configuration.DurationSeconds,
		Concurrency:       configuration.Concurrency,
		TotalRequests:     configuration.TotalRequests,
		Meter:             configuration.Meter,
		Quantity:          configuration.Quantity,
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration = configuration.Sanitize()

	if rateValue, rateChanged, rateError := flagutils.IntFlag(command, rpsFlagNameConstant); rateError == nil && rateChanged && rateValue > 0 {
		configuration.RequestsPerSecond = rateValue
	}
	if durationValue, durationChanged, durationError := flagutils.IntFlag(command, durationFlagNameConstant); durationError == nil && durationChanged && durationValue > 0 {
		configuration.DurationSeconds = durationValue
	}
	if concurrencyValue, concurrencyChanged, concurrencyError := flagutils.IntFlag(command, concurrencyFlagNameConstant); concurrencyError == nil && concurrencyChanged && concurrencyValue > 0 {
		configuration.Concurrency = concurrencyValue
	}
	if requestsValue, requestsChanged, requestsError := flagutils.IntFlag(command, requestsFlagNameConstant); requestsError == nil && requestsChanged && requestsValue > 0 {
		configuration.TotalRequests = requestsValue
	}
	if scenarioValue, scenarioChanged, scenarioError := flagutils.StringFlag(command, scenarioFlagNameConstant); scenarioError == nil && scenarioChanged {
		configuration.ScenarioPath = strings.TrimSpace(scenarioValue)
	}
	if formatValue, formatChanged, formatError := flagutils.StringFlag(command, outputFlagNameConstant); formatError == nil && formatChanged {
		configuration.Format = formatValue
	}
	if customerValue, customerChanged, customerError := flagutils.StringFlag(command, customerFlagNameConstant); customerError == nil && customerChanged {
		configuration.CustomerID = strings.TrimSpace(customerValue)
	}
	return configuration
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	return builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider()
}

// Package cli wires the dripcheck command hierarchy, configuration loading,
// and structured logging.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dripcheck/internal/checks"
	"github.com/tyemirov/dripcheck/internal/healthcheck"
	"github.com/tyemirov/dripcheck/internal/loadgen"
	"github.com/tyemirov/dripcheck/internal/utils"
	flagutils "github.com/tyemirov/dripcheck/internal/utils/flags"
	"github.com/tyemirov/dripcheck/internal/version"
	"github.com/tyemirov/dripcheck/internal/webhooksink"
)

const (
	applicationNameConstant             = "dripcheck"
	applicationShortDescriptionConstant = "Health checks and load tests for Drip billing API deployments"
	applicationLongDescriptionConstant  = "dripcheck verifies a Drip billing API deployment end to end and generates bounded charge traffic for load measurements."

	configFileFlagNameConstant  = "config"
	configFileFlagUsageConstant = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant    = "log-level"
	logLevelFlagUsageConstant   = "Override the configured log level."
	logFormatFlagNameConstant   = "log-format"
	logFormatFlagUsageConstant  = "Override the configured log format (structured or console)."
	versionFlagNameConstant     = "version"
	versionFlagUsageConstant    = "Print the application version and exit"

	versionCommandUseNameConstant          = "version"
	versionCommandShortDescriptionConstant = "Print the dripcheck version"
	versionCommandLongDescriptionConstant  = "version prints the current dripcheck release identifier."
	versionOutputTemplateConstant          = "dripcheck version: %s\n"

	environmentPrefixConstant              = "DRIPCHECK"
	configurationNameConstant              = "config"
	configurationTypeConstant              = "yaml"
	defaultConfigurationSearchPathConstant = "."
	userConfigurationDirectoryNameConstant = ".dripcheck"

	commonLogLevelConfigKeyConstant  = "common.log_level"
	commonLogFormatConfigKeyConstant = "common.log_format"

	configurationLoadErrorTemplateConstant = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant    = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant        = "unable to flush logger: %w"
)

type loggerOutputsFactory interface {
	CreateLoggerOutputs(utils.LogLevel, utils.LogFormat) (utils.LoggerOutputs, error)
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         loggerOutputsFactory
	logger                *zap.Logger
	consoleLogger         *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	versionFlag           bool
	versionResolver       func() string
	exitFunction          func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	_ = godotenv.Load()

	application := &Application{
		loggerFactory: utils.NewLoggerFactory(),
		logger:        zap.NewNop(),
		consoleLogger: zap.NewNop(),
		exitFunction:  os.Exit,
	}
	application.versionResolver = version.NewDetector(nil).Resolve

	application.configurationLoader = utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		application.resolveConfigurationSearchPaths(),
	)
	embeddedConfigurationData, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	application.configurationLoader.SetEmbeddedConfiguration(embeddedConfigurationData, embeddedConfigurationType)

	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if initializationError := application.initializeConfiguration(command); initializationError != nil {
				return utils.NewConfigurationError(initializationError)
			}
			if application.versionFlag {
				application.printVersion(command)
				application.exitFunction(0)
			}
			return nil
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	rootCommand.SetContext(context.Background())
	rootCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	rootCommand.PersistentFlags().BoolVar(&application.versionFlag, versionFlagNameConstant, false, versionFlagUsageConstant)

	versionCommand := &cobra.Command{
		Use:           versionCommandUseNameConstant,
		Short:         versionCommandShortDescriptionConstant,
		Long:          versionCommandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			application.printVersion(command)
			return nil
		},
	}
	rootCommand.AddCommand(versionCommand)

	checkBuilder := healthcheck.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.checkCommandConfiguration,
		SuiteProvider:                application.buildCheckSuite,
	}
	if checkCommand, checkBuildError := checkBuilder.Build(); checkBuildError == nil {
		rootCommand.AddCommand(checkCommand)
	}

	loadtestBuilder := loadgen.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.loadtestCommandConfiguration,
	}
	if loadtestCommand, loadtestBuildError := loadtestBuilder.Build(); loadtestBuildError == nil {
		rootCommand.AddCommand(loadtestCommand)
	}

	application.rootCommand = rootCommand
	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	application.rootCommand.SetArgs(os.Args[1:])

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// InitializeForCommand prepares application state for the provided command name without executing command logic.
func (application *Application) InitializeForCommand(commandUse string) error {
	command := &cobra.Command{Use: commandUse}
	return application.initializeConfiguration(command)
}

// ConfigFileUsed returns the configuration file path used during initialization.
func (application *Application) ConfigFileUsed() string {
	return application.configurationMetadata.ConfigFileUsed
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelError),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	if application.logger == nil {
		application.logger = zap.NewNop()
	}
	application.consoleLogger = loggerOutputs.ConsoleLogger
	if application.consoleLogger == nil {
		application.consoleLogger = zap.NewNop()
	}

	return nil
}

func (application *Application) checkCommandConfiguration() healthcheck.CommandConfiguration {
	configuration := application.configuration.Check
	apiKey, baseURL := application.configuration.Drip.ResolveCredentials()
	if len(strings.TrimSpace(configuration.APIKey)) == 0 {
		configuration.APIKey = apiKey
	}
	if len(strings.TrimSpace(configuration.BaseURL)) == 0 {
		configuration.BaseURL = baseURL
	}
	if len(strings.TrimSpace(configuration.MinimumAPIVersion)) == 0 {
		configuration.MinimumAPIVersion = application.configuration.Drip.MinimumAPIVersion
	}
	return configuration
}

func (application *Application) loadtestCommandConfiguration() loadgen.CommandConfiguration {
	configuration := application.configuration.Loadtest
	apiKey, baseURL := application.configuration.Drip.ResolveCredentials()
	if len(strings.TrimSpace(configuration.APIKey)) == 0 {
		configuration.APIKey = apiKey
	}
	if len(strings.TrimSpace(configuration.BaseURL)) == 0 {
		configuration.BaseURL = baseURL
	}
	if configuration.TimeoutSeconds <= 0 {
		configuration.TimeoutSeconds = application.configuration.Drip.TimeoutSeconds
	}
	return configuration
}

func (application *Application) buildCheckSuite(configuration healthcheck.CommandConfiguration, onlyPatterns []string, quickOnly bool) ([]healthcheck.Check, func(), error) {
	suiteOptions := checks.SuiteOptions{}
	var teardown func()
	sink, sinkError := webhooksink.Start()
	if sinkError == nil {
		suiteOptions.Sink = sink
		teardown = func() {
			_ = sink.Close()
		}
	}
	suite := checks.Filter(checks.Suite(suiteOptions), onlyPatterns, quickOnly)
	return suite, teardown, sinkError
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	_, flagChanged, flagError := flagutils.StringFlag(command, flagName)
	return flagError == nil && flagChanged
}

func (application *Application) printVersion(command *cobra.Command) {
	fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, application.versionResolver())
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}
	syncError := application.logger.Sync()
	if syncError == nil {
		return nil
	}
	if pathError, isPathError := syncError.(*os.PathError); isPathError && pathError != nil {
		return nil
	}
	return syncError
}

func (application *Application) resolveConfigurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, homeError := os.UserHomeDir(); homeError == nil && len(strings.TrimSpace(userConfigurationDirectory)) > 0 {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationReadErrorTemplateConstant     = "unable to read configuration file: %w"
	configurationDecodeErrorTemplateConstant   = "unable to decode configuration: %w"
	configurationEmbeddedErrorTemplateConstant = "unable to merge embedded configuration: %w"
	environmentKeyReplacerOldConstant          = "."
	environmentKeyReplacerNewConstant          = "_"
	environmentValueListSeparatorConstant      = ","
)

// LoadedConfiguration reports metadata about a completed configuration load.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader resolves configuration from embedded defaults, files, and the environment.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader constructs a ConfigurationLoader for the named configuration.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       searchPaths,
	}
}

// SetEmbeddedConfiguration registers embedded default configuration content merged before files and environment.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationContent []byte, configurationType string) {
	loader.embeddedConfiguration = configurationContent
	loader.embeddedConfigurationType = configurationType
}

// LoadConfiguration merges defaults, embedded content, an optional explicit file, discovered files, and environment overrides into target.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.embeddedConfigurationType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		viperInstance.SetConfigType(embeddedType)
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationEmbeddedErrorTemplateConstant, mergeError)
		}
		viperInstance.SetConfigType(loader.configurationType)
	}

	configurationFileUsed := ""
	trimmedExplicitPath := strings.TrimSpace(explicitFilePath)
	if len(trimmedExplicitPath) > 0 {
		viperInstance.SetConfigFile(trimmedExplicitPath)
		if readError := viperInstance.MergeInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
		configurationFileUsed = viperInstance.ConfigFileUsed()
	} else if len(loader.searchPaths) > 0 {
		for _, searchPath := range loader.searchPaths {
			trimmedSearchPath := strings.TrimSpace(searchPath)
			if len(trimmedSearchPath) == 0 {
				continue
			}
			viperInstance.AddConfigPath(trimmedSearchPath)
		}
		if readError := viperInstance.MergeInConfig(); readError == nil {
			configurationFileUsed = viperInstance.ConfigFileUsed()
		} else {
			var notFoundError viper.ConfigFileNotFoundError
			if !errors.As(readError, &notFoundError) {
				return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
			}
		}
	}

	if len(loader.environmentPrefix) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
		viperInstance.SetEnvKeyReplacer(strings.NewReplacer(environmentKeyReplacerOldConstant, environmentKeyReplacerNewConstant))
		viperInstance.AutomaticEnv()
		bindEnvironmentKeys(viperInstance, defaultValues)
	}

	if target != nil {
		decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(environmentValueListSeparatorConstant),
		))
		if decodeError := viperInstance.Unmarshal(target, decodeHook); decodeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
		}
	}

	return LoadedConfiguration{ConfigFileUsed: configurationFileUsed}, nil
}

// bindEnvironmentKeys registers known keys so AutomaticEnv resolves them even when absent from files.
func bindEnvironmentKeys(viperInstance *viper.Viper, defaultValues map[string]any) {
	for defaultKey := range defaultValues {
		_ = viperInstance.BindEnv(defaultKey)
	}
}

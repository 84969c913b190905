package utils

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel enumerates the supported diagnostic logging levels.
type LogLevel string

// LogFormat enumerates the supported diagnostic logging formats.
type LogFormat string

const (
	// LogLevelDebug emits debug, info, warn, and error events.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo emits info, warn, and error events.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn emits warn and error events.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError emits error events only.
	LogLevelError LogLevel = "error"

	// LogFormatStructured renders machine-readable JSON log lines.
	LogFormatStructured LogFormat = "structured"
	// LogFormatConsole renders human-readable log lines.
	LogFormatConsole LogFormat = "console"

	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
	loggerTimestampKeyConstant           = "timestamp"
)

// LoggerOutputs bundles the diagnostic and console loggers produced by the factory.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory builds zap loggers honoring the configured level and format.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLoggerOutputs builds the diagnostic and console logger pair for the requested level and format.
func (factory *LoggerFactory) CreateLoggerOutputs(requestedLevel LogLevel, requestedFormat LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := resolveZapLevel(requestedLevel)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	encoder, encoderError := resolveEncoder(requestedFormat)
	if encoderError != nil {
		return LoggerOutputs{}, encoderError
	}

	writeSyncer := zapcore.Lock(zapcore.AddSync(os.Stderr))
	diagnosticCore := zapcore.NewCore(encoder, writeSyncer, zapLevel)
	diagnosticLogger := zap.New(diagnosticCore)

	consoleLogger := zap.NewNop()
	if requestedFormat == LogFormatConsole {
		consoleEncoderConfiguration := zap.NewDevelopmentEncoderConfig()
		consoleEncoderConfiguration.TimeKey = ""
		consoleEncoderConfiguration.LevelKey = ""
		consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfiguration), writeSyncer, zapLevel)
		consoleLogger = zap.New(consoleCore)
	}

	return LoggerOutputs{DiagnosticLogger: diagnosticLogger, ConsoleLogger: consoleLogger}, nil
}

func resolveZapLevel(requestedLevel LogLevel) (zapcore.Level, error) {
	switch requestedLevel {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InvalidLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, string(requestedLevel))
	}
}

func resolveEncoder(requestedFormat LogFormat) (zapcore.Encoder, error) {
	switch requestedFormat {
	case LogFormatStructured:
		encoderConfiguration := zap.NewProductionEncoderConfig()
		encoderConfiguration.TimeKey = loggerTimestampKeyConstant
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfiguration), nil
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfiguration), nil
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, string(requestedFormat))
	}
}

package logger

import (
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LOG_LEVEL_DEBUG = "DEBUG"
	LOG_LEVEL_INFO  = "INFO"
	LOG_LEVEL_WARN  = "WARN"
	LOG_LEVEL_ERROR = "ERROR"
	LOG_LEVEL_FATAL = "FATAL"
	LOG_LEVEL_PANIC = "PANIC"
	LOG_LEVEL_OFF   = "OFF"
)

// Settings are read from the environment, e.g. SVM_LOG_LEVEL=DEBUG.
type Settings struct {
	Level      string `envconfig:"LOG_LEVEL" default:"INFO"`
	File       string `envconfig:"LOG_FILE"`
	MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE" default:"10"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
}

var fileWriter io.Writer

// SetupLogging sets the field names shared by every component logger.
func SetupLogging() {
	zerolog.LevelFieldName = "level_name"
	zerolog.TimestampFieldName = "timestamp"
}

// LoadSettings reads the SVM_ prefixed logging variables.
func LoadSettings() Settings {
	var settings Settings
	if err := envconfig.Process("SVM", &settings); err != nil {
		settings = Settings{Level: LOG_LEVEL_INFO}
	}
	return settings
}

// ParseLevel maps one of the LOG_LEVEL_* names to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case LOG_LEVEL_DEBUG:
		return zerolog.DebugLevel
	case LOG_LEVEL_WARN:
		return zerolog.WarnLevel
	case LOG_LEVEL_ERROR:
		return zerolog.ErrorLevel
	case LOG_LEVEL_FATAL:
		return zerolog.FatalLevel
	case LOG_LEVEL_PANIC:
		return zerolog.PanicLevel
	case LOG_LEVEL_OFF:
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

func output(settings Settings) io.Writer {
	if settings.File == "" {
		return os.Stderr
	}
	if fileWriter == nil {
		fileWriter = &lumberjack.Logger{
			Filename:   settings.File,
			MaxSize:    settings.MaxSizeMB,
			MaxBackups: settings.MaxBackups,
		}
	}
	return fileWriter
}

// NewLogger returns a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	settings := LoadSettings()
	return NewLoggerWithWriter(component, output(settings), ParseLevel(settings.Level))
}

// NewLoggerWithWriter is NewLogger with an explicit sink and level.
func NewLoggerWithWriter(component string, w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(level)
}

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

func Get(filepath string, config config.Application) zerolog.Logger {
	once.Do(func() {
		zerolog.DurationFieldUnit = time.Microsecond
		zerolog.ErrorFieldName = "error"
		zerolog.ErrorStackFieldName = "stack-trace"
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.LevelFieldName = "level"
		zerolog.MessageFieldName = "message"
		zerolog.TimestampFieldName = "timestamp"

		logLevel := zerolog.InfoLevel
		if config.Env == "development" {
			logLevel = zerolog.TraceLevel
		}

		var output io.Writer = os.Stdout
		if filepath != "" {
			fileWriter := &lumberjack.Logger{
				Filename:   filepath,
				MaxSize:    100,
				MaxBackups: 3,
				Compress:   true,
			}
			output = zerolog.MultiLevelWriter(os.Stdout, fileWriter)
		}

		logger = zerolog.New(output).
			Level(logLevel).
			Hook(AttachTraceIdFromContext()).
			With().
			Timestamp().
			Caller().
			Stack().
			Int("pid", os.Getpid()).
			Int("gid", os.Getgid()).
			Int("uid", os.Getuid()).
			Logger()

		logger.Info().
			Str(constants.KEY_TAG, "log Get").
			Str(constants.KEY_PROCESS, "initializing logger").
			Msg("finish initiating logging")
	})
	return logger
}

// Console is the human readable logger used by the terminal client.
func Console(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// File logs to a rotating file only, leaving stdout to the terminal client.
func File(filepath string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(&lumberjack.Logger{
		Filename:   filepath,
		MaxSize:    10,
		MaxBackups: 1,
	}).
		Level(level).
		Hook(AttachTraceIdFromContext()).
		With().
		Timestamp().
		Str(constants.KEY_APP_NAME, constants.APP_SHOP_CLIENT).
		Logger()
}

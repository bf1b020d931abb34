package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the discovery logger: one timestamped line per outcome, appended
// to a rolling file. Extra writers (test buffers, stderr in verbose mode) are
// multiplexed in.
func Setup(logPath string, level zerolog.Level, extra ...io.Writer) (zerolog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return zerolog.Nop(), err
	}

	writers := []io.Writer{&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // MB
		MaxBackups: 3,
	}}
	writers = append(writers, extra...)

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return logger, nil
}

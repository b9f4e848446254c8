package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Dir    string
	Level  string
	Format string
}

// Setup points the standard logrus logger at stdout plus a rotating file
// in cfg.Dir. The returned closer flushes the file.
func Setup(cfg Config) (io.Closer, error) {
	return configure(logrus.StandardLogger(), cfg, os.Stdout)
}

func configure(log *logrus.Logger, cfg Config, stdout io.Writer) (io.Closer, error) {
	if err := os.MkdirAll(cfg.Dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parse log level %q", cfg.Level)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	log.SetOutput(io.MultiWriter(stdout, logFile))
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	return logFile, nil
}

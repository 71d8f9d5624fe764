// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/clinic-assessment-server/internal/domain"
)

// New returns a logrus logger configured by cfg. Output is one of stdout,
// stderr, file or both (stdout and file); file output rotates through
// lumberjack.
func New(cfg domain.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	out, err := writer(cfg)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)
	return logger, nil
}

// ForStdio returns a copy of cfg that never writes to stdout, for processes
// whose stdout carries a protocol.
func ForStdio(cfg domain.LoggingConfig) domain.LoggingConfig {
	switch cfg.Output {
	case "", "stdout":
		cfg.Output = "stderr"
	case "both":
		cfg.Output = "file"
	}
	return cfg
}

func writer(cfg domain.LoggingConfig) (io.Writer, error) {
	switch cfg.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		return rotating(cfg)
	case "both":
		file, err := rotating(cfg)
		if err != nil {
			return nil, err
		}
		return io.MultiWriter(os.Stdout, file), nil
	default:
		return nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}
}

func rotating(cfg domain.LoggingConfig) (io.Writer, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("log filename is required for file output")
	}
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"socialbets/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure sets the global logrus level, formatter and output from config.
// The returned closer releases the log file, if one was opened.
func Configure(cfg *config.Config) (io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.IsDevelopment() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if cfg.LogFile == "" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))

	log.WithFields(log.Fields{
		"file":        cfg.LogFile,
		"max_size_mb": cfg.LogMaxSizeMB,
		"max_backups": cfg.LogMaxBackups,
		"max_age":     cfg.LogMaxAgeDays,
	}).Info("Logging to rotating file")

	return rotator, nil
}

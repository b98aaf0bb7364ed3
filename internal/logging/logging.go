// Package logging installs the process-wide slog logger: JSON records to
// stdout, optionally also to a rotated file and a GELF endpoint.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/gelf"
)

type Config struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	IncludeSrc bool   `yaml:"include_src" env:"LOG_INCLUDE_SRC"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size" env:"LOG_MAX_SIZE"`
	MaxAgeDays int    `yaml:"max_age" env:"LOG_MAX_AGE"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS"`
	GELFAddr   string `yaml:"gelf_addr" env:"GELF_ADDR"`
}

// Init builds the logger described by cfg and makes it the default. The
// returned func closes the file and GELF sinks.
func Init(cfg Config, service string) (func(), error) {
	writers := []io.Writer{os.Stdout}
	var closers []io.Closer

	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		writers = append(writers, lj)
		closers = append(closers, lj)
	}
	if cfg.GELFAddr != "" {
		gw, err := gelf.New(cfg.GELFAddr, service)
		if err != nil {
			return func() {}, err
		}
		writers = append(writers, gw)
		closers = append(closers, gw)
	}

	slog.SetDefault(New(io.MultiWriter(writers...), cfg))
	return func() {
		for _, c := range closers {
			c.Close()
		}
	}, nil
}

// New returns a JSON logger writing to w at cfg's level.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     LevelFromString(cfg.Level),
		AddSource: cfg.IncludeSrc,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if source, _ := a.Value.Any().(*slog.Source); source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func LevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

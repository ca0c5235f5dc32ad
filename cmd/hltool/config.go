// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the tool.
const (
	envLogLevel  = "HLTOOL_LOG_LEVEL"
	envLogFormat = "HLTOOL_LOG_FORMAT"
	envWorkers   = "HLTOOL_WORKERS"
)

// Log output formats.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

type config struct {
	logFormat string
	logLevel  slog.Level
	workers   int
}

// lookupFunc resolves one configuration variable.
type lookupFunc func(key string) (string, bool)

// readDotEnv loads variables from path. A missing file yields an empty set.
func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return vars, nil
}

// envLookup prefers the process environment over dotenv values.
func envLookup(dotenv map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := dotenv[key]
		return v, ok
	}
}

// loadConfig builds tool configuration from lookup.
func loadConfig(lookup lookupFunc) (config, error) {
	cfg := config{
		logLevel:  slog.LevelInfo,
		logFormat: logFormatText,
	}

	if v, ok := lookup(envLogLevel); ok && strings.TrimSpace(v) != "" {
		if err := cfg.logLevel.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return config{}, fmt.Errorf("%s: %w", envLogLevel, err)
		}
	}

	if v, ok := lookup(envLogFormat); ok && strings.TrimSpace(v) != "" {
		format := strings.ToLower(strings.TrimSpace(v))
		switch format {
		case logFormatText, logFormatJSON:
			cfg.logFormat = format
		default:
			return config{}, fmt.Errorf("%s: unknown format %q", envLogFormat, v)
		}
	}

	if v, ok := lookup(envWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return config{}, fmt.Errorf("%s: %w", envWorkers, err)
		}
		if n < 0 {
			return config{}, fmt.Errorf("%s: negative worker count %d", envWorkers, n)
		}
		cfg.workers = n
	}

	return cfg, nil
}

// newLogger builds a stderr logger for cfg. Quiet mode keeps errors only.
func newLogger(w io.Writer, cfg config, quiet bool) *slog.Logger {
	level := cfg.logLevel
	if quiet && level < slog.LevelError {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.logFormat == logFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// patternList collects a repeatable string flag.
type patternList []string

// String implements flag.Value.
func (p *patternList) String() string {
	if p == nil {
		return ""
	}

	return strings.Join(*p, ",")
}

// Set implements flag.Value.
func (p *patternList) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("empty pattern")
	}

	*p = append(*p, value)
	return nil
}

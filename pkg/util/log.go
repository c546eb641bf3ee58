/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package util

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var retryLogger = zap.NewNop()

// SetRetryLogger sets the logger used by Logger when reporting retries.
func SetRetryLogger(l *zap.Logger) {
	if l != nil {
		retryLogger = l
	}
}

// Logger is a backoff notify function that logs each failed attempt.
func Logger(err error, next time.Duration) {
	retryLogger.Warn("operation failed, retrying", zap.Error(err), zap.Duration("next", next))
}

// NewLogger builds the process logger for the given level. "dev" yields a human readable console logger.
func NewLogger(level string) (*zap.Logger, error) {
	if level == "dev" {
		return zap.NewDevelopment()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		err := lvl.UnmarshalText([]byte(level))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %s", level)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

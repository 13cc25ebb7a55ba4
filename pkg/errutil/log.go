// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

// Package errutil provides structured logging and test helpers for oops
// errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// attrs extracts structured attributes from an error. For oops errors the
// message, code, and context are logged separately; other errors log their
// string form.
func attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	out := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != "" {
		out = append(out, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		out = append(out, "context", ctx)
	}
	return out
}

// LogError logs an error with structured context if it's an oops error.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrs(err)...)
}

// LogWarning logs an error at warning level with structured context.
// Used for failures that are deliberately ignored, such as teardown errors
// during a forced reload.
func LogWarning(logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, attrs(err)...)
}

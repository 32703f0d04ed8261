// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package rlog centralizes this module's charmbracelet/log construction so
// every component logs with the same timestamp and level configuration,
// distinguished only by prefix.
package rlog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to os.Stderr with prefix as its component
// tag.
func New(prefix string) *log.Logger {
	return NewWithWriter(os.Stderr, prefix)
}

// NewWithWriter returns a logger writing to w, for tests that want to
// capture output.
func NewWithWriter(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
}

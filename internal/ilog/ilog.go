// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ilog is the engine's diagnostic sink: every stage writes its
// fatal and informational output through a *Logger rather than calling
// fmt.Println directly, so the CLI can route it and prefix it
// consistently.
package ilog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

// Level is a diagnostic's severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow, color.Bold),
	LevelError: color.New(color.FgRed, color.Bold),
}

var levelName = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// Logger is a leveled, colorized, prefixed diagnostic sink. The zero
// value is not usable; construct one with New.
type Logger struct {
	w        io.Writer
	prefix   string
	minLevel Level
	color    bool
}

// New returns a Logger writing to w, prefixing every line with the
// basename of sourcePath, and
// suppressing messages below minLevel. New always uses colored Colors
// and lets fatih/color decide whether to actually emit escapes; the
// library bases that on whether the process's standard output is a
// terminal, not on w.
func New(w io.Writer, sourcePath string, minLevel Level) *Logger {
	return &Logger{
		w:        w,
		prefix:   filepath.Base(sourcePath),
		minLevel: minLevel,
		color:    true,
	}
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s: %s: %s\n", l.prefix, levelName[level], msg)
	if l.color {
		levelColor[level].Fprint(l.w, line)
		return
	}
	fmt.Fprint(l.w, line)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

// Fatalf logs an error-level diagnostic and exits the process with
// status 1. Pipeline code should prefer returning an error, which the
// CLI prints to stderr before exiting with status 1, rather than
// calling this directly from deep in the pipeline.
func (l *Logger) Fatalf(format string, args ...any) {
	l.log(LevelError, format, args...)
	os.Exit(1)
}

// Discard is a Logger that drops everything below LevelError and
// writes nowhere useful; handy for tests that exercise pipeline code
// which requires a non-nil *Logger.
func Discard() *Logger {
	return New(io.Discard, "", LevelError)
}

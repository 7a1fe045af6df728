// log/stack.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// maxStackDepth bounds how many frames are attached to a log entry.
const maxStackDepth = 16

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Function
}

// Stack is a call stack, innermost frame first.
type Stack []StackFrame

// Callstack returns the stack of the function that called Callstack's
// caller when skip is 1; skip 0 starts at the caller itself. Runtime
// frames are omitted and the walk stops at main.main or the testing
// package.
func Callstack(skip int) Stack {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(2+skip, pcs[:])
	if n == 0 {
		return nil
	}

	st := make(Stack, 0, n)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function == "main.main" || strings.HasPrefix(frame.Function, "testing.") {
			break
		}
		if !strings.HasPrefix(frame.Function, "runtime.") {
			st = append(st, StackFrame{
				File:     filepath.Base(frame.File),
				Line:     frame.Line,
				Function: trimFunction(frame.Function),
			})
		}
		if !more {
			break
		}
	}
	return st
}

func trimFunction(fn string) string {
	fn = strings.TrimPrefix(fn, "github.com/flightdeck/navquery/")
	return strings.TrimPrefix(fn, "main.")
}

// LogValue renders the stack as a list of "file:line:function" strings,
// which keeps JSON log lines compact.
func (s Stack) LogValue() slog.Value {
	return slog.AnyValue(s.Strings())
}

func (s Stack) Strings() []string {
	r := make([]string, len(s))
	for i, f := range s {
		r[i] = f.String()
	}
	return r
}

func (s Stack) String() string {
	return strings.Join(s.Strings(), "\n")
}

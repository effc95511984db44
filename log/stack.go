// log/stack.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	modulePath        = "github.com/mmp/navdb/"
	maxCallstackDepth = 12
)

// StackFrame is one entry of the call stack attached to each log record.
type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// Callstack returns the stack of the calling goroutine, starting skip
// frames above the caller of Callstack. Frames belonging to the Go
// runtime or the test driver are not included.
func Callstack(skip int) []StackFrame {
	pcs := make([]uintptr, maxCallstackDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var stack []StackFrame
	for {
		f, more := frames.Next()
		if f.Function == "" || strings.HasPrefix(f.Function, "runtime.") || strings.HasPrefix(f.Function, "testing.") {
			break
		}
		stack = append(stack, StackFrame{
			File:     filepath.Base(f.File),
			Line:     f.Line,
			Function: strings.TrimPrefix(strings.TrimPrefix(f.Function, modulePath), "main."),
		})
		if !more || f.Function == "main.main" {
			break
		}
	}
	return stack
}

func (f StackFrame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Function
}

// util/error.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"strings"

	"github.com/mmp/navdb/log"
)

// ErrorLogger accumulates the non-fatal problems found while importing
// navigation data or applying scenery overrides so that processing can
// continue past them. Push and Pop maintain a context (file, airport,
// runway, ...) that prefixes each message.
//
// ErrorLogger is not safe for concurrent use; concurrent parsers each
// use their own and Merge the results.
type ErrorLogger struct {
	context []string
	errors  []string
}

func (e *ErrorLogger) Push(s string) {
	e.context = append(e.context, s)
}

func (e *ErrorLogger) Pop() {
	e.context = e.context[:len(e.context)-1]
}

func (e *ErrorLogger) ErrorString(format string, args ...any) {
	e.errors = append(e.errors, e.prefix()+fmt.Sprintf(format, args...))
}

func (e *ErrorLogger) Error(err error) {
	e.errors = append(e.errors, e.prefix()+err.Error())
}

func (e *ErrorLogger) prefix() string {
	if len(e.context) == 0 {
		return ""
	}
	return strings.Join(e.context, " / ") + ": "
}

// Merge appends the messages accumulated in o, which already carry
// their own context.
func (e *ErrorLogger) Merge(o *ErrorLogger) {
	if o != nil {
		e.errors = append(e.errors, o.errors...)
	}
}

func (e *ErrorLogger) HaveErrors() bool {
	return e.Len() > 0
}

func (e *ErrorLogger) Len() int {
	if e == nil {
		return 0
	}
	return len(e.errors)
}

// Errors returns the accumulated messages.
func (e *ErrorLogger) Errors() []string {
	if e == nil {
		return nil
	}
	return e.errors
}

func (e *ErrorLogger) String() string {
	return strings.Join(e.Errors(), "\n")
}

// CheckDepth panics if the context depth isn't d; it is deferred by
// functions that Push and Pop to catch unbalanced calls.
func (e *ErrorLogger) CheckDepth(d int) {
	if e == nil || e.CurrentDepth() == d {
		return
	}
	if r := recover(); r != nil {
		panic(r)
	}

	var stack []string
	for _, f := range log.Callstack(0) {
		stack = append(stack, f.String())
	}
	panic(fmt.Sprintf("ErrorLogger context depth %d, expected %d\n%s", e.CurrentDepth(), d,
		strings.Join(stack, "\n")))
}

func (e *ErrorLogger) CurrentDepth() int {
	if e == nil {
		return 0
	}
	return len(e.context)
}

// Package invariant provides contract assertions for the scanner and its
// consumers.
//
// Authoring mistakes in template source are never reported through this
// package; they become scanner errors. A panic from here means the scanner
// itself broke a rule it promised to keep: a state reprocessed a character
// without changing the stack, a frame was popped that was never pushed, a
// range ran backwards.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func (p *Parser) EnterScriptContent() {
//	    invariant.Precondition(p.inOpenTag, "body mode can only change while handling an openTag event")
//	    // ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
// Panics with POSTCONDITION VIOLATION if condition is false.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during execution.
// Panics with INVARIANT VIOLATION if condition is false.
//
// Example:
//
//	before := p.transitions
//	move := state.char(p, f, c)
//	invariant.Invariant(move != Reprocess || p.transitions != before,
//	    "state %s reprocessed %q without a transition", f.State, c)
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// Unreachable panics unconditionally. Use it for switch arms that the state
// table makes impossible.
func Unreachable(format string, args ...interface{}) {
	fail("UNREACHABLE", format, args...)
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
func NotNil(value interface{}, name string) {
	if isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// InRange panics if value is outside [minVal, maxVal].
//
// Example:
//
//	invariant.InRange(r.End, r.Start, len(src), "range end")
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d",
			name, minVal, maxVal, value)
	}
}

// Advanced panics unless cur is strictly greater than prev. Loops that must
// make progress on every iteration call it with the cursor before and after.
func Advanced(prev, cur int, what string) {
	if cur <= prev {
		fail("INVARIANT", "%s must advance (was %d, now %d)", what, prev, cur)
	}
}

// fail panics with a formatted message including the caller's location.
func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}

package build

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Critical should be called if a sanity check has failed, indicating a
// developer error or a corruption of state that operators should be made
// aware of immediately. It always prints to stderr; in a debug build it
// additionally panics so the bug surfaces during development, rather than
// crashing a running wallet over an invariant violation in production.
func Critical(v ...interface{}) string {
	msg := "Critical error: " + fmt.Sprintln(v...)
	fmt.Fprint(os.Stderr, msg)
	if DEBUG {
		panic(msg + string(debug.Stack()))
	}
	return msg
}

// Severe behaves like Critical but is used for violations that are serious
// but recoverable without restarting the process - callers log the returned
// string instead of propagating an error.
func Severe(v ...interface{}) string {
	msg := "Severe error: " + fmt.Sprintln(v...)
	fmt.Fprint(os.Stderr, msg)
	if DEBUG {
		panic(msg + string(debug.Stack()))
	}
	return msg
}

package gnupg

import (
	"bytes"
	"io"
)

// A Result accumulates the outcome of one invocation. It starts incomplete,
// is mutated only by status-line dispatch and raw-output accumulation, and is
// frozen once the child exits. A protocol-reported failure (bad signature,
// bad passphrase, missing recipient) is a normal outcome, surfaced through
// Success, never through a Go error.
type Result interface {
	io.Writer

	// Success reports whether the operation succeeded, evaluated from the
	// final accumulated state. An empty result evaluates to failure.
	Success() bool

	// Data returns the raw bytes the child wrote to standard output.
	Data() []byte
	// ExitCode returns the child's exit code, or -1 if it was terminated.
	ExitCode() int
	// Terminated reports whether the invocation was forcibly terminated.
	Terminated() bool
	// Stderr returns the child's human-readable diagnostics.
	Stderr() string
	// Problem returns the protocol-reported failure reason, if any.
	Problem() string

	consumeStatusLine(line statusLine) error
	finalize(state exitState)
}

// exitState carries the terminal facts attached to a result when the child
// exits or is forcibly terminated.
type exitState struct {
	code       int
	terminated bool
	stderr     string
}

// resultBase holds the state common to every result variant: the accumulated
// standard-output payload, the child's exit state, and any protocol-reported
// problem.
type resultBase struct {
	data       bytes.Buffer
	exitCode   int
	terminated bool
	stderr     string
	problem    string
	finalized  bool
}

// Write accumulates standard-output bytes verbatim.
func (r *resultBase) Write(p []byte) (int, error) {
	return r.data.Write(p)
}

// Data returns the raw bytes the child wrote to standard output.
func (r *resultBase) Data() []byte {
	return r.data.Bytes()
}

// ExitCode returns the child's exit code, or -1 if it was terminated.
func (r *resultBase) ExitCode() int {
	if r.terminated {
		return -1
	}
	return r.exitCode
}

// Terminated reports whether the invocation was forcibly terminated before
// the child exited on its own.
func (r *resultBase) Terminated() bool {
	return r.terminated
}

// Stderr returns the child's human-readable diagnostics.
func (r *resultBase) Stderr() string {
	return r.stderr
}

// Problem returns the reason string recorded from an ERROR, FAILURE,
// INV_RECP, or NO_RECP status line, or "terminated" after forced
// termination. Empty means no generic failure was reported.
func (r *resultBase) Problem() string {
	return r.problem
}

// finalize freezes the result. It is triggered exactly once, by child-exit
// detection in the collector, never by an individual status line.
func (r *resultBase) finalize(state exitState) {
	if r.finalized {
		return
	}
	r.finalized = true
	r.exitCode = state.code
	r.terminated = state.terminated
	r.stderr = state.stderr
	if state.terminated && r.problem == "" {
		r.problem = "terminated"
	}
}

// consumeGeneric handles the status keywords shared by all result variants.
// It reports whether the line was consumed.
func (r *resultBase) consumeGeneric(line statusLine) bool {
	switch line.keyword {
	case "ERROR", "FAILURE":
		r.problem = line.rest(0)
	case "INV_RECP":
		r.problem = "invalid recipient " + line.rest(1)
	case "NO_RECP":
		r.problem = "no recipient"
	default:
		return false
	}
	return true
}

// ok reports the base success condition: the child exited zero, was not
// terminated, and reported no generic failure.
func (r *resultBase) ok() bool {
	return r.finalized && !r.terminated && r.exitCode == 0 && r.problem == ""
}

// Package telemetry holds the package-level diagnostic logger used across
// the driver and its command-line harness.
package telemetry

import (
	"log"
	"sync"
)

var (
	mu        sync.Mutex
	sessionID string
	sink      = func(format string, v ...interface{}) { log.Printf(format, v...) }
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be redirected with SetLogger. When SetSessionID has been called, every
// line is tagged with that session's ID, so log output from a run can be
// correlated with the X-Session-Id header the debug HTTP server stamps on
// its responses for the same run.
func Logf(format string, v ...interface{}) {
	mu.Lock()
	id, out := sessionID, sink
	mu.Unlock()

	if id == "" {
		out(format, v...)
		return
	}
	out("[%s] "+format, append([]interface{}{id}, v...)...)
}

// SetSessionID tags subsequent Logf lines with id. cmd/a010cam calls this
// once per run with the uuid it generates at startup. Passing "" clears it.
func SetSessionID(id string) {
	mu.Lock()
	defer mu.Unlock()
	sessionID = id
}

// SetLogger replaces the underlying sink. Passing nil installs a no-op
// logger, which tests use to silence acquisition diagnostics.
func SetLogger(f func(format string, v ...interface{})) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		sink = func(string, ...interface{}) {}
		return
	}
	sink = f
}

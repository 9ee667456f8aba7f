// Package transport abstracts the byte stream the A010 driver reads frames
// from and writes AT commands to. The core driver never imports a serial
// library directly; it only depends on Port.
package transport

import (
	"io"
	"time"
)

// Port is the minimal interface the driver needs from a byte transport.
// A real implementation wraps an open USB-serial connection; tests use an
// in-memory double.
type Port interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPort extends Port with a read deadline. go.bug.st/serial's Port
// satisfies this directly; the core driver doesn't need it itself since
// framer.go paces short reads on its own, but callers opening a real port
// can use it to bound how long a stalled read blocks.
type TimeoutPort interface {
	Port
	SetReadTimeout(timeout time.Duration) error
}

package a010

import "errors"

var (
	// ErrTransportOpen is returned by Start when the underlying transport
	// cannot be opened or initialised.
	ErrTransportOpen = errors.New("a010: failed to open transport")

	// ErrTransportIO is returned when a read or write on an otherwise
	// open transport fails for a reason other than EOF/timeout (a closed
	// port, a hardware disconnect, etc).
	ErrTransportIO = errors.New("a010: transport read/write failed")

	// ErrSyncTimeout is returned when the framer scans more than 20000
	// bytes without finding the frame sentinel.
	ErrSyncTimeout = errors.New("a010: sync timeout, sentinel not found")

	// ErrPacketTimeout is returned when a read returns no bytes (EOF or a
	// stalled transport) while assembling a packet.
	ErrPacketTimeout = errors.New("a010: packet read timeout")

	// ErrNotRunning is returned by Driver.Err when the driver was never
	// started or has been stopped without a transport error recorded.
	ErrNotRunning = errors.New("a010: driver not running")
)

package transport

import (
	"bytes"
	"errors"
	"sync"
)

// TestablePort implements Port with configurable behaviour for testing. The
// A010 driver only ever holds one port at a time and never multiplexes
// across devices, so unlike a general-purpose serial test double this one
// doesn't model write errors, close errors, or per-call counters that
// nothing here exercises - just the two things the worker loop and Done
// actually depend on: a live read stream that can stall or fail, and a
// record of what got written to it.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port (AT commands).
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set, then cleared.
	ReadError error

	Closed bool

	// BlockReads causes Read to block until data is added or Close is called,
	// simulating a live sensor stream instead of a fixed fixture.
	BlockReads bool

	readCond *sync.Cond
}

// NewTestablePort creates a TestablePort ready for use.
func NewTestablePort() *TestablePort {
	tp := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tp.readCond = sync.NewCond(&tp.mu)
	return tp
}

func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("port closed")
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed and wakes any blocked reader.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()

	return nil
}

// AddReadData appends data for subsequent Read calls to return, simulating
// bytes arriving from the sensor.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// WrittenData returns everything written to the port so far (AT commands).
func (t *TestablePort) WrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

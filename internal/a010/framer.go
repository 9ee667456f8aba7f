package a010

import (
	"errors"
	"fmt"
	"io"
	"time"
)

var sentinel = [4]byte{0x00, 0xFF, 0x20, 0x27}

const (
	maxSyncBytes = 20000
	shortReadWait = 17500 * time.Microsecond
)

// framer turns a raw byte stream into 10,018-byte packets, tracking how
// many stray bytes sync() had to skip so the driver can tell a genuine
// AT+UNIT acknowledgement apart from ordinary stream noise.
type framer struct {
	r io.Reader

	packet [packetLen]byte
	frame  int // count of frames successfully assembled, for the warm-up check
}

func newFramer(r io.Reader) *framer {
	return &framer{r: r}
}

// sync scans the stream for the four-byte sentinel, returning the number
// of bytes it had to discard before finding it. A mismatch at any position
// discards that byte unconditionally and restarts the match fresh: the
// byte that broke the match is never reused as the start of a new one,
// even if it happens to equal the sentinel's first byte.
func (f *framer) sync() (skipped int, err error) {
	var b [1]byte
	matched := 0

	for skipped <= maxSyncBytes {
		if _, err := io.ReadFull(f.r, b[:]); err != nil {
			return skipped, errTransport(err)
		}

		if b[0] == sentinel[matched] {
			matched++
			if matched == len(sentinel) {
				return skipped, nil
			}
			continue
		}

		skipped += matched + 1
		matched = 0
	}
	return skipped, ErrSyncTimeout
}

// fillRaw reads the remaining 10,014 bytes of the packet (the sentinel
// already occupies bytes 0..3). A read that returns no bytes at all is a
// timeout, not retried; a read that returns some bytes but not the whole
// remainder pauses briefly before asking for the rest.
func (f *framer) fillRaw() error {
	copy(f.packet[0:4], sentinel[:])

	want := len(f.packet) - 4
	got := 0
	for got < want {
		n, err := f.r.Read(f.packet[4+got : len(f.packet)])
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrPacketTimeout
			}
			return errTransport(err)
		}
		if n <= 0 {
			return ErrPacketTimeout
		}
		got += n
		if got < want {
			time.Sleep(shortReadWait)
		}
	}
	return nil
}

// payload returns the 10,000-byte raw image slice within the packet.
func (f *framer) payload() []byte {
	return f.packet[16:10016]
}

// nextFrame performs one sync+fillRaw cycle and reports whether the
// stray bytes consumed during sync look like an AT+UNIT acknowledgement:
// this is true only once the pipeline is past its two-frame warm-up and
// sync actually had to skip something.
func (f *framer) nextFrame() (ackLikely bool, err error) {
	skipped, err := f.sync()
	if err != nil {
		return false, err
	}
	if err := f.fillRaw(); err != nil {
		return false, err
	}
	ackLikely = skipped > 0 && f.frame > 2
	f.frame++
	return ackLikely, nil
}

func errTransport(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrSyncTimeout
	}
	return fmt.Errorf("%w: %v", ErrTransportIO, err)
}

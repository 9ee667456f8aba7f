package a010

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packetBytes(payloadFill byte) []byte {
	buf := make([]byte, packetLen)
	copy(buf[0:4], sentinel[:])
	for i := 4; i < len(buf); i++ {
		buf[i] = payloadFill
	}
	return buf
}

func TestFramerSyncFindsSentinelImmediately(t *testing.T) {
	t.Parallel()

	f := newFramer(bytes.NewReader(packetBytes(9)))
	skipped, err := f.sync()
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
}

func TestFramerSyncSkipsNoise(t *testing.T) {
	t.Parallel()

	noise := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	stream := append(append([]byte{}, noise...), packetBytes(1)...)
	f := newFramer(bytes.NewReader(stream))

	skipped, err := f.sync()
	require.NoError(t, err)
	assert.Equal(t, len(noise), skipped)
}

func TestFramerSyncHandlesPartialSentinelCollision(t *testing.T) {
	t.Parallel()

	// 00 FF 00 then the real sentinel: the third byte breaks the match on
	// sentinel[2] (0x20) and is discarded unconditionally -- even though it
	// is itself 0x00, it is not reused as the start of a new match. The
	// scan then locks onto the real sentinel's own leading bytes fresh.
	stream := append([]byte{0x00, 0xFF, 0x00}, packetBytes(1)...)
	f := newFramer(bytes.NewReader(stream))

	skipped, err := f.sync()
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
}

func TestFramerSyncDiscardsFailedByteWithoutOverlapReuse(t *testing.T) {
	t.Parallel()

	// 00 FF 00 FF 20 27: the embedded 00 at the mismatch point (position 3)
	// is discarded unconditionally, not reused as a fresh match start, so
	// the scan never re-aligns with the sentinel that follows within this
	// short window.
	stream := []byte{0x00, 0xFF, 0x00, 0xFF, 0x20, 0x27}
	f := newFramer(bytes.NewReader(stream))

	_, err := f.sync()
	require.ErrorIs(t, err, ErrSyncTimeout)
}

func TestFramerSyncAbortsPastMaxBytes(t *testing.T) {
	t.Parallel()

	noise := bytes.Repeat([]byte{0x01}, maxSyncBytes+500)
	f := newFramer(bytes.NewReader(noise))

	_, err := f.sync()
	require.ErrorIs(t, err, ErrSyncTimeout)
}

func TestFramerFillRawAssemblesPacket(t *testing.T) {
	t.Parallel()

	pkt := packetBytes(7)
	f := newFramer(bytes.NewReader(pkt))

	_, err := f.sync()
	require.NoError(t, err)
	require.NoError(t, f.fillRaw())

	assert.Equal(t, sentinel[:], f.packet[0:4])
	for _, b := range f.payload() {
		assert.Equal(t, byte(7), b)
	}
}

// capReader hands out at most maxChunk bytes per Read call regardless of
// how much the caller asked for, so a single short read can be exercised
// without crawling through the whole packet one byte at a time.
type capReader struct {
	data     []byte
	pos      int
	maxChunk int
}

func (r *capReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := len(p)
	if n > r.maxChunk {
		n = r.maxChunk
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func TestFramerFillRawRetriesOnShortRead(t *testing.T) {
	t.Parallel()

	pkt := packetBytes(3)
	// One byte short of what fillRaw needs in a single call, forcing
	// exactly one short-read pause before the remainder arrives.
	r := &capReader{data: pkt, maxChunk: len(pkt) - 5}
	f := newFramer(r)

	_, err := f.sync()
	require.NoError(t, err)
	require.NoError(t, f.fillRaw())
	for _, b := range f.payload() {
		assert.Equal(t, byte(3), b)
	}
}

// zeroByteReader always returns (0, nil), modelling a transport that
// stalls without signalling EOF.
type zeroByteReader struct{}

func (zeroByteReader) Read(p []byte) (int, error) { return 0, nil }

func TestFramerFillRawZeroByteReadIsImmediateTimeout(t *testing.T) {
	t.Parallel()

	f := newFramer(zeroByteReader{})
	err := f.fillRaw()
	require.ErrorIs(t, err, ErrPacketTimeout)
}

func TestFramerFillRawEOFIsPacketTimeout(t *testing.T) {
	t.Parallel()

	f := newFramer(bytes.NewReader(sentinel[:]))
	_, err := f.sync()
	require.NoError(t, err)

	err = f.fillRaw()
	require.ErrorIs(t, err, ErrPacketTimeout)
}

func TestNextFrameAckGatedByWarmUp(t *testing.T) {
	t.Parallel()

	var stream []byte
	for i := 0; i < 3; i++ {
		stream = append(stream, packetBytes(byte(i))...)
	}
	noise := []byte{0xAA, 0xAA, 0xAA}
	stream = append(stream, noise...)
	stream = append(stream, packetBytes(9)...)

	f := newFramer(bytes.NewReader(stream))

	for i := 0; i < 3; i++ {
		ack, err := f.nextFrame()
		require.NoError(t, err)
		assert.False(t, ack, "no noise precedes the first three frames")
	}

	ack, err := f.nextFrame()
	require.NoError(t, err)
	assert.True(t, ack, "noise before the sentinel past the warm-up should look like an ack")
}

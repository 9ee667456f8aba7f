package a010

import "sync"

// Invalid is the sentinel depth value for a pixel the driver could not
// trust: sensor saturation, a saturated temporal mean, or variance above
// the flicker limit.
const Invalid uint16 = 65535

// DepthFrame is one published 100x100 16-bit depth image, scaled in
// quarter-millimetres. Scan order is sensor-native: with USB on the left,
// right-to-left columns, top-down within a column.
type DepthFrame struct {
	Pix [PixCount]uint16
}

// At returns the depth at raw column x, row y in sensor-native order.
func (f *DepthFrame) At(x, y int) uint16 {
	return f.Pix[y*Width+x]
}

// rotor is the mutex-guarded triple-buffer hand-off between the acquisition
// worker and a consumer. Three storage arrays are named by role: fill
// (owned exclusively by the worker for writing), done (most recent
// complete frame), and lock (currently held by the consumer). The
// invariant fill != lock holds at all times; each storage array appears
// at most twice across {fill, done, lock}.
type rotor struct {
	mu       sync.Mutex
	storage  [3]*DepthFrame
	fill     *DepthFrame
	done     *DepthFrame
	lock     *DepthFrame
	fresh    int
}

func newRotor() *rotor {
	r := &rotor{
		storage: [3]*DepthFrame{{}, {}, {}},
	}
	r.fill = r.storage[0]
	r.done = nil
	r.lock = nil
	r.fresh = -2 // first two post-start frames are stale
	return r
}

// current returns the buffer the worker should fill next. Callers must not
// write to it without first taking ownership via the caller's own
// single-writer discipline (the rotor is only ever mutated by one worker).
func (r *rotor) current() *DepthFrame {
	return r.fill
}

// publish marks fill as done, bumps fresh, and rotates fill to whichever of
// the two remaining storage arrays is not currently locked by a consumer.
func (r *rotor) publish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done = r.fill
	r.fresh++

	switch r.fill {
	case r.storage[0]:
		if r.lock != r.storage[1] {
			r.fill = r.storage[1]
		} else {
			r.fill = r.storage[2]
		}
	case r.storage[1]:
		if r.lock != r.storage[0] {
			r.fill = r.storage[0]
		} else {
			r.fill = r.storage[2]
		}
	default: // r.storage[2]
		if r.lock != r.storage[0] {
			r.fill = r.storage[0]
		} else {
			r.fill = r.storage[1]
		}
	}
}

// consume atomically takes done into lock and clears fresh, returning the
// snapshot (or nil if nothing is fresh). Clamps fresh to 0 so the warm-up
// drop count never leaks back above zero after a successful consume.
func (r *rotor) consume() *DepthFrame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fresh <= 0 {
		return nil
	}
	r.lock = r.done
	r.fresh = 0
	return r.lock
}

// snapshotLock returns the frame the consumer most recently took via
// consume (or nil if Range has never been called), for debug accessors
// that render whatever the consumer is currently looking at rather than
// racing ahead of it to the latest published frame.
func (r *rotor) snapshotLock() *DepthFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lock
}

func (r *rotor) freshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fresh
}

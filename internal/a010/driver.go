// Package a010 implements the acquisition and pixel-processing pipeline
// for a Sipeed MaixSense A010 time-of-flight depth sensor: frame
// resynchronisation over a raw byte stream, a 5x5 median filter, a
// Kalman-like temporal filter, adaptive depth-resolution control, and a
// mutex-guarded triple-buffer hand-off to a consumer.
package a010

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jconnell11/tof-cam/internal/telemetry"
	"github.com/jconnell11/tof-cam/transport"
)

// Driver runs the A010 acquisition pipeline: one background worker reads
// frames from a transport.Port, filters them, and publishes DepthFrames
// for Range to hand out. Only Start, Range, Done, and the debug accessors
// are safe to call from outside the worker goroutine.
type Driver struct {
	cfg Config
	lut depthLUT

	port   transport.Port
	framer *framer

	temporal *temporalFilter
	ranger   *autoRanger
	rotor    *rotor

	run atomic.Bool
	ok  atomic.Bool

	doneCh chan struct{}
	wg     sync.WaitGroup

	errMu   sync.Mutex
	lastErr error

	// raw and med are worker-owned scratch images; debug accessors copy
	// them without synchronization, matching their documented
	// inspect-at-your-own-risk contract.
	raw [PixCount]byte
	med [PixCount]byte

	framesProcessed atomic.Int64
	unitChanges     atomic.Int64
	syncTimeouts    atomic.Int64
	packetTimeouts  atomic.Int64
}

// Stats is a point-in-time snapshot of pipeline activity and terminal
// error kinds seen since Start, for observability dashboards and tests.
type Stats struct {
	FramesProcessed int64
	UnitChanges     int64
	SyncTimeouts    int64
	PacketTimeouts  int64
}

// Stats returns a snapshot of the driver's activity counters.
func (d *Driver) Stats() Stats {
	return Stats{
		FramesProcessed: d.framesProcessed.Load(),
		UnitChanges:     d.unitChanges.Load(),
		SyncTimeouts:    d.syncTimeouts.Load(),
		PacketTimeouts:  d.packetTimeouts.Load(),
	}
}

// New constructs a Driver from cfg. Call Start to begin acquisition.
func New(cfg Config) *Driver {
	return &Driver{
		cfg:      cfg,
		lut:      buildLUT(),
		temporal: newTemporalFilter(cfg.Temporal),
		ranger:   newAutoRanger(cfg.AutoRange, cfg.InitialUnit),
		rotor:    newRotor(),
	}
}

// Start opens the pipeline against an already-open port: it puts the
// sensor into streaming mode (AT+DISP=3), requests the configured
// starting unit, and launches the background worker. The port is owned
// by the Driver from this point on; Done closes it. Calling Start while the
// worker is already running is a no-op.
func (d *Driver) Start(port transport.Port) error {
	if port == nil {
		return ErrTransportOpen
	}
	if d.run.Load() {
		return nil
	}
	d.port = port
	d.framer = newFramer(port)

	if _, err := port.Write([]byte("AT+DISP=3\r")); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportOpen, err)
	}
	time.Sleep(50 * time.Millisecond)
	cmd := fmt.Sprintf("AT+UNIT=%d\r", d.cfg.InitialUnit)
	if _, err := port.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportOpen, err)
	}

	d.run.Store(true)
	d.ok.Store(true)
	d.doneCh = make(chan struct{})

	d.wg.Add(1)
	go d.mainLoop()
	return nil
}

func (d *Driver) mainLoop() {
	defer d.wg.Done()
	defer close(d.doneCh)

	for d.run.Load() {
		ackLikely, err := d.framer.nextFrame()
		if err != nil {
			switch {
			case errors.Is(err, ErrSyncTimeout):
				d.syncTimeouts.Add(1)
			case errors.Is(err, ErrPacketTimeout):
				d.packetTimeouts.Add(1)
			}
			telemetry.Logf("a010: acquisition stopped: %v", err)
			d.setErr(err)
			d.ok.Store(false)
			d.run.Store(false)
			return
		}
		d.framesProcessed.Add(1)
		copy(d.raw[:], d.framer.payload())

		if ackLikely {
			old, newUnit := d.ranger.acknowledge()
			if newUnit != old {
				rescale(&d.temporal.mean, &d.temporal.vari, old, newUnit)
				d.unitChanges.Add(1)
			}
		}

		if d.framer.frame > 2 {
			if cmd := d.ranger.evaluate(&d.raw); cmd != "" {
				if _, err := d.port.Write([]byte(cmd)); err != nil {
					telemetry.Logf("a010: failed to send unit command: %v", err)
				}
			}
		}

		median5x5(&d.raw, &d.med)

		out := d.rotor.current()
		d.temporal.update(&d.raw, &d.med, out, d.lut, d.ranger.unitCurrent)
		d.rotor.publish()
	}
}

// Range returns the most recently published frame, or nil if none is
// available yet (or the worker has stopped). If blocking is true it
// polls for up to roughly 500ms before giving up.
func (d *Driver) Range(blocking bool) *DepthFrame {
	if !d.ok.Load() {
		return nil
	}
	if f := d.rotor.consume(); f != nil {
		return f
	}
	if !blocking {
		return nil
	}
	for i := 0; i < 500; i++ {
		time.Sleep(time.Millisecond)
		if f := d.rotor.consume(); f != nil {
			return f
		}
	}
	return nil
}

// Done stops the worker and returns the sensor to its idle state. It
// waits up to one second for a clean exit; if the worker is stuck in a
// blocking read, the transport is closed to unblock it instead. Done is
// idempotent: once the port has been torn down, later calls are a no-op.
func (d *Driver) Done() {
	if d.port == nil {
		return
	}
	d.run.Store(false)
	d.ok.Store(false)

	select {
	case <-d.doneCh:
	case <-time.After(time.Second):
		telemetry.Logf("a010: worker did not stop in time, closing transport to unblock it")
		d.port.Close()
		<-d.doneCh
	}

	d.port.Write([]byte("AT+UNIT=0\r"))
	time.Sleep(50 * time.Millisecond)
	d.port.Write([]byte("AT+DISP=1\r"))
	d.port.Close()
	d.port = nil
}

// Err returns the terminal error that stopped the worker. If the worker
// was never started or has stopped without a transport error recorded,
// it returns ErrNotRunning; it returns nil only while acquisition is
// actually in progress.
func (d *Driver) Err() error {
	d.errMu.Lock()
	lastErr := d.lastErr
	d.errMu.Unlock()

	if lastErr != nil {
		return lastErr
	}
	if !d.ok.Load() {
		return ErrNotRunning
	}
	return nil
}

func (d *Driver) setErr(err error) {
	d.errMu.Lock()
	d.lastErr = err
	d.errMu.Unlock()
}

// Unit returns the sensor's current millimetres-per-step quantization.
func (d *Driver) Unit() int {
	return d.ranger.unitCurrent
}

// Raw returns a copy of the most recent unfiltered 100x100 raw image.
func (d *Driver) Raw() [PixCount]byte {
	return d.raw
}

// Sensor is an alias for Raw, matching the original driver's naming for
// its raw-image debug pointer.
func (d *Driver) Sensor() [PixCount]byte {
	return d.Raw()
}

// Median returns a copy of the most recent median-filtered image.
func (d *Driver) Median() [PixCount]byte {
	return d.med
}

// Kalman returns a copy of the temporal filter's running mean, the
// "kalman" debug image.
func (d *Driver) Kalman() [PixCount]byte {
	return d.temporal.mean
}

// Night renders the frame most recently taken via Range as an 8-bit
// near-bright image: closer pixels are brighter. sh controls contrast by
// shifting the depth value before clamping. Range must have returned a
// frame at least once first; until then Night returns all zeros.
func (d *Driver) Night(sh int) []byte {
	frame := d.rotor.snapshotLock()
	out := make([]byte, PixCount)
	if frame == nil {
		return out
	}
	for i, d16 := range frame.Pix {
		v := int(d16) >> (sh + 2)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[i] = byte(255 - v)
	}
	return out
}

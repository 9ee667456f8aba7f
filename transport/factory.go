package transport

import (
	"go.bug.st/serial"
)

// OpenSerial opens the A010's USB-UART bridge at path with the given
// Options, returning a Port ready for the driver.
func OpenSerial(path string, opts Options) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

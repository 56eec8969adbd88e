package esp32s2

import (
	"encoding/binary"
	"fmt"
)

// Device drives a single ESP32-S2-based programmer over a serial port. The
// zero value is not usable; construct one with Open.
type Device struct {
	conn byteConn
}

// Open opens the serial port at portName and returns a ready Device.
func Open(portName string) (*Device, error) {
	conn, err := openSerialConn(portName)
	if err != nil {
		return nil, err
	}
	return &Device{conn: conn}, nil
}

// Close closes the underlying serial port.
func (d *Device) Close() error { return d.conn.Close() }

// request sends one framed command and returns the 4-byte response data
// field. The power-control commands, which have no real address of their
// own, send 0 as the address and carry on/off in the data field.
func (d *Device) request(cmd byte, address, data uint32) (uint32, error) {
	req := make([]byte, 10)
	req[0] = requestSync
	req[1] = cmd
	binary.BigEndian.PutUint32(req[2:6], address)
	binary.BigEndian.PutUint32(req[6:10], data)
	req = append(req, checksum(req))

	if _, err := d.conn.Write(req); err != nil {
		return 0, fmt.Errorf("esp32s2: write request: %w", err)
	}

	resp := make([]byte, 7)
	if err := readFull(d.conn, resp); err != nil {
		return 0, fmt.Errorf("esp32s2: read response: %w", err)
	}
	if resp[0] != responseSync {
		return 0, fmt.Errorf("esp32s2: bad response sync byte %02x", resp[0])
	}
	if resp[1] != statusOK {
		return 0, fmt.Errorf("esp32s2: programmer returned status %02x", resp[1])
	}
	if resp[6] != checksum(resp[:6]) {
		return 0, fmt.Errorf("esp32s2: response checksum mismatch")
	}
	return binary.BigEndian.Uint32(resp[2:6]), nil
}

// ReadReg32 reads one 32-bit debug-module register.
func (d *Device) ReadReg32(reg uint32) (uint32, error) {
	v, err := d.request(cmdReadReg32, reg, 0)
	if err != nil {
		return 0, fmt.Errorf("esp32s2: read reg %08x: %w", reg, err)
	}
	return v, nil
}

// WriteReg32 writes one 32-bit debug-module register.
func (d *Device) WriteReg32(reg uint32, value uint32) error {
	if _, err := d.request(cmdWriteReg32, reg, value); err != nil {
		return fmt.Errorf("esp32s2: write reg %08x: %w", reg, err)
	}
	return nil
}

// Flush is a no-op: every request is written and acknowledged synchronously,
// so there is never a pending batch of commands to flush.
func (d *Device) Flush() error { return nil }

// DelayUS asks the programmer to wait us microseconds, for the rare case a
// caller needs a delay enforced on the debug-adapter side rather than the
// host's own clock.
func (d *Device) DelayUS(us int) error {
	if _, err := d.request(cmdDelayUS, 0, uint32(us)); err != nil {
		return fmt.Errorf("esp32s2: delay %dus: %w", us, err)
	}
	return nil
}

// Control3v3 switches the target's 3.3V rail.
func (d *Device) Control3v3(on bool) error {
	if _, err := d.request(cmdControl3v3, 0, boolToUint32(on)); err != nil {
		return fmt.Errorf("esp32s2: control 3v3: %w", err)
	}
	return nil
}

// Control5v switches the target's 5V rail.
func (d *Device) Control5v(on bool) error {
	if _, err := d.request(cmdControl5v, 0, boolToUint32(on)); err != nil {
		return fmt.Errorf("esp32s2: control 5v: %w", err)
	}
	return nil
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Package wchlink implements the WCH-LinkE USB vendor protocol: a
// programmer that speaks halt/power/binary-blob operations natively and
// never exposes the RISC-V debug module's register interface at all, so a
// Device built here is resolved against dm/flash with no Engine or
// Controller behind it (see transport.Resolve).
package wchlink

import (
	"fmt"

	"ch32dbg/dm"
)

// Device drives a single WCH-LinkE over USB. The zero value is not usable;
// construct one with Open.
type Device struct {
	t         bulkTransport
	lastHalt  int
	haltIsSet bool
}

// Open finds, claims, and initializes the first attached WCH-LinkE.
func Open() (*Device, error) {
	t, err := openUSBTransport()
	if err != nil {
		return nil, err
	}
	return &Device{t: t}, nil
}

// Close releases the underlying USB interface and device handle.
func (d *Device) Close() error { return d.t.close() }

// SetupInterface places the target into reset, then holds it for the
// debugger, and reads back a 20-byte chip status reply. Reply parsing
// mirrors LESetupInterface exactly, including the leftover "what in the
// world is this" probe command whose reply nobody reads.
func (d *Device) SetupInterface() error {
	if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x01}, make([]byte, 1024)); err != nil {
		return fmt.Errorf("wchlink: place part in reset: %w", err)
	}

	// TODO: purpose unknown; doesn't appear to be load-bearing, but the
	// programmer expects it before the status query below succeeds.
	if _, err := d.t.command([]byte{0x81, 0x0c, 0x02, 0x09, 0x01}, nil); err != nil {
		return fmt.Errorf("wchlink: probe command: %w", err)
	}

	if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x02}, nil); err != nil {
		return fmt.Errorf("wchlink: hold part for debug: %w", err)
	}

	reply := make([]byte, 1024)
	n, err := d.t.command([]byte{0x81, 0x11, 0x01, 0x09}, reply)
	if err != nil {
		return fmt.Errorf("wchlink: read part status: %w", err)
	}
	if n != 20 {
		return fmt.Errorf("wchlink: part status reply was %d bytes, want 20", n)
	}

	fmt.Printf("Part Type (A): 0x%02x%02x (capacity code, in KB)\n", reply[2], reply[3])
	fmt.Printf("Part UUID    : %02x-%02x-%02x-%02x-%02x-%02x-%02x-%02x\n",
		reply[4], reply[5], reply[6], reply[7], reply[8], reply[9], reply[10], reply[11])
	fmt.Printf("PFlags       : %02x-%02x-%02x-%02x\n", reply[12], reply[13], reply[14], reply[15])
	fmt.Printf("Part Type (B): %02x-%02x-%02x-%02x\n", reply[16], reply[17], reply[18], reply[19])
	return nil
}

// Control3v3 sends the power-rail command. The on/off cases send the
// identical byte sequence in the upstream programmer; this is preserved
// rather than fixed (see DESIGN.md's Open Questions).
func (d *Device) Control3v3(on bool) error {
	_, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x09}, nil)
	if err != nil {
		return fmt.Errorf("wchlink: control 3v3: %w", err)
	}
	return nil
}

// Control5v toggles the 5V rail; unlike Control3v3 this one does send
// distinct bytes for on and off.
func (d *Device) Control5v(on bool) error {
	cmd := []byte{0x81, 0x0d, 0x01, 0x0c}
	if on {
		cmd = []byte{0x81, 0x0d, 0x01, 0x0b}
	}
	if _, err := d.t.command(cmd, nil); err != nil {
		return fmt.Errorf("wchlink: control 5v: %w", err)
	}
	return nil
}

// Unbrick recovers a part with a misconfigured debug interface by issuing
// the programmer's specialized unbrick command.
func (d *Device) Unbrick() error {
	if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x0f, 0x09}, nil); err != nil {
		return fmt.Errorf("wchlink: unbrick: %w", err)
	}
	return nil
}

// HaltMode supports only dm.HaltModeHalt (hold in reset) and
// dm.HaltModeReboot (exit reset and run); every other mode is unimplemented
// on this programmer, exactly as LEHaltMode's `else return -93` path.
// Repeated calls with the same mode are no-ops, matching lasthaltmode.
func (d *Device) HaltMode(mode dm.HaltMode) error {
	if d.haltIsSet && d.lastHalt == int(mode) {
		return nil
	}

	switch mode {
	case dm.HaltModeHalt:
		if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x02}, nil); err != nil {
			return fmt.Errorf("wchlink: hold in reset: %w", err)
		}
		if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x01}, nil); err != nil {
			return fmt.Errorf("wchlink: hold in reset: %w", err)
		}
	case dm.HaltModeReboot:
		// Not clearly the "best" way to exit reset; this exact combination
		// is what the vendor tooling sends.
		if _, err := d.t.command([]byte{0x81, 0x0b, 0x01, 0x01}, nil); err != nil {
			return fmt.Errorf("wchlink: exit reset: %w", err)
		}
		if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0x02}, nil); err != nil {
			return fmt.Errorf("wchlink: exit reset: %w", err)
		}
		if _, err := d.t.command([]byte{0x81, 0x0d, 0x01, 0xff}, nil); err != nil {
			return fmt.Errorf("wchlink: exit reset: %w", err)
		}
	default:
		return fmt.Errorf("wchlink: halt mode %d is unimplemented on this programmer", mode)
	}

	d.lastHalt = int(mode)
	d.haltIsSet = true
	return nil
}

// ConfigureNRSTAsGPIO rewrites the option-byte NRST field through the
// programmer's option-byte command, then power-cycles the debug interface.
func (d *Device) ConfigureNRSTAsGPIO(asGPIO bool) error {
	cmd := []byte{0x81, 0x06, 0x08, 0x02, 0xf7, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if asGPIO {
		cmd = []byte{0x81, 0x06, 0x08, 0x02, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	}
	if _, err := d.t.command(cmd, nil); err != nil {
		return fmt.Errorf("wchlink: configure NRST: %w", err)
	}
	if _, err := d.t.command([]byte{0x81, 0x0b, 0x01, 0x01}, nil); err != nil {
		return fmt.Errorf("wchlink: configure NRST: %w", err)
	}
	return nil
}

// ReadBinaryBlob reads amount bytes starting at offset, big-endian on the
// wire, flipped to little-endian word-by-word on receipt (LEReadBinaryBlob).
func (d *Device) ReadBinaryBlob(offset uint32, blob []byte) error {
	if err := d.HaltMode(dm.HaltModeHalt); err != nil {
		return err
	}

	if _, err := d.t.command([]byte{0x81, 0x06, 0x01, 0x01}, nil); err != nil {
		return fmt.Errorf("wchlink: read blob setup: %w", err)
	}

	// Flush any pending bulk data left over from a previous operation.
	flushBuf := make([]byte, 1024)
	_, _ = d.t.bulkIn(flushBuf)

	amount := uint32(len(blob))
	readop := []byte{
		0x81, 0x03, 0x08,
		byte(offset >> 24), byte(offset >> 16), byte(offset >> 8), byte(offset),
		byte(amount >> 24), byte(amount >> 16), byte(amount >> 8), byte(amount),
	}
	if _, err := d.t.command(readop, nil); err != nil {
		return fmt.Errorf("wchlink: read blob request: %w", err)
	}
	if _, err := d.t.command([]byte{0x81, 0x02, 0x01, 0x0c}, nil); err != nil {
		return fmt.Errorf("wchlink: read blob start: %w", err)
	}

	placed := 0
	scratch := make([]byte, 1024)
	for placed < len(blob) {
		n, err := d.t.bulkIn(scratch)
		if err != nil {
			return fmt.Errorf("wchlink: read blob data: %w", err)
		}
		placed += copy(blob[placed:], scratch[:n])
	}

	for i := 0; i+3 < placed; i += 4 {
		blob[i], blob[i+1], blob[i+2], blob[i+3] = blob[i+3], blob[i+2], blob[i+1], blob[i]
	}
	return nil
}

// WriteBinaryBlob uploads the 512-byte bootloader payload, then the blob
// itself in 64-byte chunks padded to a page boundary with 0xff, exactly as
// LEWriteBinaryBlob.
func (d *Device) WriteBinaryBlob(address uint32, blob []byte) error {
	if err := d.HaltMode(dm.HaltModeHalt); err != nil {
		return err
	}

	length := uint32(len(blob))
	padlen := int(((length - 1) & ^uint32(0x3f)) + 0x40)

	// Sent twice: the second issue appears to make the transfer reliable.
	if _, err := d.t.command([]byte{0x81, 0x06, 0x01, 0x01}, nil); err != nil {
		return fmt.Errorf("wchlink: write blob setup: %w", err)
	}
	if _, err := d.t.command([]byte{0x81, 0x06, 0x01, 0x01}, nil); err != nil {
		return fmt.Errorf("wchlink: write blob setup: %w", err)
	}

	sizeCmd := []byte{0x81, 0x01, 0x08, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, byte(length >> 8), byte(length)}
	if _, err := d.t.command(sizeCmd, nil); err != nil {
		return fmt.Errorf("wchlink: write blob size: %w", err)
	}

	if _, err := d.t.command([]byte{0x81, 0x02, 0x01, 0x05}, nil); err != nil {
		return fmt.Errorf("wchlink: write blob start: %w", err)
	}

	for pos := 0; pos < bootloaderLen; pos += 64 {
		if _, err := d.t.bulkOut(bootloader[pos : pos+64]); err != nil {
			return fmt.Errorf("wchlink: upload bootloader chunk at %d: %w", pos, err)
		}
	}

	ack := make([]byte, 1024)
	ready := false
	for i := 0; i < 10; i++ {
		n, err := d.t.command([]byte{0x81, 0x02, 0x01, 0x07}, ack)
		if err != nil {
			return fmt.Errorf("wchlink: bootloader ack poll: %w", err)
		}
		if n == 4 && ack[0] == 0x82 && ack[1] == 0x02 && ack[2] == 0x01 && ack[3] == 0x07 {
			ready = true
			break
		}
	}
	if !ready {
		return fmt.Errorf("wchlink: bootloader never acknowledged readiness")
	}

	if _, err := d.t.command([]byte{0x81, 0x02, 0x01, 0x02}, nil); err != nil {
		return fmt.Errorf("wchlink: write blob data start: %w", err)
	}

	for pos := 0; pos < padlen; pos += 64 {
		var chunk [64]byte
		if pos+64 > int(length) {
			gap := pos + 64 - int(length)
			okCopy := int(length) - pos
			if okCopy > 0 {
				copy(chunk[:okCopy], blob[pos:pos+okCopy])
			}
			for i := okCopy; i < okCopy+gap && i < 64; i++ {
				chunk[i] = 0xff
			}
		} else {
			copy(chunk[:], blob[pos:pos+64])
		}
		if _, err := d.t.bulkOut(chunk[:]); err != nil {
			return fmt.Errorf("wchlink: write blob chunk at %d: %w", pos, err)
		}
	}
	return nil
}

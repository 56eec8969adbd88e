package esp32s2

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// byteConn is the minimal serial surface a Device drives; splitting it out
// of serial.Port lets device_test.go script request/response bytes without
// a real port, the same separation transport/wchlink draws between
// bulkTransport and device.go.
type byteConn interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// openSerialConn opens portName at the programmer's fixed baud rate.
func openSerialConn(portName string) (byteConn, error) {
	mode := &serial.Mode{
		BaudRate: 921600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("esp32s2: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(2 * time.Second); err != nil {
		port.Close()
		return nil, fmt.Errorf("esp32s2: set read timeout: %w", err)
	}
	return port, nil
}

// readFull reads exactly len(buf) bytes, the way protocol.go's transfer
// reads its header/status/data/LRC fields one fixed-size read at a time.
func readFull(c byteConn, buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := c.Read(buf[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("esp32s2: serial read timed out after %d/%d bytes", got, len(buf))
		}
		got += n
	}
	return nil
}

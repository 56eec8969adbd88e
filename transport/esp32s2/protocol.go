// Package esp32s2 implements a serial-port programmer adapter that exposes
// only raw debug-module register access and power control; every
// higher-level operation (setup, halt, memory/flash access, terminal
// polling) is synthesized on top of it by package dm and package flash via
// transport.Resolve, the way SetupAutomaticHighLevelFunctions fills in
// DefaultXxx for any field TryInit_ESP32S2-class adapter left nil.
//
// The wire framing below is not drawn from a vendor datasheet; no wire
// format for this adapter survives in the source this module is ported
// from, which treats it only as a second low-level register-capable
// backend. The framing here is modeled on the sync-byte/command/address/
// length/checksum request-response shape used by Foenix's serial debug
// port, adapted to carry 32-bit register reads and writes instead of
// arbitrary memory blocks.
package esp32s2

const (
	requestSync  = 0x5a
	responseSync = 0xa5

	cmdReadReg32  = 0x01
	cmdWriteReg32 = 0x02
	cmdControl3v3 = 0x03
	cmdControl5v  = 0x04
	cmdDelayUS    = 0x05

	statusOK = 0x00
)

// checksum is a running XOR across a request or response, the same style
// LRC protocol.go computes over its header-plus-data.
func checksum(b []byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}

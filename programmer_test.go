package ch32dbg_test

import (
	"errors"
	"testing"

	"ch32dbg"
	"ch32dbg/dm"
)

// fakeRegDevice is a RegisterIO-shaped transport.Device: a RAM-backed
// model of just enough DM register and Program Buffer behavior to drive
// dm.Engine's streaming write/read paths and flash.Controller's CTLR/STATR
// protocol, the same emulation style dm's own engine_test.go and flash's
// controller_test.go use, merged into one fake since Programmer exercises
// both layers together.
type fakeRegDevice struct {
	mem        map[uint32]uint32
	data0      uint32
	data1      uint32
	abstractCS uint32
	closed     bool

	// autoexec mirrors DMABSTRACTAUTO bit 0: while set, every DMDATA0 read
	// or write re-runs lastCmd, the way the real Debug Module streams.
	autoexec bool
	lastCmd  uint32

	// regWrites logs every address/value pair landing on a real register
	// (CTLR/ADDR/etc, as opposed to scratch DATA0/DATA1), in order, so
	// tests can assert a specific hardware sequence happened rather than
	// just that bytes round-trip through the RAM-like map.
	regWrites []regWrite
}

type regWrite struct {
	addr, value uint32
}

func newFakeRegDevice() *fakeRegDevice {
	return &fakeRegDevice{mem: map[uint32]uint32{0x40022010: 0}}
}

func (f *fakeRegDevice) ReadReg32(reg uint32) (uint32, error) {
	switch reg {
	case dm.DMSTATUS:
		return 0x00030000, nil
	case dm.DMABSTRACTCS:
		return f.abstractCS, nil
	case dm.DMDATA0:
		v := f.data0
		if f.autoexec {
			f.exec(f.lastCmd)
		}
		return v, nil
	case dm.DMDATA1:
		return f.data1, nil
	}
	return f.mem[reg], nil
}

func (f *fakeRegDevice) WriteReg32(reg uint32, value uint32) error {
	switch reg {
	case dm.DMDATA0:
		f.data0 = value
		if f.autoexec {
			f.exec(f.lastCmd)
		}
	case dm.DMDATA1:
		f.data1 = value
	case dm.DMCOMMAND:
		f.lastCmd = value
		f.exec(value)
	case dm.DMABSTRACTAUTO:
		f.autoexec = value&1 != 0
		f.memStore(reg, value)
	default:
		f.memStore(reg, value)
	}
	return nil
}

// memStore writes addr=value into the RAM-like map and applies the one
// hardware side effect this fake models: MODEKEYR's second key, the last
// write of the flash unlock sequence, clears CTLR's lock bits. Both the
// direct register-write path and the streaming write micro-program route
// through here, since either can target MODEKEYR depending on whether the
// caller used a raw WriteReg32 or a streamed WriteWord.
func (f *fakeRegDevice) memStore(addr, value uint32) {
	f.mem[addr] = value
	f.regWrites = append(f.regWrites, regWrite{addr, value})
	if addr == 0x40022024 && value == 0xCDEF89AB {
		f.mem[0x40022010] &^= 0x8080
	}
}

func (f *fakeRegDevice) Flush() error         { return nil }
func (f *fakeRegDevice) DelayUS(us int) error { return nil }
func (f *fakeRegDevice) Close() error         { f.closed = true; return nil }

// exec models the handful of Abstract Command words the streaming write
// and read micro-programs ever issue: x8<-DATA0 then run (write entry),
// or run-only (read entry).
func (f *fakeRegDevice) exec(cmd uint32) {
	switch cmd {
	case 0x00271008:
		addr := f.data1
		f.memStore(addr, f.data0)
		f.data1 = addr + 4
	case 0x00241000:
		addr := f.data1
		f.data0 = f.mem[addr]
		f.data1 = addr + 4
	}
}

func attachFakeReg(t *testing.T) (*ch32dbg.Programmer, *fakeRegDevice) {
	t.Helper()
	dev := newFakeRegDevice()
	p, err := ch32dbg.Attach(dev)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := p.SetupInterface(); err != nil {
		t.Fatalf("SetupInterface: %v", err)
	}
	return p, dev
}

// TestWriteWordThenReadWordRoundTrips exercises invariant 1 from the
// testable-properties list: a word written to any address reads back
// unchanged, whether SRAM or flash.
func TestWriteWordThenReadWordRoundTrips(t *testing.T) {
	p, _ := attachFakeReg(t)

	if err := p.WriteWord(0x20000100, 0xdeadbeef); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	got, err := p.ReadWord(0x20000100)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != 0xdeadbeef {
		t.Errorf("ReadWord = %08x, want deadbeef", got)
	}
}

// TestWriteBinaryBlobToFlashUnlocksBeforeStreaming exercises scenario S1's
// core assertion at the Programmer layer: a flash-class WriteBinaryBlob
// unlocks the flash controller (CTLR reads unlocked) before any word
// lands, without the caller having to call Unlock itself.
func TestWriteBinaryBlobToFlashUnlocksBeforeStreaming(t *testing.T) {
	p, dev := attachFakeReg(t)
	dev.mem[0x40022010] = 0x80 // CTLR locked; this fake "unlocks" on the MODEKEYR second-key write

	blob := make([]byte, 64)
	for i := range blob {
		blob[i] = 0xaa
	}
	if err := p.WriteBinaryBlob(0x08000000, blob); err != nil {
		t.Fatalf("WriteBinaryBlob: %v", err)
	}
	if dev.mem[0x40022010]&0x80 != 0 {
		t.Errorf("CTLR = %08x after WriteBinaryBlob to flash, want LOCK bit clear", dev.mem[0x40022010])
	}

	got := make([]byte, 64)
	if err := p.ReadBinaryBlob(0x08000000, got); err != nil {
		t.Fatalf("ReadBinaryBlob: %v", err)
	}
	for i, b := range got {
		if b != 0xaa {
			t.Fatalf("byte %d = %02x, want aa", i, b)
		}
	}
}

// TestWriteBinaryBlobToFlashCommitsPageProgramSequence exercises the part
// of scenario S1 that a pure byte round-trip through the fake's RAM-like
// map can't: that each 64-byte page is actually committed to FLASH_CTLR
// (ADDR set to the page's group base, then CTLR = PAGE_PG|STRT), not just
// streamed in as plain words.
func TestWriteBinaryBlobToFlashCommitsPageProgramSequence(t *testing.T) {
	const ctlrAddr = 0x40022010
	const addrAddr = 0x40022014
	const crPagePG = 0x00010000
	const crStrt = 0x00000040

	p, dev := attachFakeReg(t)

	blob := make([]byte, 64)
	for i := range blob {
		blob[i] = 0xaa
	}
	if err := p.WriteBinaryBlob(0x08000000, blob); err != nil {
		t.Fatalf("WriteBinaryBlob: %v", err)
	}

	sawAddrGroup := false
	sawCommit := false
	for _, w := range dev.regWrites {
		if w.addr == addrAddr && w.value == 0x08000000 {
			sawAddrGroup = true
		}
		if w.addr == ctlrAddr && w.value == crPagePG|crStrt {
			sawCommit = true
		}
	}
	if !sawAddrGroup {
		t.Errorf("no write of ADDR=%#x found in register history %+v", 0x08000000, dev.regWrites)
	}
	if !sawCommit {
		t.Errorf("no write of CTLR=PAGE_PG|STRT found in register history %+v", dev.regWrites)
	}
}

// TestReadBinaryBlobRoundTripsWriteBinaryBlob exercises invariant 4: a
// write followed by a read over the same range returns the original
// bytes, including an unaligned tail.
func TestReadBinaryBlobRoundTripsWriteBinaryBlob(t *testing.T) {
	p, _ := attachFakeReg(t)

	want := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}
	if err := p.WriteBinaryBlob(0x20000000, want); err != nil {
		t.Fatalf("WriteBinaryBlob: %v", err)
	}

	got := make([]byte, len(want))
	if err := p.ReadBinaryBlob(0x20000000, got); err != nil {
		t.Fatalf("ReadBinaryBlob: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %02x, want %02x (got %v)", i, got[i], want[i], got)
		}
	}
}

// TestHaltModeHaltThenResume exercises invariant 5's shape: halting and
// resuming after a streamed write issues the documented DMCONTROL
// sequences without erroring.
func TestHaltModeHaltThenResume(t *testing.T) {
	p, _ := attachFakeReg(t)

	if err := p.WriteWord(0x20000000, 1); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	if err := p.HaltMode(dm.HaltModeHalt); err != nil {
		t.Fatalf("HaltMode(Halt): %v", err)
	}
	if err := p.HaltMode(dm.HaltModeResume); err != nil {
		t.Fatalf("HaltMode(Resume): %v", err)
	}
}

// TestUnimplementedCapabilityReturnsCommandUnimplemented exercises S6's
// shape: an operation with no bound capability (here, a programmer
// that was never attached to a register-capable device, so
// ConfigureNRSTAsGPIO was never filled by any default) surfaces as
// command-unimplemented rather than panicking on a nil function call.
func TestUnimplementedCapabilityReturnsCommandUnimplemented(t *testing.T) {
	p, err := ch32dbg.Attach(blobOnlyDevice{})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	err = p.ConfigureNRSTAsGPIO(true)
	if err == nil {
		t.Fatal("expected an error from an adapter with no register access at all")
	}
	var ce *ch32dbg.Error
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a *ch32dbg.Error", err)
	}
	if ce.Kind != ch32dbg.ErrCommandUnimplemented {
		t.Errorf("Kind = %v, want ErrCommandUnimplemented", ce.Kind)
	}
}

// blobOnlyDevice models WCH-LinkE's shape for this test file: no register
// access at all, only the high-level operations its own firmware performs
// natively.
type blobOnlyDevice struct{}

func (blobOnlyDevice) Close() error                               { return nil }
func (blobOnlyDevice) SetupInterface() error                      { return nil }
func (blobOnlyDevice) Control3v3(on bool) error                   { return nil }
func (blobOnlyDevice) Control5v(on bool) error                    { return nil }
func (blobOnlyDevice) HaltMode(mode dm.HaltMode) error             { return nil }
func (blobOnlyDevice) ReadBinaryBlob(addr uint32, b []byte) error  { return nil }
func (blobOnlyDevice) WriteBinaryBlob(addr uint32, b []byte) error { return nil }

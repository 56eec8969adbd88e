package transport_test

import (
	"errors"
	"testing"

	"ch32dbg/dm"
	"ch32dbg/flash"
	"ch32dbg/transport"
)

// fakeDevice satisfies transport.Device and, selectively, the optional
// capability interfaces, so FromDevice/Resolve can be exercised without a
// real USB or serial transport.
type fakeDevice struct {
	mem map[uint32]uint32
}

func newFakeDevice() *fakeDevice { return &fakeDevice{mem: map[uint32]uint32{}} }

func (d *fakeDevice) ReadReg32(reg uint32) (uint32, error) {
	if reg == dm.DMSTATUS {
		return 0x00030000, nil
	}
	return d.mem[reg], nil
}
func (d *fakeDevice) WriteReg32(reg uint32, value uint32) error { d.mem[reg] = value; return nil }
func (d *fakeDevice) Flush() error                              { return nil }
func (d *fakeDevice) DelayUS(us int) error                      { return nil }
func (d *fakeDevice) Close() error                              { return nil }

func (d *fakeDevice) VendorCommand(args []string) error { return errors.New("not reached") }

func TestFromDeviceBindsOnlyImplementedOptionals(t *testing.T) {
	dev := newFakeDevice()
	caps := transport.FromDevice(dev)

	if caps.ReadReg32 == nil || caps.WriteReg32 == nil || caps.Exit == nil {
		t.Fatalf("FromDevice left a mandatory slot nil: %+v", caps)
	}
	if caps.VendorCommand == nil {
		t.Errorf("FromDevice did not bind VendorCommand, though fakeDevice implements VendorCommander")
	}
	if caps.Control3v3 != nil {
		t.Errorf("FromDevice bound Control3v3, but fakeDevice does not implement PowerController")
	}
}

func TestResolveFillsUnboundSlotsWithDTEDefaults(t *testing.T) {
	dev := newFakeDevice()
	caps := transport.FromDevice(dev)
	eng := dm.NewEngine(dev)
	if err := eng.SetupInterface(); err != nil {
		t.Fatalf("SetupInterface: %v", err)
	}
	fc := flash.NewController(eng)

	resolved := transport.Resolve(caps, eng, fc)

	if resolved.WriteWord == nil || resolved.ReadWord == nil || resolved.HaltMode == nil {
		t.Fatalf("Resolve left a DTE-defaultable slot nil: %+v", resolved)
	}
	if resolved.VendorCommand == nil {
		t.Errorf("Resolve lost the adapter-native VendorCommand binding")
	}

	if err := resolved.WriteWord(0x20000000, 42); err != nil {
		t.Fatalf("resolved WriteWord: %v", err)
	}
	got, err := resolved.ReadWord(0x20000000)
	if err != nil {
		t.Fatalf("resolved ReadWord: %v", err)
	}
	if got != 42 {
		t.Errorf("resolved ReadWord(0x20000000) = %d, want 42", got)
	}
}

func TestResolveLeavesNRSTConfigurerUnboundWithoutAnAdapter(t *testing.T) {
	dev := newFakeDevice()
	caps := transport.FromDevice(dev)
	eng := dm.NewEngine(dev)
	if err := eng.SetupInterface(); err != nil {
		t.Fatalf("SetupInterface: %v", err)
	}
	resolved := transport.Resolve(caps, eng, nil)

	if resolved.ConfigureNRSTAsGPIO != nil {
		t.Errorf("ConfigureNRSTAsGPIO should remain unbound: fakeDevice does not implement NRSTConfigurer and Resolve installs no default")
	}
}

// blobOnlyDevice models WCH-LinkE's shape: no RegisterAccessor at all,
// only the high-level binary-blob/halt/power/setup operations its own
// firmware performs. Resolve must be called with eng=nil, fc=nil for a
// device like this.
type blobOnlyDevice struct{}

func (blobOnlyDevice) Close() error                              { return nil }
func (blobOnlyDevice) SetupInterface() error                     { return nil }
func (blobOnlyDevice) Control3v3(on bool) error                  { return nil }
func (blobOnlyDevice) Control5v(on bool) error                   { return nil }
func (blobOnlyDevice) HaltMode(mode dm.HaltMode) error            { return nil }
func (blobOnlyDevice) ReadBinaryBlob(addr uint32, b []byte) error { return nil }
func (blobOnlyDevice) WriteBinaryBlob(addr uint32, b []byte) error { return nil }

func TestFromDeviceWithoutRegisterAccessorLeavesWordOpsUnbound(t *testing.T) {
	caps := transport.FromDevice(blobOnlyDevice{})

	if caps.ReadReg32 != nil || caps.WriteReg32 != nil {
		t.Errorf("blobOnlyDevice does not implement RegisterAccessor; ReadReg32/WriteReg32 must stay nil")
	}
	if caps.SetupInterface == nil || caps.HaltMode == nil || caps.WriteBinaryBlob == nil {
		t.Errorf("FromDevice did not bind blobOnlyDevice's native high-level operations")
	}

	resolved := transport.Resolve(caps, nil, nil)
	if resolved.WriteWord != nil || resolved.Erase != nil {
		t.Errorf("Resolve with eng=nil must leave word-level and erase slots unbound, matching WCH-LinkE having no MCF.WriteReg32")
	}
}

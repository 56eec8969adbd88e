package transport

import "ch32dbg/dm"

// Capabilities is the per-device capability table: one optional function
// slot per caller-visible operation. A nil slot means the operation is
// unimplemented on this programmer and must be surfaced as such by the
// caller, never invoked.
type Capabilities struct {
	ReadReg32           func(reg uint32) (uint32, error)
	WriteReg32          func(reg uint32, value uint32) error
	SetupInterface      func() error
	Control3v3          func(on bool) error
	Control5v           func(on bool) error
	Unbrick             func() error
	HaltMode            func(mode dm.HaltMode) error
	ConfigureNRSTAsGPIO func(asGPIO bool) error
	ReadWord            func(address uint32) (uint32, error)
	WriteWord           func(address uint32, data uint32) error
	ReadHalfWord        func(address uint32) (uint16, error)
	WriteHalfWord       func(address uint32, data uint16) error
	ReadBinaryBlob      func(address uint32, blob []byte) error
	WriteBinaryBlob     func(address uint32, blob []byte) error
	Erase               func(address, length uint32, eraseAll bool) error
	BlockWrite64        func(address uint32, data [64]byte) error
	WaitForFlash        func() error
	WaitForDoneOp       func() error
	FlushLLCommands     func() error
	DelayUS             func(us int) error
	PollTerminal        func(buffer []byte, ackA, ackB uint32) (int, error)
	PrintChipInfo       func() error
	VendorCommand       func(args []string) error
	Exit                func() error
	VoidHighLevelState  func()
}

// FromDevice builds the slots a Device implementation can fill directly,
// without any DTE default, by type-asserting it against every optional
// capability interface in turn. Resolve fills in everything this leaves
// nil that a constructed dm.Engine/flash.Controller can synthesize.
func FromDevice(dev Device) Capabilities {
	caps := Capabilities{Exit: dev.Close}

	if ra, ok := dev.(RegisterAccessor); ok {
		caps.ReadReg32 = ra.ReadReg32
		caps.WriteReg32 = ra.WriteReg32
		caps.FlushLLCommands = ra.Flush
		caps.DelayUS = ra.DelayUS
	}
	if is, ok := dev.(InterfaceSetuper); ok {
		caps.SetupInterface = is.SetupInterface
	}
	if pc, ok := dev.(PowerController); ok {
		caps.Control3v3 = pc.Control3v3
		caps.Control5v = pc.Control5v
	}
	if ub, ok := dev.(Unbricker); ok {
		caps.Unbrick = ub.Unbrick
	}
	if hm, ok := dev.(HaltModer); ok {
		caps.HaltMode = hm.HaltMode
	}
	if nc, ok := dev.(NRSTConfigurer); ok {
		caps.ConfigureNRSTAsGPIO = nc.ConfigureNRSTAsGPIO
	}
	if br, ok := dev.(BinaryBlobReader); ok {
		caps.ReadBinaryBlob = br.ReadBinaryBlob
	}
	if bw, ok := dev.(BinaryBlobWriter); ok {
		caps.WriteBinaryBlob = bw.WriteBinaryBlob
	}
	if vc, ok := dev.(VendorCommander); ok {
		caps.VendorCommand = vc.VendorCommand
	}
	if cip, ok := dev.(ChipInfoPrinter); ok {
		caps.PrintChipInfo = cip.PrintChipInfo
	}
	if bw64, ok := dev.(BlockWriter64); ok {
		caps.BlockWrite64 = bw64.BlockWrite64
	}
	return caps
}

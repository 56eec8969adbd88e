// Package dm implements the Debug Transport Engine: it synthesizes
// halt/resume, memory read/write, and flash-page operations against the
// target's RISC-V external Debug Module (DM) by composing Abstract
// Commands and Program Buffer micro-programs, the way hypervisor/kvm.go
// composes VM exits from a handful of named ioctl numbers.
package dm

// Debug Module register addresses, per spec.md section 4.1.
const (
	DMCONTROL     = 0x10
	DMSTATUS      = 0x11
	DMABSTRACTCS  = 0x16
	DMCOMMAND     = 0x17
	DMABSTRACTAUTO = 0x18
	DMPROGBUF0    = 0x20
	DMPROGBUF1    = 0x21
	DMPROGBUF2    = 0x22
	DMDATA0       = 0x04
	DMDATA1       = 0x05
	DMCFGR        = 0x7F
	DMSHDWCFGR    = 0x7E
)

// Abstract Command encodings that copy DMDATA0 to (or from) a CPU
// scratch register and optionally execute the Program Buffer. These are
// wire protocol, not an implementation detail, so they are kept as named
// constants rather than synthesized at runtime (per SPEC_FULL.md's
// Program-Buffer addendum).
const (
	cmdCopyToX8AndExec  = 0x00271008 // aarsize=2, transfer, write, regno=x8, postexec
	cmdCopyToX9         = 0x00231009 // write, regno=x9
	cmdCopyToX10        = 0x0023100a // write, regno=x10
	cmdCopyToX11        = 0x0023100b // write, regno=x11
	cmdCopyToX12        = 0x0023100c // write, regno=x12
	cmdCopyToX13        = 0x0023100d // write, regno=x13
	cmdExecOnly         = 0x00241000 // postexec, no transfer
	cmdReadX8IntoData0  = 0x00221008 // transfer, read, regno=x8
)

// abstractAutoEnable / abstractAutoDisable are the two values ever
// written to DMABSTRACTAUTO: bit 0 re-runs DMCOMMAND whenever DMDATA0 is
// touched.
const (
	abstractAutoEnable  = 0x00000001
	abstractAutoDisable = 0x00000000
)

// shadowConfigMagic is written to both DMSHDWCFGR and DMCFGR during
// interface setup: 0x5AA5 in the top half is the unlock key, bit 10
// enables host-to-target output.
const shadowConfigMagic = 0x5AA50000 | (1 << 10)

// DMABSTRACTCS bit layout.
const (
	abstractCSBusyBit    = 1 << 12
	abstractCSCmdErrMask = 0x700 // bits 8..10
	abstractCSCmdErrClear = 0x00000700
)

// flashCTLRAddr and flashPagePGBufLoad are primed into x12/x13 before
// WRSQ runs so its tail can ack a flash page-load without the flash
// package needing to be involved in the streaming hot path. The flash
// package defines the same CTLR address and PAGE_PG|BUF_LOAD bits for
// its own (non-streaming) sequencing; the duplication mirrors the
// original C, which also hardcodes 0x40022010 directly in
// StaticUpdatePROGBUFRegs instead of referencing the FLASH-> struct.
const (
	flashCTLRAddr      = 0x40022010
	flashPagePG        = 0x00010000 // CR_PAGE_PG: fast page program enable
	flashBufLoad       = 0x00040000 // CR_BUF_LOAD: latch one word into the page buffer
	flashPagePGBufLoad = flashPagePG | flashBufLoad
)

// Package ch32dbg drives a CH32V003 target through whichever Transport
// Adapter is attached, presenting one uniform operation set regardless of
// which capability slots the adapter filled natively versus which the
// Debug Transport Engine's defaults backfilled.
package ch32dbg

import (
	"fmt"

	"ch32dbg/addr"
	"ch32dbg/dm"
	"ch32dbg/flash"
	"ch32dbg/transport"
)

// Programmer is the caller-visible façade over one attached device: a
// resolved Capabilities table plus, when the adapter is register-capable,
// the flash.Controller built on top of it (needed directly for
// UnlockBootloader, which has no Capabilities slot of its own).
type Programmer struct {
	dev  transport.Device
	caps transport.Capabilities
	fc   *flash.Controller
}

// Attach builds a dm.Engine and flash.Controller over dev when it exposes
// register-level access, resolves every capability slot dev doesn't bind
// natively against the resulting DTE defaults, and returns a ready
// Programmer. Devices with no register access at all (WCH-LinkE) get no
// Engine and no Controller; Resolve then leaves every slot only the DTE
// could have filled as unbound, exactly as SetupAutomaticHighLevelFunctions
// leaves MCF.WriteWord null when MCF.WriteReg32 was never populated.
func Attach(dev transport.Device) (*Programmer, error) {
	caps := transport.FromDevice(dev)

	var eng *dm.Engine
	var fc *flash.Controller
	if ra, ok := dev.(transport.RegisterAccessor); ok {
		eng = dm.NewEngine(ra)
		fc = flash.NewController(eng)
	}
	caps = transport.Resolve(caps, eng, fc)

	return &Programmer{dev: dev, caps: caps, fc: fc}, nil
}

// SetupInterface prepares the DM for use, or runs the adapter's own attach
// handshake in place of it. Skipped by callers driving -u or -X, per
// section 6's "skip initial setup_interface" note.
func (p *Programmer) SetupInterface() error {
	if p.caps.SetupInterface == nil {
		return unimplemented("setup-interface")
	}
	return p.caps.SetupInterface()
}

// HaltMode drives the target through one of dm.HaltMode's four DMCONTROL
// sequences, or the adapter's native equivalent. On a register-capable
// adapter, HaltModeReset58 first halts the core and runs
// flash.Controller.ConfigureBootToBootloader, so the reboot that follows
// starts the factory bootloader.
func (p *Programmer) HaltMode(mode dm.HaltMode) error {
	if p.caps.HaltMode == nil {
		return unimplemented("halt-mode")
	}
	if mode == dm.HaltModeReset58 && p.fc != nil {
		if err := p.caps.HaltMode(dm.HaltModeHalt); err != nil {
			return err
		}
		if err := p.fc.ConfigureBootToBootloader(); err != nil {
			return err
		}
	}
	return p.caps.HaltMode(mode)
}

// Erase performs a range erase, or a mass erase when eraseAll is set.
func (p *Programmer) Erase(address, length uint32, eraseAll bool) error {
	if p.caps.Erase == nil {
		return unimplemented("erase")
	}
	return p.caps.Erase(address, length, eraseAll)
}

// ReadWord reads one 32-bit word, streaming through the cached pipeline
// when the caller's access pattern allows it.
func (p *Programmer) ReadWord(address uint32) (uint32, error) {
	if p.caps.ReadWord == nil {
		return 0, unimplemented("read-word")
	}
	return p.caps.ReadWord(address)
}

// WriteWord writes one 32-bit word, taking the fast-page-program path
// automatically when address is flash-class. A flash-class address is
// unlocked once, lazily, on first use (Controller.Unlock is a no-op once
// already unlocked).
func (p *Programmer) WriteWord(address, data uint32) error {
	if p.caps.WriteWord == nil {
		return unimplemented("write-word")
	}
	if p.fc != nil && addr.Classify(address) == addr.ClassFlash {
		if err := p.fc.Unlock(); err != nil {
			return err
		}
	}
	return p.caps.WriteWord(address, data)
}

// ReadHalfWord reads one 16-bit half-word, voiding any streaming cache.
func (p *Programmer) ReadHalfWord(address uint32) (uint16, error) {
	if p.caps.ReadHalfWord == nil {
		return 0, unimplemented("read-half-word")
	}
	return p.caps.ReadHalfWord(address)
}

// WriteHalfWord writes one 16-bit half-word, voiding any streaming cache.
func (p *Programmer) WriteHalfWord(address uint32, data uint16) error {
	if p.caps.WriteHalfWord == nil {
		return unimplemented("write-half-word")
	}
	return p.caps.WriteHalfWord(address, data)
}

// ReadBinaryBlob reads len(blob) bytes starting at address into blob.
func (p *Programmer) ReadBinaryBlob(address uint32, blob []byte) error {
	if p.caps.ReadBinaryBlob == nil {
		return unimplemented("read-binary-blob")
	}
	return p.caps.ReadBinaryBlob(address, blob)
}

// WriteBinaryBlob writes blob starting at address. For a flash-class
// address this unlocks and erases the covered range first (section 4.4's
// "otherwise" branch), then commits 16 words (64 bytes) at a time through
// flash.Controller.WritePage — the streaming word path alone never
// asserts CTLR=PAGE_PG|STRT, so without this a register-capable adapter
// would erase the range and then silently never commit a single page.
// This whole flash.Controller path is skipped when the adapter implements
// BlockWrite64 and address is 64-byte aligned: its own page-write path is
// used instead and is trusted to erase as it goes (WCH-LinkE's embedded
// bootloader does exactly this, though no adapter in this pack implements
// BlockWrite64 directly).
func (p *Programmer) WriteBinaryBlob(address uint32, blob []byte) error {
	flashClass := addr.Classify(address) == addr.ClassFlash

	if flashClass && p.caps.BlockWrite64 != nil && address%64 == 0 {
		return p.writeBinaryBlobViaBlockWrite64(address, blob)
	}

	if flashClass && p.fc != nil {
		if err := p.fc.Unlock(); err != nil {
			return err
		}
		if err := p.fc.Erase(address, uint32(len(blob))); err != nil {
			return err
		}
		return p.writeBinaryBlobViaPages(address, blob)
	}

	if p.caps.WriteBinaryBlob == nil {
		return unimplemented("write-binary-blob")
	}
	return p.caps.WriteBinaryBlob(address, blob)
}

// writeBinaryBlobViaBlockWrite64 pages blob into 64-byte chunks, 0xff-
// padding the final short chunk the way the streaming path pads its final
// partial word.
func (p *Programmer) writeBinaryBlobViaBlockWrite64(address uint32, blob []byte) error {
	for off := 0; off < len(blob); off += 64 {
		var page [64]byte
		for i := range page {
			page[i] = 0xff
		}
		copy(page[:], blob[off:])
		if err := p.caps.BlockWrite64(address+uint32(off), page); err != nil {
			return fmt.Errorf("write-binary-blob: block write at %#x: %w", address+uint32(off), err)
		}
	}
	return nil
}

// writeBinaryBlobViaPages groups blob into 16-word chunks and commits each
// through flash.Controller.WritePage, exactly as DefaultWriteBinaryBlob's
// flash branch does: group is the 64-byte-aligned page base for the
// chunk's starting address, and any bytes past the end of blob are
// 0xff-padded rather than read from memory.
func (p *Programmer) writeBinaryBlobViaPages(address uint32, blob []byte) error {
	for off := 0; off < len(blob); off += 64 {
		chunkStart := address + uint32(off)
		group := chunkStart &^ 0x3f

		var words [16]uint32
		for j := 0; j < 16; j++ {
			idx := off + j*4
			word := uint32(0xffffffff)
			remain := len(blob) - idx
			switch {
			case remain >= 4:
				word = uint32(blob[idx]) | uint32(blob[idx+1])<<8 | uint32(blob[idx+2])<<16 | uint32(blob[idx+3])<<24
			case remain > 0:
				buf := [4]byte{0xff, 0xff, 0xff, 0xff}
				for k := 0; k < remain; k++ {
					buf[k] = blob[idx+k]
				}
				word = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
			}
			words[j] = word
		}

		if err := p.fc.WritePage(group, words); err != nil {
			return fmt.Errorf("write-binary-blob: page commit at %#x: %w", group, err)
		}
	}
	return nil
}

// Unbrick power-cycles the target and forces it back into a halted,
// mass-erased state, recovering a device whose flash contents prevent a
// normal attach.
func (p *Programmer) Unbrick() error {
	if p.caps.Unbrick == nil {
		return unimplemented("unbrick")
	}
	return p.caps.Unbrick()
}

// PrintChipInfo prints adapter- or target-specific identification to
// standard output.
func (p *Programmer) PrintChipInfo() error {
	if p.caps.PrintChipInfo == nil {
		return unimplemented("print-chip-info")
	}
	return p.caps.PrintChipInfo()
}

// ConfigureNRSTAsGPIO switches the NRST pin between its reset function and
// plain GPIO. Only an adapter that implements it natively (WCH-LinkE)
// binds this slot; transport.Resolve installs no default, so on a
// register-only adapter this returns ErrCommandUnimplemented.
func (p *Programmer) ConfigureNRSTAsGPIO(asGPIO bool) error {
	if p.caps.ConfigureNRSTAsGPIO == nil {
		return unimplemented("configure-nrst-as-gpio")
	}
	return p.caps.ConfigureNRSTAsGPIO(asGPIO)
}

// VendorCommand passes an opaque command straight to the adapter.
func (p *Programmer) VendorCommand(args []string) error {
	if p.caps.VendorCommand == nil {
		return unimplemented("vendor-command")
	}
	return p.caps.VendorCommand(args)
}

// UnlockBootloader unlocks the on-chip bootloader region so a subsequent
// reboot-into-bootloader (HaltModeReset58) can reach it. This has no
// Capabilities slot of its own: it needs the flash.Controller directly,
// so it is unavailable on an adapter with no register access at all.
func (p *Programmer) UnlockBootloader() error {
	if p.fc == nil {
		return unimplemented("unlock-bootloader")
	}
	if err := p.fc.UnlockBootloader(); err != nil {
		return &Error{Kind: ErrCouldNotUnlockBoot, Err: err}
	}
	return nil
}

// PollTerminal reads one print-terminal message, if any, and acknowledges
// it with ackA/ackB. The first call on a device switches its streaming
// state to Terminal; interleaving this with memory operations without an
// intervening teardown is a caller error the streaming tag makes safe to
// detect but not safe to ignore.
func (p *Programmer) PollTerminal(buffer []byte, ackA, ackB uint32) (int, error) {
	if p.caps.PollTerminal == nil {
		return 0, unimplemented("poll-terminal")
	}
	return p.caps.PollTerminal(buffer, ackA, ackB)
}

// Control3v3 switches the target's 3.3V rail.
func (p *Programmer) Control3v3(on bool) error {
	if p.caps.Control3v3 == nil {
		return unimplemented("control-3v3")
	}
	return p.caps.Control3v3(on)
}

// Control5v switches the target's 5V rail.
func (p *Programmer) Control5v(on bool) error {
	if p.caps.Control5v == nil {
		return unimplemented("control-5v")
	}
	return p.caps.Control5v(on)
}

// Exit releases the underlying adapter handle. Safe to call once, at the
// end of every invocation, success or failure.
func (p *Programmer) Exit() error {
	if p.caps.Exit == nil {
		return nil
	}
	return p.caps.Exit()
}

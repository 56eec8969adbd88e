package transport

import (
	"fmt"

	"ch32dbg/dm"
	"ch32dbg/flash"
)

// Resolve fills every unbound slot in caps for which a DTE default exists.
// eng is non-nil only when the device implements RegisterAccessor (this
// pack's ESP32-S2 adapter); for a binary-blob-only adapter like WCH-LinkE,
// eng and fc are both nil and Resolve leaves word/half-word/erase/terminal
// slots unbound, exactly as TryInit_WCHLinkE never populates MCF.WriteWord
// because it never populated MCF.WriteReg32 in the first place. Slots an
// adapter already bound natively are left untouched — adapter-native
// always takes precedence over the generic default, mirroring
// SetupAutomaticHighLevelFunctions's "if (!MCF.X) MCF.X = DefaultX" guard
// for every slot.
func Resolve(caps Capabilities, eng *dm.Engine, fc *flash.Controller) Capabilities {
	if eng != nil {
		if caps.SetupInterface == nil {
			// Asserts 3.3 V first when the adapter can switch it and waits
			// about 16 ms for the target to come up, then runs the DM
			// shadow-config handshake.
			caps.SetupInterface = func() error {
				if caps.Control3v3 != nil {
					if err := caps.Control3v3(true); err != nil {
						return fmt.Errorf("setup interface: power on: %w", err)
					}
				}
				if caps.DelayUS != nil {
					_ = caps.DelayUS(16000)
				}
				return eng.SetupInterface()
			}
		}
		if caps.HaltMode == nil {
			caps.HaltMode = eng.HaltMode
		}
		if caps.ReadWord == nil {
			caps.ReadWord = eng.ReadWord
		}
		if caps.WriteWord == nil {
			caps.WriteWord = eng.WriteWord
		}
		if caps.ReadHalfWord == nil {
			caps.ReadHalfWord = eng.ReadHalfWord
		}
		if caps.WriteHalfWord == nil {
			caps.WriteHalfWord = eng.WriteHalfWord
		}
		if caps.ReadBinaryBlob == nil {
			caps.ReadBinaryBlob = eng.ReadBlob
		}
		if caps.WriteBinaryBlob == nil {
			caps.WriteBinaryBlob = eng.WriteBlob
		}
		if caps.PollTerminal == nil {
			caps.PollTerminal = eng.PollTerminal
		}
		if caps.WaitForDoneOp == nil {
			// eng has no standalone WaitForDoneOp: it is folded into every
			// streaming op, exactly as DefaultWaitForDoneOp is folded into
			// DefaultWriteWord/DefaultReadWord rather than invoked
			// separately by callers outside minichlink.c itself.
			caps.WaitForDoneOp = func() error { return nil }
		}
		if caps.VoidHighLevelState == nil {
			caps.VoidHighLevelState = func() { eng.State().Invalidate() }
		}

		// ConfigureNRSTAsGPIO has no DTE default: DefaultConfigureNRSTAsGPIO
		// in the source this is grounded on returns an error ahead of ~140
		// lines of dead code. The slot stays unbound, so the caller reports
		// it as command-unimplemented; on such an adapter NRST has to be
		// reconfigured with an external option-byte utility.

		if caps.PrintChipInfo == nil && caps.ReadWord != nil {
			caps.PrintChipInfo = func() error {
				if err := eng.HaltMode(dm.HaltModeHalt); err != nil {
					return fmt.Errorf("print chip info: halt: %w", err)
				}
				reg, err := caps.ReadWord(0x1FFFF800)
				if err != nil {
					return fmt.Errorf("print chip info: read USER/RDPR: %w", err)
				}
				fmt.Printf("USER/RDPR: %08x\n", reg)
				if reg, err = caps.ReadWord(0x1FFFF7E0); err != nil {
					return fmt.Errorf("print chip info: read flash size: %w", err)
				}
				fmt.Printf("Flash Size: %d kB\n", reg&0xffff)
				if reg, err = caps.ReadWord(0x1FFFF7E8); err != nil {
					return fmt.Errorf("print chip info: read unique ID 1: %w", err)
				}
				fmt.Printf("R32_ESIG_UNIID1: %08x\n", reg)
				if reg, err = caps.ReadWord(0x1FFFF7EC); err != nil {
					return fmt.Errorf("print chip info: read unique ID 2: %w", err)
				}
				fmt.Printf("R32_ESIG_UNIID2: %08x\n", reg)
				if reg, err = caps.ReadWord(0x1FFFF7F0); err != nil {
					return fmt.Errorf("print chip info: read unique ID 3: %w", err)
				}
				fmt.Printf("R32_ESIG_UNIID3: %08x\n", reg)
				return nil
			}
		}
	}

	if fc != nil {
		if caps.WaitForFlash == nil {
			caps.WaitForFlash = fc.WaitForFlash
		}
		if caps.Erase == nil {
			caps.Erase = func(address, length uint32, eraseAll bool) error {
				if eraseAll {
					return fc.EraseAll()
				}
				return fc.Erase(address, length)
			}
		}
	}

	// Unbrick's default power-cycles the target and re-runs the DMCFGR
	// handshake directly against the register primitives (not through
	// Engine.SetupInterface, which would fail loudly on the first few
	// tries while the target is still powering up), then mass-erases.
	// Needs low-level register access, power control, and a flash
	// controller all at once.
	if caps.Unbrick == nil && caps.ReadReg32 != nil && caps.WriteReg32 != nil &&
		caps.Control3v3 != nil && caps.DelayUS != nil && fc != nil {
		caps.Unbrick = func() error {
			if err := caps.Control3v3(false); err != nil {
				return fmt.Errorf("unbrick: power off: %w", err)
			}
			for i := 0; i < 4; i++ {
				_ = caps.DelayUS(60000)
			}
			if err := caps.Control3v3(true); err != nil {
				return fmt.Errorf("unbrick: power on: %w", err)
			}
			_ = caps.DelayUS(100)
			if caps.FlushLLCommands != nil {
				_ = caps.FlushLLCommands()
			}

			synced := false
			for i := 0; i < 500; i++ {
				_ = caps.DelayUS(10)
				if err := caps.WriteReg32(dm.DMSHDWCFGR, 0x5aa50000|(1<<10)); err != nil {
					return fmt.Errorf("unbrick: write DMSHDWCFGR: %w", err)
				}
				if err := caps.WriteReg32(dm.DMCFGR, 0x5aa50000|(1<<10)); err != nil {
					return fmt.Errorf("unbrick: write DMCFGR: %w", err)
				}
				if err := caps.WriteReg32(dm.DMCFGR, 0x5aa50000|(1<<10)); err != nil {
					return fmt.Errorf("unbrick: write DMCFGR (retry): %w", err)
				}
				if caps.FlushLLCommands != nil {
					_ = caps.FlushLLCommands()
				}
				ds, err := caps.ReadReg32(dm.DMSTATUS)
				if err != nil {
					return fmt.Errorf("unbrick: read DMSTATUS: %w", err)
				}
				if ds != 0xffffffff && ds != 0x00000000 {
					synced = true
					break
				}
			}

			if err := caps.WriteReg32(dm.DMCONTROL, 0x80000001); err != nil {
				return fmt.Errorf("unbrick: halt: %w", err)
			}
			if err := caps.WriteReg32(dm.DMCONTROL, 0x80000001); err != nil {
				return fmt.Errorf("unbrick: halt: %w", err)
			}
			if err := caps.WriteReg32(dm.DMCONTROL, 0x00000001); err != nil {
				return fmt.Errorf("unbrick: halt: %w", err)
			}
			if caps.FlushLLCommands != nil {
				_ = caps.FlushLLCommands()
			}

			if !synced {
				return fmt.Errorf("unbrick: timed out waiting for the target to resync")
			}
			if err := fc.EraseAll(); err != nil {
				return fmt.Errorf("unbrick: mass erase: %w", err)
			}
			if caps.FlushLLCommands != nil {
				_ = caps.FlushLLCommands()
			}
			return nil
		}
	}

	return caps
}

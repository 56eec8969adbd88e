package flash

import (
	"fmt"

	"ch32dbg/dm"
)

// maxWaitIterations bounds DefaultWaitForFlash's busy-poll loop.
const maxWaitIterations = 100

// Controller drives the FLASH_CTLR peripheral over a dm.WordIO. It tracks
// whether the unlock sequence has already run, mirroring InternalState's
// flash_unlocked flag in the original so repeated writes don't re-unlock.
type Controller struct {
	io       dm.WordIO
	unlocked bool
}

// NewController wraps io. Unlock runs lazily, on first use, exactly as
// StaticUnlockFlash does.
func NewController(io dm.WordIO) *Controller {
	return &Controller{io: io}
}

// Unlock writes the KEYR/OBKEYR/MODEKEYR unlock key pairs if CTLR reports
// either lock bit set, then confirms the lock cleared. A no-op once
// already unlocked.
func (c *Controller) Unlock() error {
	if c.unlocked {
		return nil
	}

	rw, err := c.io.ReadWord(ctlrAddr)
	if err != nil {
		return fmt.Errorf("flash: read CTLR: %w", err)
	}

	if rw&crLockedMask != 0 {
		writes := []struct {
			addr uint32
			val  uint32
		}{
			{keyrAddr, key1},
			{keyrAddr, key2},
			{obkeyrAddr, key1},
			{obkeyrAddr, key2},
			{modekeyrAddr, key1},
			{modekeyrAddr, key2},
		}
		for _, w := range writes {
			if err := c.io.WriteWord(w.addr, w.val); err != nil {
				return fmt.Errorf("flash: unlock sequence: %w", err)
			}
		}

		rw, err = c.io.ReadWord(ctlrAddr)
		if err != nil {
			return fmt.Errorf("flash: read CTLR after unlock: %w", err)
		}
		if rw&crLockedMask != 0 {
			return fmt.Errorf("flash: could not unlock, CTLR = %08x", rw)
		}
	}

	c.unlocked = true
	return nil
}

// WaitForFlash polls STATR's busy bit, bounded to maxWaitIterations reads,
// and reports a write-protect error if one latched.
func (c *Controller) WaitForFlash() error {
	var rw uint32
	for i := 0; ; i++ {
		v, err := c.io.ReadWord(statrAddr)
		if err != nil {
			return fmt.Errorf("flash: read STATR: %w", err)
		}
		rw = v
		if rw&statrBusy == 0 {
			break
		}
		if i+1 >= maxWaitIterations {
			return fmt.Errorf("flash: timed out waiting for STATR busy to clear")
		}
	}
	if rw&statrWrPrtErr != 0 {
		return fmt.Errorf("flash: memory protection error (STATR = %08x)", rw)
	}
	return nil
}

// Erase performs a fast page erase across [address, address+length),
// 64 bytes (one page) at a time, per 16.4.7 steps 3-6 of the reference
// manual this driver is grounded on.
func (c *Controller) Erase(address, length uint32) error {
	if err := c.Unlock(); err != nil {
		return err
	}

	for chunk := address; chunk < address+length; chunk += eraseChunkSize {
		if err := c.io.WriteWord(ctlrAddr, crPageEr); err != nil {
			return fmt.Errorf("flash: set PAGE_ER: %w", err)
		}
		if err := c.io.WriteWord(addrAddr, chunk); err != nil {
			return fmt.Errorf("flash: set ADDR: %w", err)
		}
		if err := c.io.WriteWord(ctlrAddr, crStrt|crPageEr); err != nil {
			return fmt.Errorf("flash: set STRT|PAGE_ER: %w", err)
		}
		if err := c.WaitForFlash(); err != nil {
			return err
		}
	}
	return nil
}

// EraseAll performs a whole-chip mass erase.
func (c *Controller) EraseAll() error {
	if err := c.Unlock(); err != nil {
		return err
	}
	if err := c.io.WriteWord(ctlrAddr, 0); err != nil {
		return fmt.Errorf("flash: clear CTLR: %w", err)
	}
	if err := c.io.WriteWord(ctlrAddr, crMER); err != nil {
		return fmt.Errorf("flash: set MER: %w", err)
	}
	if err := c.io.WriteWord(ctlrAddr, crStrt|crMER); err != nil {
		return fmt.Errorf("flash: set STRT|MER: %w", err)
	}
	if err := c.WaitForFlash(); err != nil {
		return err
	}
	return c.io.WriteWord(ctlrAddr, 0)
}

// WritePage latches all 16 words into the fast-program page buffer and
// commits them at group, the 64-byte-aligned page base. Callers pass
// exactly one page per call; data beyond it belongs to the next page.
func (c *Controller) WritePage(group uint32, words [16]uint32) error {
	if err := c.io.WriteWord(ctlrAddr, crPagePG); err != nil {
		return fmt.Errorf("flash: set PAGE_PG: %w", err)
	}
	if err := c.io.WriteWord(ctlrAddr, crBufRst|crPagePG); err != nil {
		return fmt.Errorf("flash: reset page buffer: %w", err)
	}
	for i, w := range words {
		if err := c.io.WriteWord(group+uint32(i*4), w); err != nil {
			return fmt.Errorf("flash: buffer-load word %d: %w", i, err)
		}
	}
	if err := c.io.WriteWord(addrAddr, group); err != nil {
		return fmt.Errorf("flash: set ADDR: %w", err)
	}
	if err := c.io.WriteWord(ctlrAddr, crPagePG|crStrt); err != nil {
		return fmt.Errorf("flash: commit page: %w", err)
	}
	return c.WaitForFlash()
}

// UnlockBootloader writes BOOT_MODEKEYR's unlock key pair, then sets
// OBTKEYR's "boot to bootloader" bit, per InternalUnlockBootloader.
func (c *Controller) UnlockBootloader() error {
	if err := c.io.WriteWord(bootModekeyrAddr, key1); err != nil {
		return fmt.Errorf("flash: BOOT_MODEKEYR key1: %w", err)
	}
	if err := c.io.WriteWord(bootModekeyrAddr, key2); err != nil {
		return fmt.Errorf("flash: BOOT_MODEKEYR key2: %w", err)
	}
	obtkeyr, err := c.io.ReadWord(obkeyrAddr)
	if err != nil {
		return fmt.Errorf("flash: read OBTKEYR: %w", err)
	}
	if obtkeyr&(1<<15) != 0 {
		return fmt.Errorf("flash: could not unlock boot section (OBTKEYR = %08x)", obtkeyr)
	}
	obtkeyr |= 1 << 14 // configure for boot-to-bootloader
	if err := c.io.WriteWord(obkeyrAddr, obtkeyr); err != nil {
		return fmt.Errorf("flash: write OBTKEYR: %w", err)
	}
	return nil
}

// ConfigureBootToBootloader performs the KEYR/BOOT_MODEKEYR/STATR/CTLR
// sequence DefaultHaltMode's mode-3 case splices between its two halt
// requests and its reboot-and-resume, pointing the next boot at the
// factory bootloader rather than user flash.
func (c *Controller) ConfigureBootToBootloader() error {
	if err := c.io.WriteWord(keyrAddr, key1); err != nil {
		return fmt.Errorf("flash: KEYR key1: %w", err)
	}
	if err := c.io.WriteWord(keyrAddr, key2); err != nil {
		return fmt.Errorf("flash: KEYR key2: %w", err)
	}
	if err := c.io.WriteWord(bootModekeyrAddr, key1); err != nil {
		return fmt.Errorf("flash: BOOT_MODEKEYR key1: %w", err)
	}
	if err := c.io.WriteWord(bootModekeyrAddr, key2); err != nil {
		return fmt.Errorf("flash: BOOT_MODEKEYR key2: %w", err)
	}
	if err := c.io.WriteWord(statrAddr, 1<<14); err != nil {
		return fmt.Errorf("flash: write STATR: %w", err)
	}
	return c.io.WriteWord(ctlrAddr, crLock)
}

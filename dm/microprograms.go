package dm

// Program Buffer micro-programs. Each value is a RISC-V instruction word
// (compressed instructions packed two-per-slot where noted) that the
// target CPU executes out of DMPROGBUF0..2 when an Abstract Command
// requests "postexec". The assembly is reproduced in comments because,
// per spec.md section 9's REDESIGN FLAGS, these opcodes are protocol and
// must never be re-derived at runtime.

const (
	// progBufWriteStep is PROGBUF0 of the streaming-write (WRSQ) program:
	//   c.lw  x9, 0(x11)   ; x9  = *DMDATA1        (destination address)
	//   c.sw  x8, 0(x9)    ; *x9 = x8               (DMDATA0's value)
	progBufWriteStep = 0xc0804184

	// progBufWriteAdvance is PROGBUF1 of WRSQ:
	//   c.addi x9, 4       ; x9 += 4
	//   c.sw   x9, 0(x11)  ; *DMDATA1 = x9          (publish next address)
	progBufWriteAdvance = 0xc1840491

	// progBufWriteAckFlash is PROGBUF2 of WRSQ when the destination is
	// flash: acknowledges one word of a flash page-load buffer.
	//   c.sw     x13, 0(x12) ; FLASH->CTLR = PAGE_PG|BUF_LOAD
	//   c.ebreak
	progBufWriteAckFlash = 0x9002c214

	// progBufWriteAckPlain is PROGBUF2 of WRSQ for SRAM/peripheral writes:
	// just ebreak back to the debugger.
	//   c.ebreak
	progBufWriteAckPlain = 0x00019002

	// progBufReadStep is PROGBUF0 of the streaming-read (RDSQ) program:
	//   c.lw x8, 0(x11)    ; x8 = *DMDATA1          (address to load)
	//   c.lw x9, 0(x8)     ; x9 = *x8               (the word at that address)
	progBufReadStep = 0x40044180

	// progBufReadPublish is PROGBUF1 of RDSQ:
	//   c.addi x8, 4       ; x8 += 4
	//   c.sw   x9, 0(x10)  ; *DMDATA0 = x9          (hand the word to the host)
	progBufReadPublish = 0xc1040411

	// progBufReadAdvance is PROGBUF2 of RDSQ:
	//   c.sw     x8, 0(x11) ; *DMDATA1 = x8          (publish next address)
	//   c.ebreak
	progBufReadAdvance = 0x9002c180

	// progBufHalfWriteStore is PROGBUF0 of the single-shot half-word store:
	//   sh x8, 0(x9)
	progBufHalfWriteStore = 0x00849023

	// progBufHalfReadLoad is PROGBUF0 of the single-shot half-word load:
	//   lh x8, 0(x9)
	progBufHalfReadLoad = 0x00049403

	// progBufEbreak is PROGBUF1 shared by both half-word micro-programs.
	//   ebreak             ; 32-bit encoding
	progBufEbreak = 0x00100073
)

// Scratch register priming values, written to DMDATA0 then copied into
// x10/x11/x12/x13 via Abstract Commands before WRSQ/RDSQ first runs.
// x10 <- address of DMDATA0, x11 <- address of DMDATA1, x12 <- flash
// CTLR address, x13 <- the PAGE_PG|BUF_LOAD ack pattern.
const (
	scratchDMDATA0Addr = 0xe00000f4
	scratchDMDATA1Addr = 0xe00000f8
)

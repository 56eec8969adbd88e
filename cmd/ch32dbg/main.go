// Command ch32dbg drives a CH32V003 target through whichever supported
// programmer is attached: a WCH-LinkE dongle over USB, or an ESP32-S2
// adapter over a serial port named by CH32DBG_ESP32S2_PORT.
package main

import (
	"fmt"
	"os"
	"strconv"

	"ch32dbg"
	"ch32dbg/addr"
	"ch32dbg/dm"
	"ch32dbg/transport"
	"ch32dbg/transport/esp32s2"
	"ch32dbg/transport/wchlink"

	"golang.org/x/sys/unix"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// attachDevice tries each supported programmer in turn and reports which
// one it found, mirroring main()'s TryInit_WCHLinkE / TryInit_ESP32S2CHFUN
// fallback chain.
func attachDevice() (transport.Device, string, error) {
	if dev, err := wchlink.Open(); err == nil {
		return dev, "WCH LinkE", nil
	}
	if port := os.Getenv("CH32DBG_ESP32S2_PORT"); port != "" {
		if dev, err := esp32s2.Open(port); err == nil {
			return dev, "ESP32S2 Programmer", nil
		}
	}
	return nil, "", fmt.Errorf("could not initialize any supported programmer")
}

func run(args []string) int {
	dev, name, err := attachDevice()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return -32
	}
	prog, err := ch32dbg.Attach(dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return -32
	}
	fmt.Fprintf(os.Stderr, "Found %s\n", name)
	defer prog.Exit()

	skipStartup := len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' &&
		(args[0][1] == 'u' || args[0][1] == 'X')

	if !skipStartup {
		if err := prog.SetupInterface(); err != nil {
			fmt.Fprintln(os.Stderr, "Could not setup interface.")
			return -33
		}
		fmt.Println("Interface Setup")
	}

	// mustBeEnd is never set to anything but 0; the check below is dead
	// code here exactly as it is in the source this loop is ported from.
	var mustBeEnd byte
	i := 0
argsLoop:
	for i < len(args) {
		arg := args[i]
		if arg == "" || arg[0] != '-' {
			fmt.Fprintln(os.Stderr, "Error: Need prefixing - before commands")
			printUsage()
			return -1
		}
		if mustBeEnd != 0 {
			fmt.Fprintf(os.Stderr, "Error: the command '%c' cannot be followed by other commands.\n", mustBeEnd)
			return -1
		}

		pos := 1
		for pos < len(arg) {
			flag := arg[pos]

			// -r, -w, and -X take their own positional arguments and may
			// not be combined with any character before or after them in
			// the same argv word.
			if flag == 'r' || flag == 'w' || flag == 'X' {
				if pos != 1 || pos != len(arg)-1 {
					fmt.Fprintln(os.Stderr, "Error: can't have char after parameter field")
					printUsage()
					return -1
				}
			}

			switch flag {
			case '3':
				if code := dispatch(prog.Control3v3(true), -9); code != 0 {
					return code
				}
			case '5':
				if code := dispatch(prog.Control5v(true), -9); code != 0 {
					return code
				}
			case 't':
				if code := dispatch(prog.Control3v3(false), -9); code != 0 {
					return code
				}
			case 'f':
				if code := dispatch(prog.Control5v(false), -9); code != 0 {
					return code
				}
			case 'u':
				// Section 6: "-5 unbrick/nrst failure".
				if code := dispatch(prog.Unbrick(), -5); code != 0 {
					return code
				}
			case 'U':
				if code := dispatch(prog.UnlockBootloader(), -9); code != 0 {
					return code
				}
			case 'b':
				if code := dispatch(prog.HaltMode(dm.HaltModeReboot), -9); code != 0 {
					return code
				}
			case 'B':
				if code := dispatch(prog.HaltMode(dm.HaltModeReset58), -9); code != 0 {
					return code
				}
			case 'e':
				if code := dispatch(prog.HaltMode(dm.HaltModeResume), -9); code != 0 {
					return code
				}
			case 'E':
				prog.HaltMode(dm.HaltModeHalt)
				if code := dispatch(prog.Erase(0, 0, true), -9); code != 0 {
					return code
				}
			case 'h':
				if code := dispatch(prog.HaltMode(dm.HaltModeHalt), -9); code != 0 {
					return code
				}
			case 'd':
				prog.HaltMode(dm.HaltModeHalt)
				// Section 6: "-5 unbrick/nrst failure".
				if code := dispatch(prog.ConfigureNRSTAsGPIO(false), -5); code != 0 {
					return code
				}
			case 'D':
				prog.HaltMode(dm.HaltModeHalt)
				if code := dispatch(prog.ConfigureNRSTAsGPIO(true), -5); code != 0 {
					return code
				}
			case 'p':
				// Section 6: "-11 chip info read failure".
				if code := dispatch(prog.PrintChipInfo(), -11); code != 0 {
					return code
				}
			case 'T':
				return runTerminal(prog)
			case 'X':
				i++
				if i >= len(args) {
					fmt.Fprintln(os.Stderr, "Vendor command requires an actual command")
					return -1
				}
				if code := dispatch(prog.VendorCommand([]string{args[i]}), -9); code != 0 {
					return code
				}
				i++
				continue argsLoop
			case 'r':
				code, advance := runRead(prog, args, i)
				if code != 0 {
					return code
				}
				i = advance
				continue argsLoop
			case 'w':
				code, advance := runWrite(prog, args, i)
				if code != 0 {
					return code
				}
				i = advance
				continue argsLoop
			default:
				fmt.Fprintf(os.Stderr, "Error: Unknown command %c\n", flag)
				printUsage()
				return -1
			}
			pos++
		}
		i++
	}

	return 0
}

// dispatch maps an operation's error, if any, to one of section 6's exit
// codes: -1 for an unimplemented capability regardless of which flag asked
// for it, onFailure for everything else. onFailure is the caller's own
// flag-specific code from section 6's table (-5 for -u/-d/-D, -11 for -p,
// -9 for the rest) — the Kind alone can't tell -u's failure from -p's,
// since both surface as a generic wrapped error from whatever register
// read or write actually failed.
func dispatch(err error, onFailure int) int {
	if err == nil {
		return 0
	}
	var ce *ch32dbg.Error
	if e, ok := err.(*ch32dbg.Error); ok {
		ce = e
		if ce.Kind == ch32dbg.ErrCommandUnimplemented {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return -1
		}
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return onFailure
}

// runTerminal polls the print-terminal channel forever, writing whatever
// arrives to stdout. It never returns on its own: the only way out is an
// interrupt, exactly as the original's do-while(1) never breaks. While it
// runs, stdin is switched into raw mode so the shell's own line-editing
// and echo don't interfere with the relayed byte stream.
func runTerminal(prog *ch32dbg.Programmer) int {
	restore := setRawMode(int(os.Stdin.Fd()))
	defer restore()

	buf := make([]byte, 256)
	for {
		n, err := prog.PollTerminal(buf, 0, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Terminal dead.  %v\n", err)
			return -32
		}
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
	}
}

// setRawMode puts fd into raw mode (no echo, no line buffering, no signal
// generation) and returns a func that restores whatever attributes were in
// place beforehand. If fd isn't a real terminal (stdin redirected from a
// file or pipe), it's a no-op both ways.
func setRawMode(fd int) func() {
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return func() {}
	}

	raw := *saved
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return func() {}
	}
	return func() {
		unix.IoctlSetTermios(fd, unix.TCSETS, saved)
	}
}

// runRead implements "-r FILE ADDR SIZE": FILE "-" writes raw bytes to
// stdout, "+" writes a hex dump, anything else is a destination path.
// Returns the exit code (0 on success) and the index of the next
// unconsumed argument.
func runRead(prog *ch32dbg.Programmer, args []string, i int) (int, int) {
	prog.HaltMode(dm.HaltModeHalt)

	if i+3 >= len(args) {
		fmt.Fprintln(os.Stderr, "Error: missing arguments for -r")
		printUsage()
		return -1, i
	}
	fname := args[i+1]
	offset := addr.StringToMemoryAddress(args[i+2])
	amount := addr.ParseNumber(args[i+3], -1)
	if offset < 0 || offset > 0xffffffff || amount < 0 || amount > 0xffffffff {
		fmt.Fprintln(os.Stderr, "Error: memory value request out of range")
		return -9, i
	}
	amount = (amount + 3) &^ 3

	readbuf := make([]byte, amount)
	if err := prog.ReadBinaryBlob(uint32(offset), readbuf); err != nil {
		fmt.Fprintln(os.Stderr, "Fault reading device")
		return -12, i
	}

	switch fname {
	case "-":
		os.Stdout.Write(readbuf)
	case "+":
		printHexDump(uint32(offset), readbuf)
	default:
		if err := os.WriteFile(fname, readbuf, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: can't open write file %q\n", fname)
			return -9, i
		}
	}
	return 0, i + 4
}

func printHexDump(base uint32, data []byte) {
	for i, b := range data {
		if i&0xf == 0 {
			if i != 0 {
				fmt.Println()
			}
			fmt.Printf("%08x: ", base+uint32(i))
		}
		fmt.Printf("%02x ", b)
	}
	fmt.Println()
}

// maxImageBytes is section 6's -w size ceiling: CH32V003 has 16 KiB of
// code flash.
const maxImageBytes = 16384

// runWrite implements "-w SRC ADDR": SRC "-STR" is a literal string
// payload, "+HEX" is hex-encoded bytes, anything else is a source file
// path. Returns the exit code (0 on success) and the index of the next
// unconsumed argument.
func runWrite(prog *ch32dbg.Programmer, args []string, i int) (int, int) {
	prog.HaltMode(dm.HaltModeHalt)

	if i+2 >= len(args) {
		fmt.Fprintln(os.Stderr, "Error: missing arguments for -w")
		printUsage()
		return -1, i
	}
	src := args[i+1]
	addrArg := args[i+2]

	image, err := decodeWriteSource(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return -10, i
	}

	offset := addr.StringToMemoryAddress(addrArg)
	if offset < 0 || offset > 0xffffffff {
		fmt.Fprintf(os.Stderr, "Error: Invalid offset (%s)\n", addrArg)
		return -44, i
	}
	if len(image) > maxImageBytes {
		fmt.Fprintf(os.Stderr, "Error: Image for CH32V003 too large (%d)\n", len(image))
		return -9, i
	}

	if err := prog.WriteBinaryBlob(uint32(offset), image); err != nil {
		fmt.Fprintln(os.Stderr, "Error: Fault writing image.")
		return -13, i
	}
	fmt.Println("Image written.")
	return 0, i + 3
}

func decodeWriteSource(src string) ([]byte, error) {
	switch {
	case len(src) > 0 && src[0] == '-':
		return []byte(src[1:]), nil
	case len(src) > 0 && src[0] == '+':
		hexDigits := src[1:]
		if len(hexDigits)%2 != 0 {
			return nil, fmt.Errorf("hex input doesn't align to chars correctly")
		}
		out := make([]byte, len(hexDigits)/2)
		for i := range out {
			v, err := strconv.ParseUint(hexDigits[i*2:i*2+2], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("bad hex: %w", err)
			}
			out[i] = byte(v)
		}
		return out, nil
	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("file I/O fault: %w", err)
		}
		return data, nil
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: ch32dbg [args]")
	fmt.Fprintln(os.Stderr, " single-letter args may be combined, i.e. -3r")
	fmt.Fprintln(os.Stderr, " multi-part args cannot.")
	fmt.Fprintln(os.Stderr, " -3 Enable 3.3V")
	fmt.Fprintln(os.Stderr, " -5 Enable 5V")
	fmt.Fprintln(os.Stderr, " -t Disable 3.3V")
	fmt.Fprintln(os.Stderr, " -f Disable 5V")
	fmt.Fprintln(os.Stderr, " -u Clear all code flash - by power off (also can unbrick)")
	fmt.Fprintln(os.Stderr, " -U Unlock bootloader region")
	fmt.Fprintln(os.Stderr, " -b Reboot out of Halt")
	fmt.Fprintln(os.Stderr, " -B Reboot into bootloader")
	fmt.Fprintln(os.Stderr, " -e Resume from halt")
	fmt.Fprintln(os.Stderr, " -E Erase whole chip")
	fmt.Fprintln(os.Stderr, " -h Place into Halt")
	fmt.Fprintln(os.Stderr, " -D Configure NRST as GPIO")
	fmt.Fprintln(os.Stderr, " -d Configure NRST as NRST")
	fmt.Fprintln(os.Stderr, " -p Print chip info")
	fmt.Fprintln(os.Stderr, " -w [binary image to write] [address, decimal or 0x, try 0x08000000]")
	fmt.Fprintln(os.Stderr, " -r [output binary image] [memory address] [size]")
	fmt.Fprintln(os.Stderr, "   Note: for memory addresses, you can use 'flash' 'launcher' 'bootloader' 'option' 'ram' and say \"ram+0x10\" for instance")
	fmt.Fprintln(os.Stderr, "   For filename, you can use - for raw or + for hex.")
	fmt.Fprintln(os.Stderr, " -T is a terminal. This MUST be the last argument. It polls until the process is interrupted or the link fails.")
}

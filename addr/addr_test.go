package addr_test

import (
	"testing"

	"ch32dbg/addr"
)

func TestStringToMemoryAddress(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"flash+0x10", 0x08000010},
		{"ram", 0x20000000},
		{"0x1FFFF800", 0x1FFFF800},
		{"option", 0x1FFFF800},
		{"user+0x4", 0x1FFFF804},
		{"launcher", 0x1FFFF000},
		{"bootloader", 0x1FFFF000},
		{"0755", 0x1ED},
		{"0b101", 0x5},
		{"nonsense", -1},
	}
	for _, c := range cases {
		if got := addr.StringToMemoryAddress(c.in); got != c.want {
			t.Errorf("StringToMemoryAddress(%q) = 0x%x, want 0x%x", c.in, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		addr uint32
		want addr.Class
	}{
		{0x08001234, addr.ClassFlash},
		{0x00001234, addr.ClassFlash},
		{0x1FFFF010, addr.ClassFlash},
		{0x1FFFF810, addr.ClassOther},
		{0x20000100, addr.ClassOther},
	}
	for _, c := range cases {
		if got := addr.Classify(c.addr); got != c.want {
			t.Errorf("Classify(0x%08x) = %v, want %v", c.addr, got, c.want)
		}
	}
}

func TestParseNumberDefaultsOnEmpty(t *testing.T) {
	if got := addr.ParseNumber("", -7); got != -7 {
		t.Errorf("ParseNumber(\"\", -7) = %d, want -7", got)
	}
	if got := addr.ParseNumber("not-a-number", 42); got != 42 {
		t.Errorf("ParseNumber(garbage, 42) = %d, want 42", got)
	}
}

package wchlink

// bootloader is a 512-byte RISC-V machine-code payload uploaded into the
// target's SRAM before any flash write: it is the in-target half of the
// WCH-LinkE programming protocol, implementing the page-buffer/erase/
// program loop that the CTLR-level Debug Transport Engine does with
// Program Buffer micro-programs on a register-accessible adapter. Its
// instruction encoding is opaque here by design; it is carried as inert
// data and only ever uploaded verbatim in 64-byte chunks.
var bootloader = [512]byte{
	0x21, 0x11, 0x22, 0xca, 0x26, 0xc8, 0x93, 0x77, 0x15, 0x00, 0x99, 0xcf,
	0xb7, 0x06, 0x67, 0x45, 0xb7, 0x27, 0x02, 0x40, 0x93, 0x86, 0x36, 0x12,
	0x37, 0x97, 0xef, 0xcd, 0xd4, 0xc3, 0x13, 0x07, 0xb7, 0x9a, 0xd8, 0xc3,
	0xd4, 0xd3, 0xd8, 0xd3, 0x93, 0x77, 0x25, 0x00, 0x9d, 0xc7, 0xb7, 0x27,
	0x02, 0x40, 0x98, 0x4b, 0xad, 0x66, 0x37, 0x33, 0x00, 0x40, 0x13, 0x67,
	0x47, 0x00, 0x98, 0xcb, 0x98, 0x4b, 0x93, 0x86, 0xa6, 0xaa, 0x13, 0x67,
	0x07, 0x04, 0x98, 0xcb, 0xd8, 0x47, 0x05, 0x8b, 0x63, 0x16, 0x07, 0x10,
	0x98, 0x4b, 0x6d, 0x9b, 0x98, 0xcb, 0x93, 0x77, 0x45, 0x00, 0xa9, 0xcb,
	0x93, 0x07, 0xf6, 0x03, 0x99, 0x83, 0x2e, 0xc0, 0x2d, 0x63, 0x81, 0x76,
	0x3e, 0xc4, 0xb7, 0x32, 0x00, 0x40, 0xb7, 0x27, 0x02, 0x40, 0x13, 0x03,
	0xa3, 0xaa, 0xfd, 0x16, 0x98, 0x4b, 0xb7, 0x03, 0x02, 0x00, 0x33, 0x67,
	0x77, 0x00, 0x98, 0xcb, 0x02, 0x47, 0xd8, 0xcb, 0x98, 0x4b, 0x13, 0x67,
	0x07, 0x04, 0x98, 0xcb, 0xd8, 0x47, 0x05, 0x8b, 0x69, 0xe7, 0x98, 0x4b,
	0x75, 0x8f, 0x98, 0xcb, 0x02, 0x47, 0x13, 0x07, 0x07, 0x04, 0x3a, 0xc0,
	0x22, 0x47, 0x7d, 0x17, 0x3a, 0xc4, 0x79, 0xf7, 0x93, 0x77, 0x85, 0x00,
	0xf1, 0xcf, 0x93, 0x07, 0xf6, 0x03, 0x2e, 0xc0, 0x99, 0x83, 0x37, 0x27,
	0x02, 0x40, 0x3e, 0xc4, 0x1c, 0x4b, 0xc1, 0x66, 0x2d, 0x63, 0xd5, 0x8f,
	0x1c, 0xcb, 0x37, 0x07, 0x00, 0x20, 0x13, 0x07, 0x07, 0x20, 0xb7, 0x27,
	0x02, 0x40, 0xb7, 0x03, 0x08, 0x00, 0xb7, 0x32, 0x00, 0x40, 0x13, 0x03,
	0xa3, 0xaa, 0x94, 0x4b, 0xb3, 0xe6, 0x76, 0x00, 0x94, 0xcb, 0xd4, 0x47,
	0x85, 0x8a, 0xf5, 0xfe, 0x82, 0x46, 0xba, 0x84, 0x37, 0x04, 0x04, 0x00,
	0x36, 0xc2, 0xc1, 0x46, 0x36, 0xc6, 0x92, 0x46, 0x84, 0x40, 0x11, 0x07,
	0x84, 0xc2, 0x94, 0x4b, 0xc1, 0x8e, 0x94, 0xcb, 0xd4, 0x47, 0x85, 0x8a,
	0xb1, 0xea, 0x92, 0x46, 0xba, 0x84, 0x91, 0x06, 0x36, 0xc2, 0xb2, 0x46,
	0xfd, 0x16, 0x36, 0xc6, 0xf9, 0xfe, 0x82, 0x46, 0xd4, 0xcb, 0x94, 0x4b,
	0x93, 0xe6, 0x06, 0x04, 0x94, 0xcb, 0xd4, 0x47, 0x85, 0x8a, 0x85, 0xee,
	0xd4, 0x47, 0xc1, 0x8a, 0x85, 0xce, 0xd8, 0x47, 0xb7, 0x06, 0xf3, 0xff,
	0xfd, 0x16, 0x13, 0x67, 0x07, 0x01, 0xd8, 0xc7, 0x98, 0x4b, 0x21, 0x45,
	0x75, 0x8f, 0x98, 0xcb, 0x52, 0x44, 0xc2, 0x44, 0x61, 0x01, 0x02, 0x90,
	0x23, 0x20, 0xd3, 0x00, 0xf5, 0xb5, 0x23, 0xa0, 0x62, 0x00, 0x3d, 0xb7,
	0x23, 0xa0, 0x62, 0x00, 0x55, 0xb7, 0x23, 0xa0, 0x62, 0x00, 0xc1, 0xb7,
	0x82, 0x46, 0x93, 0x86, 0x06, 0x04, 0x36, 0xc0, 0xa2, 0x46, 0xfd, 0x16,
	0x36, 0xc4, 0xb5, 0xf2, 0x98, 0x4b, 0xb7, 0x06, 0xf3, 0xff, 0xfd, 0x16,
	0x75, 0x8f, 0x98, 0xcb, 0x41, 0x89, 0x05, 0xcd, 0x2e, 0xc0, 0x0d, 0x06,
	0x02, 0xc4, 0x09, 0x82, 0xb7, 0x07, 0x00, 0x20, 0x32, 0xc6, 0x93, 0x87,
	0x07, 0x20, 0x98, 0x43, 0x13, 0x86, 0x47, 0x00, 0xa2, 0x47, 0x82, 0x46,
	0x8a, 0x07, 0xb6, 0x97, 0x9c, 0x43, 0x63, 0x1c, 0xf7, 0x00, 0xa2, 0x47,
	0x85, 0x07, 0x3e, 0xc4, 0xa2, 0x46, 0x32, 0x47, 0xb2, 0x87, 0xe3, 0xe0,
	0xe6, 0xfe, 0x01, 0x45, 0x61, 0xb7, 0x41, 0x45, 0x51, 0xb7, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

const bootloaderLen = 512

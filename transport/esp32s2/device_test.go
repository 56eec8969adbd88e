package esp32s2

import (
	"bytes"
	"testing"
)

// fakeConn is a byteConn backed by two buffers: writes accumulate in sent,
// reads drain from a scripted response queue.
type fakeConn struct {
	sent      bytes.Buffer
	responses [][]byte
}

func (f *fakeConn) Write(p []byte) (int, error) {
	return f.sent.Write(p)
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return copy(p, r), nil
}

func (f *fakeConn) Close() error { return nil }

func okResponse(data uint32) []byte {
	resp := []byte{responseSync, statusOK, byte(data >> 24), byte(data >> 16), byte(data >> 8), byte(data)}
	return append(resp, checksum(resp))
}

func TestWriteReg32FramesRequestCorrectly(t *testing.T) {
	fc := &fakeConn{responses: [][]byte{okResponse(0)}}
	d := &Device{conn: fc}

	if err := d.WriteReg32(0x40022010, 0xdeadbeef); err != nil {
		t.Fatalf("WriteReg32: %v", err)
	}

	got := fc.sent.Bytes()
	if len(got) != 11 {
		t.Fatalf("request length = %d, want 11", len(got))
	}
	if got[0] != requestSync || got[1] != cmdWriteReg32 {
		t.Fatalf("request header = % x, want sync=%02x cmd=%02x", got[:2], requestSync, cmdWriteReg32)
	}
	wantAddr := []byte{0x40, 0x02, 0x20, 0x10}
	if !bytes.Equal(got[2:6], wantAddr) {
		t.Errorf("address field = % x, want % x", got[2:6], wantAddr)
	}
	wantData := []byte{0xde, 0xad, 0xbe, 0xef}
	if !bytes.Equal(got[6:10], wantData) {
		t.Errorf("data field = % x, want % x", got[6:10], wantData)
	}
	if got[10] != checksum(got[:10]) {
		t.Errorf("trailing checksum = %02x, want %02x", got[10], checksum(got[:10]))
	}
}

func TestReadReg32ReturnsResponseData(t *testing.T) {
	fc := &fakeConn{responses: [][]byte{okResponse(0x12345678)}}
	d := &Device{conn: fc}

	v, err := d.ReadReg32(0x40022010)
	if err != nil {
		t.Fatalf("ReadReg32: %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("ReadReg32 = %08x, want 12345678", v)
	}
}

func TestReadReg32RejectsBadSync(t *testing.T) {
	fc := &fakeConn{responses: [][]byte{{0xff, statusOK, 0, 0, 0, 0, 0}}}
	d := &Device{conn: fc}

	if _, err := d.ReadReg32(0); err == nil {
		t.Fatal("expected an error for a bad response sync byte")
	}
}

func TestReadReg32RejectsChecksumMismatch(t *testing.T) {
	resp := okResponse(0x42)
	resp[len(resp)-1] ^= 0xff
	fc := &fakeConn{responses: [][]byte{resp}}
	d := &Device{conn: fc}

	if _, err := d.ReadReg32(0); err == nil {
		t.Fatal("expected an error for a checksum mismatch")
	}
}

func TestReadReg32PropagatesStatusError(t *testing.T) {
	resp := []byte{responseSync, 0x01, 0, 0, 0, 0}
	resp = append(resp, checksum(resp))
	fc := &fakeConn{responses: [][]byte{resp}}
	d := &Device{conn: fc}

	if _, err := d.ReadReg32(0); err == nil {
		t.Fatal("expected an error for a non-OK status byte")
	}
}

func TestControl3v3AndControl5vEncodeOnOffInDataField(t *testing.T) {
	fc := &fakeConn{responses: [][]byte{okResponse(0), okResponse(0)}}
	d := &Device{conn: fc}

	if err := d.Control3v3(true); err != nil {
		t.Fatalf("Control3v3: %v", err)
	}
	if err := d.Control5v(false); err != nil {
		t.Fatalf("Control5v: %v", err)
	}

	got := fc.sent.Bytes()
	first := got[:11]
	second := got[11:22]
	if first[1] != cmdControl3v3 {
		t.Errorf("first command = %02x, want %02x", first[1], cmdControl3v3)
	}
	if !bytes.Equal(first[6:10], []byte{0, 0, 0, 1}) {
		t.Errorf("Control3v3(true) data field = % x, want 00 00 00 01", first[6:10])
	}
	if second[1] != cmdControl5v {
		t.Errorf("second command = %02x, want %02x", second[1], cmdControl5v)
	}
	if !bytes.Equal(second[6:10], []byte{0, 0, 0, 0}) {
		t.Errorf("Control5v(false) data field = % x, want 00 00 00 00", second[6:10])
	}
}

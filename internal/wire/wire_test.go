package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncoderDecoder(t *testing.T) {
	e := NewEncoderWithCap(32)
	e.WriteByte(0x42)
	e.WriteBool(true)
	e.WriteUint16(0x1234)
	e.WriteUint32(0xDEADBEEF)
	e.WriteInt32(-7)
	e.WriteFloat32(1.5)
	e.WriteCString("maps/alpine.map")
	e.WriteBytes([]byte{1, 2, 3})

	d := NewDecoder(e.Bytes())

	b, err := d.ReadByte()
	if err != nil || b != 0x42 {
		t.Errorf("ReadByte() = %x, %v; want 0x42, nil", b, err)
	}
	bl, err := d.ReadBool()
	if err != nil || !bl {
		t.Errorf("ReadBool() = %v, %v; want true, nil", bl, err)
	}
	u16, err := d.ReadUint16()
	if err != nil || u16 != 0x1234 {
		t.Errorf("ReadUint16() = %x, %v; want 0x1234, nil", u16, err)
	}
	u32, err := d.ReadUint32()
	if err != nil || u32 != 0xDEADBEEF {
		t.Errorf("ReadUint32() = %x, %v; want 0xDEADBEEF, nil", u32, err)
	}
	i32, err := d.ReadInt32()
	if err != nil || i32 != -7 {
		t.Errorf("ReadInt32() = %d, %v; want -7, nil", i32, err)
	}
	f32, err := d.ReadFloat32()
	if err != nil || f32 != 1.5 {
		t.Errorf("ReadFloat32() = %v, %v; want 1.5, nil", f32, err)
	}
	s, err := d.ReadCString(64)
	if err != nil || s != "maps/alpine.map" {
		t.Errorf("ReadCString() = %q, %v", s, err)
	}
	raw, err := d.ReadBytes(3)
	if err != nil || !bytes.Equal(raw, []byte{1, 2, 3}) {
		t.Errorf("ReadBytes(3) = %v, %v", raw, err)
	}
	if !d.EOF() {
		t.Errorf("expected EOF, %d bytes remaining", d.Remaining())
	}
}

func TestLittleEndianLayout(t *testing.T) {
	e := NewEncoder(nil)
	e.WriteUint16(0x0102)
	e.WriteUint32(0x03040506)

	want := []byte{0x02, 0x01, 0x06, 0x05, 0x04, 0x03}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("layout = % x, want % x", e.Bytes(), want)
	}
}

func TestDecoderShortReads(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(d *Decoder) error
	}{
		{"byte", nil, func(d *Decoder) error { _, err := d.ReadByte(); return err }},
		{"uint16", []byte{1}, func(d *Decoder) error { _, err := d.ReadUint16(); return err }},
		{"uint32", []byte{1, 2, 3}, func(d *Decoder) error { _, err := d.ReadUint32(); return err }},
		{"bytes", []byte{1, 2}, func(d *Decoder) error { _, err := d.ReadBytes(3); return err }},
		{"negative bytes", []byte{1, 2}, func(d *Decoder) error { _, err := d.ReadBytes(-1); return err }},
		{"cstring", []byte("abc"), func(d *Decoder) error { _, err := d.ReadCString(16); return err }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(tc.data)
			if err := tc.read(d); !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
			}
			if d.Position() != 0 {
				t.Errorf("position advanced to %d on failed read", d.Position())
			}
		})
	}
}

func TestReadCStringLimit(t *testing.T) {
	d := NewDecoder([]byte("abcdefgh\x00"))
	if _, err := d.ReadCString(4); !errors.Is(err, ErrUnterminated) {
		t.Fatalf("err = %v, want ErrUnterminated", err)
	}

	d = NewDecoder([]byte("abcd\x00rest"))
	s, err := d.ReadCString(4)
	if err != nil || s != "abcd" {
		t.Fatalf("ReadCString(4) = %q, %v", s, err)
	}
	if d.Remaining() != 4 {
		t.Errorf("Remaining() = %d, want 4", d.Remaining())
	}
}

func TestReadBytesCopies(t *testing.T) {
	src := []byte{9, 8, 7}
	d := NewDecoder(src)
	got, err := d.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	src[0] = 0
	if got[0] != 9 {
		t.Errorf("ReadBytes result aliases the input buffer")
	}
}

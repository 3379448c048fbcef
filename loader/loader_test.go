package loader

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadPRG(t *testing.T) {
	prg, err := ReadPRG([]byte{0x01, 0x08, 0x00, 0x00, 0x9e})
	if err != nil {
		t.Fatal(err)
	}
	if prg.LoadAddr != 0x0801 {
		t.Errorf("load address $%04X, want $0801", prg.LoadAddr)
	}
	if len(prg.Data) != 3 {
		t.Errorf("payload %d bytes, want 3", len(prg.Data))
	}
}

func TestReadPRGTruncated(t *testing.T) {
	_, err := ReadPRG([]byte{0x01})
	if !errors.Is(err, ErrImage) {
		t.Errorf("error %v, want ErrImage", err)
	}
}

func TestReadP00(t *testing.T) {
	buf := make([]byte, 26+4)
	copy(buf, "C64File")
	copy(buf[8:], "TESTPROG")
	buf[26] = 0x01
	buf[27] = 0x08
	buf[28] = 0xa9
	buf[29] = 0x00

	prg, err := ReadP00(buf)
	if err != nil {
		t.Fatal(err)
	}
	if prg.LoadAddr != 0x0801 || len(prg.Data) != 2 {
		t.Errorf("parsed load=$%04X size=%d", prg.LoadAddr, len(prg.Data))
	}
}

func TestReadP00BadMagic(t *testing.T) {
	buf := make([]byte, 30)
	copy(buf, "C64Fool")
	if _, err := ReadP00(buf); !errors.Is(err, ErrImage) {
		t.Errorf("error %v, want ErrImage", err)
	}
}

func buildCRT(t *testing.T, hwType uint16, chips ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("C64 CARTRIDGE   ")
	buf.Write([]byte{0, 0, 0, 0x40}) // header length
	buf.Write([]byte{1, 0})          // version
	buf.Write([]byte{byte(hwType >> 8), byte(hwType)})
	buf.Write([]byte{0, 0}) // exrom, game active
	buf.Write(make([]byte, 6))
	name := make([]byte, 32)
	copy(name, "TEST")
	buf.Write(name)
	for _, chip := range chips {
		buf.Write(chip)
	}
	return buf.Bytes()
}

func buildChip(bank uint16, loadAddr uint16, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("CHIP")
	total := uint32(0x10 + len(data))
	buf.Write([]byte{byte(total >> 24), byte(total >> 16), byte(total >> 8), byte(total)})
	buf.Write([]byte{0, 0}) // chip type ROM
	buf.Write([]byte{byte(bank >> 8), byte(bank)})
	buf.Write([]byte{byte(loadAddr >> 8), byte(loadAddr)})
	size := uint16(len(data))
	buf.Write([]byte{byte(size >> 8), byte(size)})
	buf.Write(data)
	return buf.Bytes()
}

func TestReadCRT(t *testing.T) {
	rom := make([]byte, 0x2000)
	rom[0] = 0x42
	img, err := ReadCRT(buildCRT(t, 0, buildChip(0, 0x8000, rom)))
	if err != nil {
		t.Fatal(err)
	}
	cart := img.Cart
	if len(cart.Banks) != 1 {
		t.Fatalf("%d banks, want 1", len(cart.Banks))
	}
	if cart.Banks[0].Offset != 0x8000 || cart.Banks[0].Data[0] != 0x42 {
		t.Error("chip packet parsed wrong")
	}
	if cart.Exrom || cart.Game {
		t.Error("line levels parsed wrong")
	}
}

func TestReadCRTUnsupportedHwType(t *testing.T) {
	_, err := ReadCRT(buildCRT(t, 5, buildChip(0, 0x8000, make([]byte, 0x2000))))
	if !errors.Is(err, ErrMount) {
		t.Errorf("error %v, want ErrMount", err)
	}
}

func TestReadCRTTruncatedChip(t *testing.T) {
	chip := buildChip(0, 0x8000, make([]byte, 0x100))
	img := buildCRT(t, 0, chip[:len(chip)-10])
	if _, err := ReadCRT(img); !errors.Is(err, ErrImage) {
		t.Errorf("error %v, want ErrImage", err)
	}
}

func buildTAP(version uint8, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("C64-TAPE-RAW")
	buf.WriteByte(version)
	buf.Write([]byte{0, 0, 0})
	n := uint32(len(payload))
	buf.Write([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)})
	buf.Write(payload)
	return buf.Bytes()
}

func TestReadTAPv0(t *testing.T) {
	tap, err := ReadTAP(buildTAP(0, []byte{0x2f, 0x42, 0x00, 0x10}))
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0x2f * 8, 0x42 * 8, 256 * 8, 0x10 * 8}
	if len(tap.Pulses) != len(want) {
		t.Fatalf("%d pulses, want %d", len(tap.Pulses), len(want))
	}
	for i := range want {
		if tap.Pulses[i] != want[i] {
			t.Errorf("pulse %d = %d, want %d", i, tap.Pulses[i], want[i])
		}
	}
}

func TestReadTAPv1LongPulse(t *testing.T) {
	tap, err := ReadTAP(buildTAP(1, []byte{0x10, 0x00, 0x56, 0x34, 0x12}))
	if err != nil {
		t.Fatal(err)
	}
	if len(tap.Pulses) != 2 {
		t.Fatalf("%d pulses, want 2", len(tap.Pulses))
	}
	if tap.Pulses[1] != 0x123456 {
		t.Errorf("long pulse = %06X, want 123456", tap.Pulses[1])
	}
}

func TestTAPReadPulseSequence(t *testing.T) {
	tap, err := ReadTAP(buildTAP(0, []byte{0x10, 0x20}))
	if err != nil {
		t.Fatal(err)
	}
	p1, ok1 := tap.ReadPulse()
	p2, ok2 := tap.ReadPulse()
	_, ok3 := tap.ReadPulse()
	if !ok1 || !ok2 || ok3 {
		t.Error("pulse stream length wrong")
	}
	if p1 != 0x80 || p2 != 0x100 {
		t.Errorf("pulses %d %d", p1, p2)
	}
	tap.Rewind()
	if p, ok := tap.ReadPulse(); !ok || p != 0x80 {
		t.Error("rewind did not restart the stream")
	}
}

func TestReadROMSizeMismatch(t *testing.T) {
	_, err := ReadROM(bytes.NewReader(make([]byte, 0x1000)), 0x2000)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("error %v, want ErrConfig", err)
	}
}

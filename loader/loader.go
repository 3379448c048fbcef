// Package loader parses the image formats the emulator can mount: PRG and
// P00 program files, raw binaries, CRT cartridges and TAP tapes, plus the
// system ROM images. Parsing is fallible at machine init only; mounted
// images are plain byte buffers with a typed target.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw"
)

// Error taxonomy of the core surface. Wrap with context, test with
// errors.Is.
var (
	ErrConfig = errors.New("invalid configuration")
	ErrImage  = errors.New("malformed image")
	ErrMount  = errors.New("unsupported mount")
)

// Image is anything that can be attached to a machine.
type Image interface {
	Mount(c64 *hw.C64) error
	Unmount(c64 *hw.C64)
}

// Open reads and parses an image file, dispatching on its extension.
func Open(path string) (Image, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImage, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".prg":
		return ReadPRG(buf)
	case ".p00":
		return ReadP00(buf)
	case ".crt":
		return ReadCRT(buf)
	case ".tap":
		return ReadTAP(buf)
	case ".bin":
		return nil, fmt.Errorf("%w: bin images need a load address, use ReadBIN", ErrImage)
	default:
		return nil, fmt.Errorf("%w: unknown image type %q", ErrImage, filepath.Ext(path))
	}
}

/* PRG */

// PRG is a program image: a little-endian load address followed by the
// payload, copied verbatim into RAM.
type PRG struct {
	LoadAddr uint16
	Data     []uint8
}

func ReadPRG(buf []byte) (*PRG, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: prg shorter than its load address", ErrImage)
	}
	prg := &PRG{
		LoadAddr: uint16(buf[0]) | uint16(buf[1])<<8,
		Data:     buf[2:],
	}
	log.ModLoader.InfoZ("prg parsed").
		Hex16("load", prg.LoadAddr).
		Int("size", len(prg.Data)).
		End()
	return prg, nil
}

func (p *PRG) Mount(c64 *hw.C64) error {
	c64.Load(p.Data, p.LoadAddr)
	return nil
}

func (p *PRG) Unmount(c64 *hw.C64) {}

/* BIN */

// BINImage is a raw memory image loaded at a caller-provided offset.
type BINImage struct {
	Offset uint16
	Data   []uint8
}

func ReadBIN(buf []byte, offset uint16) (*BINImage, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty bin image", ErrImage)
	}
	return &BINImage{Offset: offset, Data: buf}, nil
}

func (b *BINImage) Mount(c64 *hw.C64) error {
	c64.Load(b.Data, b.Offset)
	return nil
}

func (b *BINImage) Unmount(c64 *hw.C64) {}

/* P00 */

const p00Magic = "C64File"

// ReadP00 parses the 26-byte PC64 header and the PRG-style payload after
// it.
func ReadP00(buf []byte) (*PRG, error) {
	if len(buf) < 26+2 {
		return nil, fmt.Errorf("%w: p00 truncated header", ErrImage)
	}
	if string(buf[:7]) != p00Magic {
		return nil, fmt.Errorf("%w: bad p00 signature", ErrImage)
	}
	return ReadPRG(buf[26:])
}

/* CRT */

const (
	crtMagic     = "C64 CARTRIDGE   "
	crtChipMagic = "CHIP"
)

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// CRTImage wraps a parsed cartridge for mounting on the expansion port.
type CRTImage struct {
	Cart *hw.Cartridge
}

// Supported generic hardware types.
const (
	hwTypeNormal = 0
)

func ReadCRT(buf []byte) (*CRTImage, error) {
	if len(buf) < 0x40 || string(buf[:16]) != crtMagic {
		return nil, fmt.Errorf("%w: bad crt signature", ErrImage)
	}
	headerLen := be32(buf[16:])
	if headerLen < 0x40 || uint32(len(buf)) < headerLen {
		return nil, fmt.Errorf("%w: crt truncated header", ErrImage)
	}
	hwType := be16(buf[22:])
	if hwType != hwTypeNormal {
		return nil, fmt.Errorf("%w: cartridge hw type %d", ErrMount, hwType)
	}
	cart := &hw.Cartridge{
		HwType: uint8(hwType),
		Exrom:  buf[24] != 0,
		Game:   buf[25] != 0,
	}

	off := headerLen
	for off < uint32(len(buf)) {
		if uint32(len(buf))-off < 0x10 {
			return nil, fmt.Errorf("%w: crt truncated chip packet", ErrImage)
		}
		chip := buf[off:]
		if string(chip[:4]) != crtChipMagic {
			return nil, fmt.Errorf("%w: bad chip signature at 0x%x", ErrImage, off)
		}
		packetLen := be32(chip[4:])
		bank := be16(chip[10:])
		loadAddr := be16(chip[12:])
		imageSize := be16(chip[14:])
		if packetLen < 0x10 || uint32(imageSize)+0x10 > packetLen ||
			off+packetLen > uint32(len(buf)) {
			return nil, fmt.Errorf("%w: crt truncated chip data", ErrImage)
		}
		cart.Banks = append(cart.Banks, hw.CartBank{
			Number: uint8(bank),
			Offset: loadAddr,
			Data:   chip[0x10 : 0x10+uint32(imageSize)],
		})
		off += packetLen
	}
	if len(cart.Banks) == 0 {
		return nil, fmt.Errorf("%w: crt has no chip packets", ErrImage)
	}
	log.ModLoader.InfoZ("crt parsed").
		Int("banks", len(cart.Banks)).
		Bool("exrom", cart.Exrom).
		Bool("game", cart.Game).
		End()
	return &CRTImage{Cart: cart}, nil
}

func (c *CRTImage) Mount(c64 *hw.C64) error {
	c64.Exp.Attach(c.Cart)
	return nil
}

func (c *CRTImage) Unmount(c64 *hw.C64) {
	c64.Exp.Detach()
}

/* TAP */

const tapMagic = "C64-TAPE-RAW"

// TAPImage is a pulse stream for the datassette. It implements hw.Tape.
type TAPImage struct {
	Version uint8
	Pulses  []uint32

	pos int
}

func ReadTAP(buf []byte) (*TAPImage, error) {
	if len(buf) < 0x14 || string(buf[:12]) != tapMagic {
		return nil, fmt.Errorf("%w: bad tap signature", ErrImage)
	}
	version := buf[12]
	if version > 1 {
		return nil, fmt.Errorf("%w: tap version %d", ErrImage, version)
	}
	size := uint32(buf[16]) | uint32(buf[17])<<8 | uint32(buf[18])<<16 | uint32(buf[19])<<24
	data := buf[0x14:]
	if uint32(len(data)) < size {
		return nil, fmt.Errorf("%w: tap truncated payload", ErrImage)
	}
	data = data[:size]

	tap := &TAPImage{Version: version}
	for i := 0; i < len(data); {
		b := data[i]
		i++
		if b != 0 {
			tap.Pulses = append(tap.Pulses, uint32(b)*8)
			continue
		}
		switch version {
		case 0:
			// Overflow marker: longest representable pulse.
			tap.Pulses = append(tap.Pulses, 256*8)
		case 1:
			if len(data)-i < 3 {
				return nil, fmt.Errorf("%w: tap truncated long pulse", ErrImage)
			}
			cycles := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16
			tap.Pulses = append(tap.Pulses, cycles)
			i += 3
		}
	}
	log.ModLoader.InfoZ("tap parsed").
		Uint8("version", version).
		Int("pulses", len(tap.Pulses)).
		End()
	return tap, nil
}

func (t *TAPImage) Mount(c64 *hw.C64) error {
	c64.Datassette.Attach(t)
	return nil
}

func (t *TAPImage) Unmount(c64 *hw.C64) {
	c64.Datassette.Detach()
}

// ReadPulse implements hw.Tape.
func (t *TAPImage) ReadPulse() (uint32, bool) {
	if t.pos >= len(t.Pulses) {
		return 0, false
	}
	p := t.Pulses[t.pos]
	t.pos++
	return p, true
}

// Rewind implements hw.Tape.
func (t *TAPImage) Rewind() { t.pos = 0 }

/* system ROMs */

// ROM sizes of the stock board.
const (
	BasicROMSize   = 0x2000
	KernalROMSize  = 0x2000
	ChargenROMSize = 0x1000
)

// ReadROM validates and returns a system ROM image of the expected size.
func ReadROM(r io.Reader, want int) ([]uint8, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if len(buf) != want {
		return nil, fmt.Errorf("%w: rom size %d, want %d", ErrConfig, len(buf), want)
	}
	return buf, nil
}

// ReadROMFile loads a system ROM from disk.
func ReadROMFile(path string, want int) ([]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	defer f.Close()
	return ReadROM(f, want)
}

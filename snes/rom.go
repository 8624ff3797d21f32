package snes

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLoROM    = errors.New("snes: ROM is not LoROM")
	ErrBadChecksum = errors.New("snes: ROM checksum mismatch")
	ErrTooSmall    = errors.New("snes: image too small to hold a LoROM header")
)

const (
	// HeaderOffset is where the LoROM header starts in the ROM image ($00:FFB0).
	HeaderOffset = uint32(0x007FB0)
	headerSize   = 0x30

	MapModeLoROM     = 0x20
	MapModeFastLoROM = 0x30
	// TitleSize is the length of the space padded title field.
	TitleSize = 21
)

// ROM is a LoROM cartridge image together with its decoded internal header.
type ROM struct {
	Contents []byte

	HeaderOffset uint32
	Header       Header
}

// Header is the internal cartridge header at $00:FFB0. Fields are little endian.
type Header struct {
	MakerCode          uint16
	GameCode           uint32
	Fixed1             [7]byte
	ExpansionRAMSize   byte
	SpecialVersion     byte
	CartridgeSubType   byte
	Title              [TitleSize]byte
	MapMode            byte
	CartridgeType      byte
	ROMSize            byte
	RAMSize            byte
	DestinationCode    byte
	Fixed2             byte
	MaskROMVersion     byte
	ComplementCheckSum uint16
	CheckSum           uint16
}

// NewROM wraps an existing image and decodes its header. contents is not copied.
func NewROM(contents []byte) (*ROM, error) {
	if len(contents) < 0x8000 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, len(contents))
	}

	r := &ROM{
		Contents:     contents,
		HeaderOffset: HeaderOffset,
	}
	if err := r.ReadHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewLoROM creates an empty LoROM image of at least size bytes, rounded up to a power of two,
// with a header carrying title.
func NewLoROM(size int, title string) (r *ROM, err error) {
	code := byte(5)
	for 1024<<code < size {
		code++
	}

	r = &ROM{
		Contents:     make([]byte, 1024<<code),
		HeaderOffset: HeaderOffset,
	}
	r.Header.MapMode = MapModeLoROM
	r.Header.ROMSize = code
	r.Header.Fixed2 = 0x33
	r.SetTitle(title)

	err = r.UpdateChecksum()
	return
}

// ReadHeader decodes Header from the image bytes at HeaderOffset.
func (r *ROM) ReadHeader() error {
	raw := r.Contents[r.HeaderOffset : r.HeaderOffset+headerSize]
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &r.Header); err != nil {
		return fmt.Errorf("snes: reading header: %w", err)
	}
	return nil
}

// WriteHeader encodes Header back into the image bytes.
func (r *ROM) WriteHeader() error {
	var b bytes.Buffer
	b.Grow(headerSize)
	if err := binary.Write(&b, binary.LittleEndian, &r.Header); err != nil {
		return fmt.Errorf("snes: writing header: %w", err)
	}
	copy(r.Contents[r.HeaderOffset:r.HeaderOffset+headerSize], b.Bytes())
	return nil
}

func (r *ROM) ROMSize() uint32 {
	return 1024 << r.Header.ROMSize
}

func (r *ROM) RAMSize() uint32 {
	return 1024 << r.Header.RAMSize
}

func (r *ROM) Title() string {
	return strings.TrimRight(string(r.Header.Title[:]), " \x00")
}

func (r *ROM) SetTitle(title string) {
	for i := range r.Header.Title {
		r.Header.Title[i] = ' '
	}
	copy(r.Header.Title[:], title)
}

func (r *ROM) IsLoROM() bool {
	return r.Header.MapMode&0xEF == MapModeLoROM
}

// Checksum sums every byte of Contents as if the checksum fields held $0000/$FFFF.
func (r *ROM) Checksum() uint16 {
	sum := uint16(0)
	for _, v := range r.Contents {
		sum += uint16(v)
	}

	// replace the stored checksum bytes with their neutral values:
	o := r.HeaderOffset + 0x2C
	for i := uint32(0); i < 4; i++ {
		sum -= uint16(r.Contents[o+i])
	}
	sum += 0xFF + 0xFF
	return sum
}

// UpdateChecksum recomputes the checksum over Contents and writes the header.
func (r *ROM) UpdateChecksum() error {
	if err := r.WriteHeader(); err != nil {
		return err
	}

	sum := r.Checksum()
	r.Header.CheckSum = sum
	r.Header.ComplementCheckSum = ^sum
	return r.WriteHeader()
}

// Validate checks the image is a LoROM whose stored checksum matches its contents.
func (r *ROM) Validate() error {
	if !r.IsLoROM() {
		return fmt.Errorf("%w: map mode $%02x", ErrNotLoROM, r.Header.MapMode)
	}
	if r.Header.CheckSum^r.Header.ComplementCheckSum != 0xFFFF {
		return fmt.Errorf("%w: checksum $%04x complement $%04x", ErrBadChecksum, r.Header.CheckSum, r.Header.ComplementCheckSum)
	}
	if sum := r.Checksum(); sum != r.Header.CheckSum {
		return fmt.Errorf("%w: computed $%04x stored $%04x", ErrBadChecksum, sum, r.Header.CheckSum)
	}
	return nil
}

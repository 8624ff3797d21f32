package transfer

import (
	"errors"
	"fmt"
	"github.com/alttpo/snes/mapping/lorom"
)

var ErrNotROMAddress = errors.New("transfer: not a LoROM ROM address")

// Address is a 24-bit LoROM bus address of data in the host ROM: bank in bits 16-23 and an
// offset in $8000-$FFFF. Bank $80-$FF addresses stay in the $80-$FF mirror when advanced;
// $00-$7D addresses move to the $80-$FF mirror rather than advance into WRAM at $7E-$7F.
type Address uint32

// NewAddress validates a bus address as a LoROM ROM address.
func NewAddress(busAddr uint32) (Address, error) {
	busAddr &= 0xFF_FFFF
	if busAddr&0x8000 == 0 {
		return 0, fmt.Errorf("%w: $%06x", ErrNotROMAddress, busAddr)
	}
	if bank := busAddr >> 16; bank == 0x7E || bank == 0x7F {
		// WRAM
		return 0, fmt.Errorf("%w: $%06x", ErrNotROMAddress, busAddr)
	}
	if _, err := lorom.BusAddressToPak(busAddr); err != nil {
		return 0, fmt.Errorf("%w: $%06x: %v", ErrNotROMAddress, busAddr, err)
	}
	return Address(busAddr), nil
}

// AddressFromPak returns the bus address of a linear ROM offset in the $80-$FF mirror.
func AddressFromPak(pak uint32) Address {
	return Address(0x80_0000).Add(pak)
}

func (a Address) Bank() uint8 { return uint8(a >> 16) }

func (a Address) Offset() uint16 { return uint16(a) }

// Pak returns the linear ROM offset of a.
func (a Address) Pak() uint32 {
	return uint32(a.Bank()&0x7F)<<15 | uint32(a.Offset()&0x7FFF)
}

// Add advances a by n bytes. Passing offset $FFFF continues at offset $8000 of the next bank;
// this is the only place bank boundaries are handled.
func (a Address) Add(n uint32) Address {
	mirror := uint32(a) & 0x80_0000
	pak := a.Pak() + n
	bank := (pak >> 15) & 0x7F
	if bank >= 0x7E {
		// $7E-$7F is WRAM in the low mirror.
		mirror = 0x80_0000
	}
	return Address(mirror | bank<<16 | 0x8000 | pak&0x7FFF)
}

func (a Address) Next() Address { return a.Add(1) }

func (a Address) String() string {
	return fmt.Sprintf("$%02x:%04x", a.Bank(), a.Offset())
}

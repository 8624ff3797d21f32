package emulator

import (
	"fmt"
	"github.com/alttpo/snes/emulator/bus"
	"github.com/alttpo/snes/emulator/memory"
	"io"
	"tad/apu"
	"tad/util"
)

// System is the S-CPU side of a SNES without a CPU: a LoROM cartridge, WRAM and the APU I/O
// ports on one bus. The host code drives the bus directly.
type System struct {
	// emulated system:
	Bus *bus.Bus
	APU APUIO

	ROM  [0x20_0000]byte
	WRAM [0x20000]byte

	Logger io.Writer
}

// CreateEmulator builds the bus. APU.Ports must be set beforehand.
func (s *System) CreateEmulator() (err error) {
	if s.APU.Ports == nil {
		return fmt.Errorf("emulator: no APU attached")
	}
	if s.APU.Logger == nil {
		s.APU.Logger = s.Logger
	}

	// create primary A bus for SNES:
	s.Bus, err = bus.NewWithSizeHint(0x40*2 + 1 + 0x40*2 + 0x40*2)
	if err != nil {
		return
	}

	// map in ROM to Bus:
	for b := uint32(0); b < 0x40; b++ {
		halfBank := b << 15
		bank := b << 16
		err = s.Bus.Attach(
			memory.NewRAM(s.ROM[halfBank:halfBank+0x8000], bank|0x8000),
			"rom",
			bank|0x8000,
			bank|0xFFFF,
		)
		if err != nil {
			return
		}

		// mirror:
		err = s.Bus.Attach(
			memory.NewRAM(s.ROM[halfBank:halfBank+0x8000], (bank+0x80_0000)|0x8000),
			"rom",
			(bank+0x80_0000)|0x8000,
			(bank+0x80_0000)|0xFFFF,
		)
		if err != nil {
			return
		}
	}

	// WRAM:
	{
		err = s.Bus.Attach(
			memory.NewRAM(s.WRAM[0:0x20000], 0x7E0000),
			"wram",
			0x7E_0000,
			0x7F_FFFF,
		)
		if err != nil {
			return
		}

		// map in first $2000 of each system bank as a mirror of WRAM:
		for b := uint32(0); b < 0x40; b++ {
			for _, bank := range []uint32{b << 16, (b + 0x80) << 16} {
				err = s.Bus.Attach(
					memory.NewRAM(s.WRAM[0:0x2000], bank),
					"wram",
					bank,
					bank|0x1FFF,
				)
				if err != nil {
					return
				}
			}
		}
	}

	// APU I/O ports, mirrored through $2140-$217F:
	for b := uint32(0); b < 0x40; b++ {
		for _, bank := range []uint32{b << 16, (b + 0x80) << 16} {
			err = s.Bus.Attach(
				&s.APU,
				"apuio",
				bank|apu.BusAddress,
				bank|0x217F,
			)
			if err != nil {
				return
			}
		}
	}

	return
}

// LoadROM copies a LoROM image into the cartridge.
func (s *System) LoadROM(contents []byte) error {
	if len(contents) > len(s.ROM) {
		return fmt.Errorf("emulator: ROM is %d bytes; at most %d fit", len(contents), len(s.ROM))
	}
	copy(s.ROM[:], contents)
	return nil
}

// APUIO puts an apu.Ports behind the bus. Reads return what the coprocessor wrote and writes go
// to the coprocessor; the two directions never see each other.
type APUIO struct {
	Ports  apu.Ports
	Logger io.Writer
}

func (a *APUIO) Read(address uint32) byte {
	port := apu.Port(address & 3)
	value := a.Ports.ReadPort(port)
	util.Logf(a.Logger, "apuio[$%06x] -> $%02x", address, value)
	return value
}

func (a *APUIO) Write(address uint32, value byte) {
	port := apu.Port(address & 3)
	util.Logf(a.Logger, "apuio[$%06x] <- $%02x", address, value)
	a.Ports.WritePort(port, value)
}

func (a *APUIO) Shutdown() {
}

func (a *APUIO) Size() uint32 {
	return apu.PortCount
}

func (a *APUIO) Clear() {
}

func (a *APUIO) Dump(address uint32) []byte {
	return nil
}

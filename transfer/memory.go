package transfer

import "github.com/alttpo/snes/mapping/lorom"

// Memory is the host address space audio data is read from. *bus.Bus from the emulator
// satisfies it.
type Memory interface {
	EaRead(address uint32) uint8
}

// ROM is a LoROM image read through its bus addresses. Reads outside the image return 0.
type ROM []byte

func (r ROM) EaRead(address uint32) uint8 {
	pak, err := lorom.BusAddressToPak(address)
	if err != nil || pak >= uint32(len(r)) {
		return 0
	}
	return r[pak]
}

// Region is a run of Length bytes starting at Address in Memory.
type Region struct {
	Memory  Memory
	Address Address
	Length  int
}

// Bytes maps data as its own little ROM starting at $80:8000.
func Bytes(data []byte) Region {
	return Region{
		Memory:  ROM(data),
		Address: AddressFromPak(0),
		Length:  len(data),
	}
}

// Copy reads the whole region into a new slice.
func (r Region) Copy() []byte {
	b := make([]byte, r.Length)
	addr := r.Address
	for i := range b {
		b[i] = r.Memory.EaRead(uint32(addr))
		addr = addr.Next()
	}
	return b
}

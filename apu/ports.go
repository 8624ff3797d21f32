package apu

import "fmt"

// Port is one of the four byte-wide APU I/O registers ($2140-$2143 on the S-CPU bus).
// Each index exists once in each direction: a value written by the host is only visible to
// the coprocessor and a value read by the host is only ever written by the coprocessor.
type Port uint8

const (
	Port0 Port = iota
	Port1
	Port2
	Port3

	PortCount = 4
)

// BusAddress is the S-CPU bus address of Port0; the other ports follow it.
const BusAddress = 0x2140

func (p Port) String() string {
	return fmt.Sprintf("APUIO%d", uint8(p))
}

// Ports represents the host side of the four APU I/O registers.
// Reads return what the coprocessor last wrote; writes are seen by the coprocessor only.
// Implementations must not block beyond one bus access.
type Ports interface {
	ReadPort(port Port) uint8
	WritePort(port Port, value uint8)
}

// Package hwio reaches the APU I/O ports through an S-CPU bus.
package hwio

import "tad/apu"

// Bus is the part of an S-CPU bus needed to reach the ports; *bus.Bus satisfies it.
type Bus interface {
	EaRead(address uint32) uint8
	EaWrite(address uint32, value uint8)
}

// Ports implements apu.Ports with bus accesses to $2140-$2143 in Bank.
type Ports struct {
	Bus  Bus
	Bank uint8
}

func New(b Bus) *Ports {
	return &Ports{Bus: b}
}

func (p *Ports) address(port apu.Port) uint32 {
	return uint32(p.Bank)<<16 | apu.BusAddress | uint32(port&3)
}

func (p *Ports) ReadPort(port apu.Port) uint8 {
	return p.Bus.EaRead(p.address(port))
}

func (p *Ports) WritePort(port apu.Port, value uint8) {
	p.Bus.EaWrite(p.address(port), value)
}

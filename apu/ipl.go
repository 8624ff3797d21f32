package apu

import (
	"context"
	"fmt"
)

// IPL drives the S-SMP mask ROM boot loader: every byte is written together with its
// index on IPLIndexPort and the next byte is only sent once that index has been echoed.
type IPL struct {
	ports Ports

	started bool
	// next index expected by the IPL within the current block
	index uint8
}

func NewIPL(p Ports) *IPL {
	return &IPL{ports: p}
}

// WaitReady blocks until the IPL ROM presents its $AA $BB ready signature.
func (l *IPL) WaitReady(ctx context.Context) error {
	err := WaitFor(ctx, func() bool {
		return l.ports.ReadPort(IPLReadyPortL) == IPLReadyL && l.ports.ReadPort(IPLReadyPortH) == IPLReadyH
	})
	if err != nil {
		return fmt.Errorf("ipl: waiting for ready signature: %w", err)
	}
	l.started = false
	l.index = 0
	return nil
}

// kick returns a block command value the IPL cannot mistake for the next data index:
// at least two past it and never zero.
func (l *IPL) kick() uint8 {
	k := l.index + 2
	if k == 0 {
		k = 1
	}
	return k
}

func (l *IPL) command(ctx context.Context, addr uint16, transfer bool) error {
	p := l.ports
	p.WritePort(IPLAddressPort, uint8(addr))
	p.WritePort(IPLAddressPort+1, uint8(addr>>8))
	if transfer {
		p.WritePort(IPLDataPort, 1)
	} else {
		p.WritePort(IPLDataPort, 0)
	}

	k := uint8(IPLStart)
	if l.started {
		k = l.kick()
	}
	p.WritePort(IPLIndexPort, k)
	if err := WaitForEcho(ctx, p, IPLIndexPort, k); err != nil {
		return err
	}

	l.started = true
	l.index = 0
	return nil
}

// Upload copies data into audio RAM at addr, one echoed byte at a time.
func (l *IPL) Upload(ctx context.Context, addr uint16, data []byte) (err error) {
	if err = l.command(ctx, addr, true); err != nil {
		return fmt.Errorf("ipl: start block at $%04x: %w", addr, err)
	}

	p := l.ports
	for i, b := range data {
		p.WritePort(IPLDataPort, b)
		p.WritePort(IPLIndexPort, l.index)
		if err = WaitForEcho(ctx, p, IPLIndexPort, l.index); err != nil {
			return fmt.Errorf("ipl: byte %d of block at $%04x: %w", i, addr, err)
		}
		l.index++
	}

	return nil
}

// Execute makes the IPL jump to addr.
func (l *IPL) Execute(ctx context.Context, addr uint16) error {
	if err := l.command(ctx, addr, false); err != nil {
		return fmt.Errorf("ipl: execute $%04x: %w", addr, err)
	}
	return nil
}

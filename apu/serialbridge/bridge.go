// Package serialbridge reaches the APU I/O ports of real hardware through a USB serial
// bridge: a cartridge-side microcontroller that performs single port reads and writes on
// behalf of the host.
//
// Every request is a 3 byte frame {op, port, value}. 'W' writes value to the port; 'R' reads
// the port and is answered with exactly one byte.
package serialbridge

import (
	"errors"
	"fmt"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"io"
	"log"
	"strconv"
	"strings"
	"tad/apu"
	"time"
)

const (
	OpRead  = 'R'
	OpWrite = 'W'

	frameSize = 3

	// ReplyTimeout bounds how long a read waits for the bridge to answer.
	ReplyTimeout = 250 * time.Millisecond
)

// SerialNumber is the USB serial number reported by the bridge firmware.
const SerialNumber = "APUBRIDGE0001"

var (
	ErrNoBridgeFound = errors.New("serialbridge: no bridge found among serial ports")
	ErrBadPortName   = errors.New("serialbridge: malformed port name")
	ErrNoReply       = errors.New("serialbridge: bridge did not answer")
)

// BaudRates lists the rates Open tries, fastest first.
var BaudRates = []int{921600, 460800, 256000, 230400, 153600, 128000, 115200, 76800, 57600, 38400, 28800, 19200, 14400, 9600}

// Bridge implements apu.Ports over a serial connection. The first I/O error is kept: after it
// writes are dropped and reads return 0, so a session stalls instead of acting on garbage.
type Bridge struct {
	rw     io.ReadWriter
	closer io.Closer

	err error
	req [frameSize]byte
	rsp [1]byte
}

// New wraps an already open connection to a bridge.
func New(rw io.ReadWriter) *Bridge {
	b := &Bridge{rw: rw}
	if c, ok := rw.(io.Closer); ok {
		b.closer = c
	}
	return b
}

// DetectDevice returns the name of the first USB serial port that identifies as a bridge.
func DetectDevice() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("serialbridge: listing serial ports: %w", err)
	}
	return findBridge(ports)
}

func findBridge(ports []*enumerator.PortDetails) (string, error) {
	for _, p := range ports {
		if p.IsUSB && p.SerialNumber == SerialNumber {
			return p.Name, nil
		}
	}
	return "", ErrNoBridgeFound
}

// ParseName splits "port" or "port;baud". Without a baud the fastest rate is the ceiling.
func ParseName(name string) (port string, maxBaud int, err error) {
	port, baud, hasBaud := strings.Cut(name, ";")
	if !hasBaud {
		return port, BaudRates[0], nil
	}
	maxBaud, err = strconv.Atoi(baud)
	if err != nil || maxBaud <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrBadPortName, name)
	}
	return port, maxBaud, nil
}

// negotiate calls try with each rate no faster than maxBaud until one succeeds.
func negotiate(maxBaud int, try func(baud int) error) (int, error) {
	var errs error
	for _, baud := range BaudRates {
		if baud > maxBaud {
			continue
		}
		err := try(baud)
		if err == nil {
			return baud, nil
		}
		errs = errors.Join(errs, fmt.Errorf("%d baud: %w", baud, err))
	}
	if errs == nil {
		return 0, fmt.Errorf("serialbridge: no baud rate at or below %d", maxBaud)
	}
	return 0, fmt.Errorf("serialbridge: could not open port: %w", errs)
}

// Open connects to the bridge named "port" or "port;baud". An empty port name detects the
// bridge by its USB serial number.
func Open(name string) (*Bridge, error) {
	portName, maxBaud, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	if portName == "" {
		if portName, err = DetectDevice(); err != nil {
			return nil, err
		}
	}

	var f serial.Port
	baud, err := negotiate(maxBaud, func(baud int) (err error) {
		f, err = serial.Open(portName, &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit})
		return
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", portName, err)
	}
	log.Printf("serialbridge: %s: opened at %d baud\n", portName, baud)

	if err = f.SetReadTimeout(ReplyTimeout); err == nil {
		err = f.SetDTR(true)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("serialbridge: %s: configuring port: %w", portName, err)
	}
	return New(f), nil
}

// Close drops DTR so the firmware releases the ports, then closes the connection.
func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	if f, ok := b.closer.(serial.Port); ok {
		_ = f.SetDTR(false)
	}
	if err := b.closer.Close(); err != nil {
		return fmt.Errorf("serialbridge: closing: %w", err)
	}
	return nil
}

// Err returns the I/O error that stopped the bridge, if any.
func (b *Bridge) Err() error { return b.err }

func (b *Bridge) fail(err error) {
	b.err = err
	log.Printf("serialbridge: %v\n", err)
}

func (b *Bridge) ReadPort(port apu.Port) uint8 {
	v, err := b.exchange(OpRead, port, 0)
	if err != nil {
		b.fail(fmt.Errorf("read %v: %w", port, err))
	}
	return v
}

func (b *Bridge) WritePort(port apu.Port, value uint8) {
	if _, err := b.exchange(OpWrite, port, value); err != nil {
		b.fail(fmt.Errorf("write %v: %w", port, err))
	}
}

// exchange sends one frame and, for reads, waits for the single reply byte.
func (b *Bridge) exchange(op byte, port apu.Port, value uint8) (uint8, error) {
	if b.err != nil {
		return 0, nil
	}

	b.req = [frameSize]byte{op, uint8(port & 3), value}
	for out := b.req[:]; len(out) > 0; {
		n, err := b.rw.Write(out)
		if err != nil {
			return 0, err
		}
		out = out[n:]
	}
	if op != OpRead {
		return 0, nil
	}

	// a port with a read timeout reports expiry as an empty read
	switch n, err := b.rw.Read(b.rsp[:]); {
	case err != nil:
		return 0, err
	case n == 0:
		return 0, ErrNoReply
	}
	return b.rsp[0], nil
}

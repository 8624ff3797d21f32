// Package wsbridge carries APU port accesses over a websocket as JSON commands. A Server fronts
// any apu.Ports (a real bridge, an emulator or the mock device) and a Client implements
// apu.Ports against it, so an audio session can drive a device attached to another machine.
package wsbridge

import (
	"fmt"
	"strconv"
	"tad/apu"
)

const (
	OpName  = "Name"
	OpRead  = "Read"
	OpWrite = "Write"

	SpaceAPU = "APU"
)

// Command is one request. Read takes the port number and answers with its value; Write takes
// the port number and the value. Numbers are hexadecimal strings.
type Command struct {
	Opcode   string   `json:"Opcode"`
	Space    string   `json:"Space"`
	Operands []string `json:"Operands"`
}

type Result struct {
	Results []string `json:"Results"`
}

func readCommand(port apu.Port) Command {
	return Command{
		Opcode:   OpRead,
		Space:    SpaceAPU,
		Operands: []string{formatHex(uint8(port))},
	}
}

func writeCommand(port apu.Port, value uint8) Command {
	return Command{
		Opcode:   OpWrite,
		Space:    SpaceAPU,
		Operands: []string{formatHex(uint8(port)), formatHex(value)},
	}
}

func formatHex(v uint8) string {
	return strconv.FormatUint(uint64(v), 16)
}

func parseHex(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func parsePort(s string) (apu.Port, error) {
	v, err := parseHex(s)
	if err != nil {
		return 0, err
	}
	if v >= apu.PortCount {
		return 0, fmt.Errorf("port %d out of range", v)
	}
	return apu.Port(v), nil
}

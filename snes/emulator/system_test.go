package emulator

import (
	"testing"

	"tad/apu"
)

// latchPorts remembers the last value written to each port and returns value+1 on reads.
type latchPorts struct {
	written [apu.PortCount]uint8
}

func (p *latchPorts) ReadPort(port apu.Port) uint8 { return p.written[port] + 1 }

func (p *latchPorts) WritePort(port apu.Port, value uint8) { p.written[port] = value }

func TestSystem_CreateEmulator(t *testing.T) {
	// verify our ROM, WRAM, APU mappings in the bus:
	tests := []struct {
		name   string
		verify func(t *testing.T, q *System, p *latchPorts)
	}{
		// ROM:
		{
			name: "ROM bank 00",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.ROM[0x0000] = 0xFE
				if actual, expected := q.Bus.EaRead(0x00_8000), uint8(0xFE); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
				if actual, expected := q.Bus.EaRead(0x80_8000), uint8(0xFE); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		{
			name: "ROM bank 01",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.ROM[0x8000] = 0xFD
				if actual, expected := q.Bus.EaRead(0x01_8000), uint8(0xFD); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
				if actual, expected := q.Bus.EaRead(0x81_8000), uint8(0xFD); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		{
			name: "ROM bank 3F",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.ROM[0x1F_FFFF] = 0xFC
				if actual, expected := q.Bus.EaRead(0xBF_FFFF), uint8(0xFC); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		// WRAM:
		{
			name: "WRAM $7E:0000",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.WRAM[0x0000] = 0xFA
				if actual, expected := q.Bus.EaRead(0x7E_0000), uint8(0xFA); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
				if actual, expected := q.Bus.EaRead(0x80_0000), uint8(0xFA); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		{
			name: "WRAM $7F:FFFF",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.WRAM[0x1FFFF] = 0xF4
				if actual, expected := q.Bus.EaRead(0x7F_FFFF), uint8(0xF4); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		// APU:
		{
			name: "APUIO2 write",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.Bus.EaWrite(0x00_2142, 0x55)
				if actual, expected := p.written[apu.Port2], uint8(0x55); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		{
			name: "APUIO3 read",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				p.written[apu.Port3] = 0x40
				if actual, expected := q.Bus.EaRead(0x00_2143), uint8(0x41); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		{
			name: "APUIO mirrors",
			verify: func(t *testing.T, q *System, p *latchPorts) {
				q.Bus.EaWrite(0x80_217D, 0x12)
				if actual, expected := p.written[apu.Port1], uint8(0x12); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
				if actual, expected := q.Bus.EaRead(0x3F_2145), uint8(0x13); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &latchPorts{}
			q := &System{APU: APUIO{Ports: p}}
			if err := q.CreateEmulator(); err != nil {
				t.Fatal(err)
			}
			tt.verify(t, q, p)
		})
	}
}

func TestSystem_CreateEmulatorWithoutAPU(t *testing.T) {
	q := &System{}
	if err := q.CreateEmulator(); err == nil {
		t.Fatal("expected an error without APU ports")
	}
}

func TestSystem_LoadROM(t *testing.T) {
	q := &System{APU: APUIO{Ports: &latchPorts{}}}
	if err := q.CreateEmulator(); err != nil {
		t.Fatal(err)
	}

	if err := q.LoadROM([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if actual, expected := q.Bus.EaRead(0x80_8002), uint8(3); actual != expected {
		t.Errorf("LoadROM failed, actual = %v, expected = %v", actual, expected)
	}

	if err := q.LoadROM(make([]byte, len(q.ROM)+1)); err == nil {
		t.Error("LoadROM accepted an oversized image")
	}
}

package mock

import (
	"io"
	"tad/apu"
	"tad/util"
)

type phase int

const (
	phaseIPLStart phase = iota
	phaseIPLData
	phaseLoaderReady
	phaseLoaderTransfer
	phaseDriver
)

func (p phase) String() string {
	switch p {
	case phaseIPLStart:
		return "ipl"
	case phaseIPLData:
		return "ipl-data"
	case phaseLoaderReady:
		return "loader-ready"
	case phaseLoaderTransfer:
		return "loader-transfer"
	case phaseDriver:
		return "driver"
	}
	return "unknown"
}

// Load is one data type received by the loader.
type Load struct {
	DataType apu.DataType
	Data     []byte
}

// Command is one command executed by the audio driver.
type Command struct {
	Value      uint8
	Command    uint8
	Parameter0 uint8
	Parameter1 uint8
}

// Device is a simulated S-SMP obeying the IPL, loader and audio driver port protocols.
// It runs only when the host reads a port, which makes every test deterministic.
type Device struct {
	// Latency is the number of host port reads that pass between two device runs.
	Latency int
	// Stalled stops the device from ever responding.
	Stalled bool
	// LoaderAddress is where the IPL must be told to execute to start the loader.
	LoaderAddress uint16

	Logger io.Writer

	ARAM [0x10000]byte

	// host -> device
	in [apu.PortCount]uint8
	// device -> host
	out   [apu.PortCount]uint8
	reads int

	phase phase

	iplAddr  uint16
	iplIndex uint8

	dataType apu.DataType
	lastSpin uint8
	buf      []byte

	lastCommand uint8

	// Loads lists every completed data type transfer in order.
	Loads []Load
	// Restarts counts loader restarts (switch-to-loader requests honoured).
	Restarts int
	// Commands lists every command executed by the driver since the last song started.
	Commands []Command
	// MusicPaused and SfxPaused reflect the driver's pause state.
	MusicPaused bool
	SfxPaused   bool
	Stereo      bool
	// Spins counts spinlock words received by the loader.
	Spins int
}

func NewDevice(loaderAddress uint16) *Device {
	d := &Device{LoaderAddress: loaderAddress}
	d.Reset()
	return d
}

// Reset powers the device on into the IPL ROM.
func (d *Device) Reset() {
	d.in = [apu.PortCount]uint8{}
	d.out = [apu.PortCount]uint8{apu.IPLReadyL, apu.IPLReadyH, 0, 0}
	d.reads = 0
	d.phase = phaseIPLStart
	d.buf = nil
	d.Loads = nil
	d.Commands = nil
	d.Restarts = 0
	d.Spins = 0
}

func (d *Device) logf(format string, args ...interface{}) {
	util.Logf(d.Logger, "mock: "+format, args...)
}

// ReadPort implements apu.Ports.
func (d *Device) ReadPort(port apu.Port) uint8 {
	d.reads++
	if !d.Stalled && d.reads > d.Latency {
		d.reads = 0
		d.run()
	}
	return d.out[port&3]
}

// WritePort implements apu.Ports.
func (d *Device) WritePort(port apu.Port, value uint8) {
	d.in[port&3] = value
}

// Phase describes what the simulated coprocessor is currently executing.
func (d *Device) Phase() string { return d.phase.String() }

// LastLoad returns the most recent completed transfer of the given kind.
func (d *Device) LastLoad(kind apu.DataType) (Load, bool) {
	for i := len(d.Loads) - 1; i >= 0; i-- {
		if d.Loads[i].DataType.Kind() == kind {
			return d.Loads[i], true
		}
	}
	return Load{}, false
}

func (d *Device) run() {
	switch d.phase {
	case phaseIPLStart, phaseIPLData:
		d.runIPL()
	case phaseLoaderReady:
		d.runLoaderReady()
	case phaseLoaderTransfer:
		d.runLoaderTransfer()
	case phaseDriver:
		d.runDriver()
	}
}

func (d *Device) runIPL() {
	v := d.in[apu.IPLIndexPort]

	if d.phase == phaseIPLStart {
		if v != apu.IPLStart {
			return
		}
		d.iplCommand(v)
		return
	}

	if v == d.iplIndex {
		d.ARAM[d.iplAddr+uint16(v)] = d.in[apu.IPLDataPort]
		d.out[apu.IPLIndexPort] = v
		d.iplIndex++
		if d.iplIndex == 0 {
			// blocks longer than 256 bytes keep counting upwards in audio RAM
			d.iplAddr += 0x100
		}
		return
	}

	if v != d.out[apu.IPLIndexPort] {
		d.iplCommand(v)
	}
}

func (d *Device) iplCommand(v uint8) {
	addr := uint16(d.in[apu.IPLAddressPort]) | uint16(d.in[apu.IPLAddressPort+1])<<8
	d.out[apu.IPLIndexPort] = v

	if d.in[apu.IPLDataPort] != 0 {
		d.iplAddr = addr
		d.iplIndex = 0
		d.phase = phaseIPLData
		return
	}

	if addr != d.LoaderAddress {
		d.logf("ipl: execute $%04x is not the loader at $%04x; ignored", addr, d.LoaderAddress)
		d.phase = phaseIPLData
		return
	}

	d.logf("ipl: execute loader at $%04x", addr)
	d.startLoader()
}

func (d *Device) startLoader() {
	d.phase = phaseLoaderReady
	d.buf = nil
	d.out[apu.ModePort] = apu.ModeLoader
	d.out[apu.ReadyPortL] = apu.LoaderReadyL
	d.out[apu.ReadyPortH] = apu.LoaderReadyH
}

func (d *Device) runLoaderReady() {
	if d.in[apu.ReadyPortL] != apu.LoaderReadyL || d.in[apu.ReadyPortH] != apu.LoaderReadyH {
		return
	}

	d.dataType = apu.DataType(d.in[apu.LoaderDataTypePort])
	d.lastSpin = d.in[apu.SpinlockPort]
	d.buf = d.buf[:0]
	d.out[apu.ReadyPortL] = 0
	d.out[apu.SpinlockPort] = apu.SpinlockInit
	d.phase = phaseLoaderTransfer
	d.logf("loader: receiving %s", d.dataType)
}

func (d *Device) runLoaderTransfer() {
	v := d.in[apu.SpinlockPort]
	if v == d.lastSpin {
		return
	}

	if v == apu.SpinlockSwitchToLoader {
		d.logf("loader: restart requested after %d bytes of %s", len(d.buf), d.dataType)
		d.Restarts++
		d.startLoader()
		return
	}

	if v&apu.SpinlockComplete != 0 {
		d.complete()
		return
	}

	d.buf = append(d.buf, d.in[apu.DataPortL], d.in[apu.DataPortH])
	d.lastSpin = v
	d.out[apu.SpinlockPort] = v
	d.Spins++
}

func (d *Device) complete() {
	data := make([]byte, len(d.buf))
	copy(data, d.buf)
	d.Loads = append(d.Loads, Load{DataType: d.dataType, Data: data})
	d.logf("loader: received %d bytes of %s", len(data), d.dataType)

	if !d.dataType.IsSong() {
		d.startLoader()
		return
	}

	d.startDriver()
}

func (d *Device) startDriver() {
	d.phase = phaseDriver
	d.Stereo = d.dataType.Stereo()
	d.MusicPaused = !d.dataType.PlaySong()
	d.SfxPaused = d.MusicPaused
	d.Commands = nil

	// whatever the host left on the command port is not a command
	d.lastCommand = d.in[apu.CommandPort]
	d.out[apu.CommandAckPort] = d.lastCommand
	d.out[apu.ModePort] = apu.ModeAudioDriver
	d.out[apu.ReadyPortL] = 0
	d.out[apu.ReadyPortH] = 0
}

func (d *Device) runDriver() {
	if d.in[apu.SwitchToLoaderPort]&(1<<apu.SwitchToLoaderBit) != 0 && d.in[apu.SwitchToLoaderPort]&0x80 != 0 {
		d.logf("driver: switch to loader")
		d.Restarts++
		d.startLoader()
		return
	}

	v := d.in[apu.CommandPort]
	if v == d.lastCommand {
		return
	}

	c := Command{
		Value:      v,
		Command:    v & apu.CommandMask,
		Parameter0: d.in[apu.Parameter0Port],
		Parameter1: d.in[apu.Parameter1Port],
	}
	d.Commands = append(d.Commands, c)
	d.execute(c)

	d.lastCommand = v
	d.out[apu.CommandAckPort] = v
}

// opcodes as understood by the simulated driver
const (
	opPause             = 0
	opPauseMusicPlaySfx = 2
	opUnpause           = 4
)

func (d *Device) execute(c Command) {
	switch c.Command {
	case opPause:
		d.MusicPaused, d.SfxPaused = true, true
	case opPauseMusicPlaySfx:
		d.MusicPaused, d.SfxPaused = true, false
	case opUnpause:
		d.MusicPaused, d.SfxPaused = false, false
	}
	d.logf("driver: command $%02x (%d, %d)", c.Command, c.Parameter0, c.Parameter1)
}

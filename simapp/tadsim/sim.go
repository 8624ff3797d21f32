package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"tad/apu"
	"tad/apu/hwio"
	"tad/apu/mock"
	"tad/apu/serialbridge"
	"tad/apu/wsbridge"
	"tad/audio"
	"tad/audiodata"
	"tad/snes"
	"tad/snes/emulator"
	"time"
)

const (
	// initTimeout bounds the bootstrap: the IPL upload, the driver code and the first handshakes.
	initTimeout = 30 * time.Second
	// frameTimeout bounds one Process; only a device that stopped echoing gets near it.
	frameTimeout = 5 * time.Second
)

// countingPorts counts port accesses so the report can show how much bus time each frame took.
type countingPorts struct {
	apu.Ports
	accesses int
}

func (p *countingPorts) ReadPort(port apu.Port) uint8 {
	p.accesses++
	return p.Ports.ReadPort(port)
}

func (p *countingPorts) WritePort(port apu.Port, value uint8) {
	p.accesses++
	p.Ports.WritePort(port, value)
}

// failer is implemented by transports that can lose their connection.
type failer interface {
	Err() error
}

type Simulation struct {
	cfg *Config

	// dev is nil when the device is not simulated in this process
	dev     *mock.Device
	ports   *countingPorts
	session *audio.Session

	transport failer
	closers   []io.Closer
}

func newDevice(cfg *Config) *mock.Device {
	dev := mock.NewDevice(cfg.LoaderAddress)
	dev.Latency = cfg.Latency
	return dev
}

// audioSources holds the data a simulation uploads, read from the config's sources.
type audioSources struct {
	loader []byte
	code   []byte
	common []byte
	songs  [][]byte
}

func readSources(cfg *Config) (src audioSources, err error) {
	if src.loader, err = cfg.Loader.Bytes(0x40); err != nil {
		return
	}
	if src.code, err = cfg.Code.Bytes(0x80); err != nil {
		return
	}
	if src.common, err = cfg.Common.Bytes(0xC0); err != nil {
		return
	}
	src.songs = make([][]byte, len(cfg.Songs))
	for i, d := range cfg.Songs {
		if src.songs[i], err = d.Bytes(uint8(i)); err != nil {
			return
		}
	}
	return
}

func (src audioSources) blobs() *audiodata.Blobs {
	b := &audiodata.Blobs{Code: src.code, Common: src.common, Songs: make(map[uint8][]byte)}
	for i, song := range src.songs {
		if song != nil {
			b.Songs[uint8(i+1)] = song
		}
	}
	return b
}

// image returns the LoROM image the emulator boots: the configured ROM file, or the sources
// packed into a fresh one.
func (src audioSources) image(cfg *Config) (*snes.ROM, *audiodata.Table, error) {
	if cfg.ROM == "" {
		return audiodata.Pack("TADSIM", src.code, src.common, src.songs)
	}

	contents, err := os.ReadFile(cfg.ROM)
	if err != nil {
		return nil, nil, fmt.Errorf("tadsim: %w", err)
	}
	rom, table, err := audiodata.OpenImage(contents)
	if err != nil {
		return nil, nil, fmt.Errorf("tadsim: %s: %w", cfg.ROM, err)
	}
	log.Printf("tadsim: %s: %q, %d songs\n", cfg.ROM, rom.Title(), table.SongCount)
	return rom, table, nil
}

// WriteImage packs the configured code, common data and songs into a LoROM image at path.
func WriteImage(cfg *Config, path string) error {
	src, err := readSources(cfg)
	if err != nil {
		return err
	}
	rom, _, err := audiodata.Pack("TADSIM", src.code, src.common, src.songs)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, rom.Contents, 0o644); err != nil {
		return fmt.Errorf("tadsim: %w", err)
	}
	log.Printf("tadsim: wrote %d byte image with %d songs to %s\n", len(rom.Contents), len(src.songs), path)
	return nil
}

func NewSimulation(ctx context.Context, cfg *Config) (_ *Simulation, err error) {
	sim := &Simulation{cfg: cfg}
	defer func() {
		if err != nil {
			sim.Close()
		}
	}()

	src, err := readSources(cfg)
	if err != nil {
		return
	}

	var data audio.AudioData = src.blobs()
	if cfg.ROM != "" && cfg.Transport != TransportEmulator {
		var table *audiodata.Table
		if _, table, err = src.image(cfg); err != nil {
			return
		}
		data = table
	}

	var ports apu.Ports
	switch cfg.Transport {
	case TransportMock:
		sim.dev = newDevice(cfg)
		ports = sim.dev

	case TransportEmulator:
		sim.dev = newDevice(cfg)

		rom, table, e := src.image(cfg)
		if e != nil {
			return nil, e
		}
		sys := &emulator.System{APU: emulator.APUIO{Ports: sim.dev}}
		if err = sys.CreateEmulator(); err != nil {
			return
		}
		if err = sys.LoadROM(rom.Contents); err != nil {
			return
		}

		// the code reads the table through the emulated bus like a game would
		ports = hwio.New(sys.Bus)
		data = &audiodata.Table{
			Memory:    sys.Bus,
			Address:   table.Address,
			SongCount: table.SongCount,
		}

	case TransportWebsocket:
		url := cfg.Address
		if url == "" {
			sim.dev = newDevice(cfg)
			if url, err = sim.serveLoopback(sim.dev); err != nil {
				return
			}
		}

		var c *wsbridge.Client
		if c, err = wsbridge.Dial(ctx, url, "tadsim"); err != nil {
			return
		}
		sim.closers = append(sim.closers, c)
		sim.transport = c
		ports = c

	case TransportSerial:
		var b *serialbridge.Bridge
		if b, err = serialbridge.Open(cfg.Address); err != nil {
			return
		}
		sim.closers = append(sim.closers, b)
		sim.transport = b
		ports = b

	default:
		return nil, fmt.Errorf("tadsim: unknown transport %q", cfg.Transport)
	}

	sim.ports = &countingPorts{Ports: ports}
	sim.session = audio.NewSession(audio.Config{
		Ports:            sim.ports,
		AudioData:        data,
		Loader:           src.loader,
		LoaderAddress:    cfg.LoaderAddress,
		TransferSize:     cfg.TransferSize,
		Stereo:           cfg.Stereo,
		SongsStartPaused: cfg.StartPaused,
		Logger:           log.Writer(),
	})
	return sim, nil
}

// serveLoopback serves ports on an ephemeral localhost port and returns its websocket URL.
func (sim *Simulation) serveLoopback(ports apu.Ports) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("tadsim: listen: %w", err)
	}

	srv := &http.Server{Handler: wsbridge.NewServer(ports)}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("tadsim: loopback server: %v\n", err)
		}
	}()
	sim.closers = append(sim.closers, srv)

	return "ws://" + ln.Addr().String(), nil
}

func (sim *Simulation) Close() error {
	var err error
	// close in reverse order so clients go before the servers they talk to
	for i := len(sim.closers) - 1; i >= 0; i-- {
		if e := sim.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	sim.closers = nil
	return err
}

func (sim *Simulation) transportErr() error {
	if sim.transport == nil {
		return nil
	}
	return sim.transport.Err()
}

// Run bootstraps the coprocessor and plays the script, one Process per frame.
func (sim *Simulation) Run(ctx context.Context) (*Report, error) {
	r := &Report{
		SessionID: sim.session.ID().String(),
		Transport: sim.cfg.Transport,
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	start := time.Now()
	if err := sim.session.Init(initCtx); err != nil {
		if terr := sim.transportErr(); terr != nil {
			err = fmt.Errorf("%w (transport: %v)", err, terr)
		}
		return nil, err
	}
	r.InitAccesses = sim.ports.accesses
	r.InitTime = time.Since(start)

	events := make(map[int][]Event)
	for _, e := range sim.cfg.Script {
		events[e.Frame] = append(events[e.Frame], e)
	}

	state := sim.session.State()
	loadStart := -1
	var loadSong uint8

	observe := func(frame int) {
		s := sim.session.State()
		if s == state {
			return
		}
		r.Transitions = append(r.Transitions, Transition{Frame: frame, From: state, To: s})
		if loadStart >= 0 && s.IsDriverRunning() {
			r.SongLoads = append(r.SongLoads, SongLoad{Song: loadSong, Frames: frame - loadStart + 1})
			loadStart = -1
		}
		state = s
	}

	for frame := 0; frame < sim.cfg.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		for _, e := range events[frame] {
			if sim.apply(e) && e.Action == ActionLoadSong {
				loadStart, loadSong = frame, e.Song
			}
		}
		observe(frame)

		before := sim.ports.accesses
		frameCtx, cancelFrame := context.WithTimeout(ctx, frameTimeout)
		err := sim.session.ProcessContext(frameCtx)
		cancelFrame()
		if err != nil {
			if terr := sim.transportErr(); terr != nil {
				err = fmt.Errorf("%w (transport: %v)", err, terr)
			}
			return r, fmt.Errorf("frame %d: %w", frame, err)
		}
		r.FrameAccesses = append(r.FrameAccesses, float64(sim.ports.accesses-before))
		r.Frames++
		observe(frame)

		if err := sim.transportErr(); err != nil {
			return r, err
		}
	}

	r.FinalState = sim.session.State()
	if sim.dev != nil {
		r.DeviceCommands = len(sim.dev.Commands)
		r.DeviceLoads = len(sim.dev.Loads)
		r.DeviceRestarts = sim.dev.Restarts
	}
	return r, nil
}

// apply makes the call an event describes and reports whether the session accepted it.
func (sim *Simulation) apply(e Event) bool {
	s := sim.session

	switch e.Action {
	case ActionLoadSong:
		return s.LoadSongIfChanged(e.Song)
	case ActionSoundEffect:
		if e.Pan != nil {
			return s.QueuePannedSoundEffect(e.Sfx, *e.Pan)
		}
		return s.QueueSoundEffect(e.Sfx)
	case ActionCommand:
		c, err := parseCommand(e.Command)
		if err != nil {
			return false
		}
		if e.Override {
			return s.QueueCommandOverride(c, e.Parameter)
		}
		return s.QueueCommand(c, e.Parameter)
	case ActionReloadCommon:
		s.ReloadCommonAudioData()
	case ActionStereo:
		s.SetStereo()
	case ActionMono:
		s.SetMono()
	}
	return true
}

// Serve exposes the configured device to websocket clients until ctx is done.
func Serve(ctx context.Context, cfg *Config) error {
	var ports apu.Ports
	switch cfg.Transport {
	case TransportSerial:
		b, err := serialbridge.Open(cfg.Address)
		if err != nil {
			return err
		}
		defer b.Close()
		ports = b
	default:
		ports = newDevice(cfg)
	}

	srv := &http.Server{Addr: cfg.Listen, Handler: wsbridge.NewServer(ports)}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Printf("tadsim: serving %s ports on %s\n", cfg.Transport, cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("tadsim: serve: %w", err)
	}
	return nil
}

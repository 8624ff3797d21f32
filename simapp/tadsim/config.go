package main

import (
	"bytes"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"tad/audio"
)

const (
	TransportMock      = "mock"
	TransportEmulator  = "emulator"
	TransportWebsocket = "websocket"
	TransportSerial    = "serial"
)

// Config describes one simulation run.
type Config struct {
	// Transport selects how ports are reached: mock, emulator, websocket or serial.
	Transport string `yaml:"transport"`
	// Address is the websocket URL or the serial "port;baud". An empty websocket address starts
	// a loopback server fronting the simulated device.
	Address string `yaml:"address"`
	// Listen makes tadsim serve the selected device over websocket instead of running a session.
	Listen string `yaml:"listen"`

	// Latency is the simulated device's response delay in port reads.
	Latency       int    `yaml:"latency"`
	LoaderAddress uint16 `yaml:"loaderAddress"`
	TransferSize  int    `yaml:"transferSize"`
	Stereo        bool   `yaml:"stereo"`
	StartPaused   bool   `yaml:"startPaused"`
	Frames        int    `yaml:"frames"`

	Loader DataSource   `yaml:"loader"`
	Code   DataSource   `yaml:"code"`
	Common DataSource   `yaml:"common"`
	Songs  []DataSource `yaml:"songs"`
	// ROM names a packed LoROM image to serve code, common data and songs from. When set the
	// code, common and songs sources are ignored.
	ROM string `yaml:"rom"`

	Script []Event `yaml:"script"`
}

// DataSource is either a file or Size bytes of generated data.
type DataSource struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"`
}

func (d DataSource) Bytes(seed uint8) ([]byte, error) {
	if d.File != "" {
		b, err := os.ReadFile(d.File)
		if err != nil {
			return nil, fmt.Errorf("tadsim: %w", err)
		}
		return b, nil
	}
	if d.Size <= 0 {
		return nil, nil
	}

	b := make([]byte, d.Size)
	for i := range b {
		b[i] = seed + uint8(i*7) ^ uint8(i>>8)
	}
	return b, nil
}

const (
	ActionLoadSong     = "loadSong"
	ActionSoundEffect  = "sfx"
	ActionCommand      = "command"
	ActionReloadCommon = "reloadCommon"
	ActionStereo       = "stereo"
	ActionMono         = "mono"
)

// Event is one scripted call into the session, made before the frame's Process.
type Event struct {
	Frame  int    `yaml:"frame"`
	Action string `yaml:"action"`

	Song uint8 `yaml:"song"`

	Sfx uint8 `yaml:"sfx"`
	// Pan defaults to the centre.
	Pan *uint8 `yaml:"pan"`

	Command   string `yaml:"command"`
	Parameter uint8  `yaml:"parameter"`
	Override  bool   `yaml:"override"`
}

func defaultConfig() *Config {
	return &Config{
		Transport:     TransportMock,
		LoaderAddress: audio.DefaultLoaderAddress,
		TransferSize:  audio.DefaultTransferSize,
		Frames:        600,
		Loader:        DataSource{Size: 64},
		Code:          DataSource{Size: 0x1800},
		Common:        DataSource{Size: 0x4000},
		Songs:         []DataSource{{Size: 0x1000}},
		Script: []Event{
			{Frame: 0, Action: ActionLoadSong, Song: 1},
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path selects the
// defaults alone. TADSIM_TRANSPORT and TADSIM_ADDRESS override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("tadsim: read config: %w", err)
		}
		if err = ParseConfig(b, cfg); err != nil {
			return nil, fmt.Errorf("tadsim: %s: %w", path, err)
		}
	}

	cfg.Transport = orElse(os.Getenv("TADSIM_TRANSPORT"), cfg.Transport)
	cfg.Address = orElse(os.Getenv("TADSIM_ADDRESS"), cfg.Address)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML into cfg, rejecting unknown keys.
func ParseConfig(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportMock, TransportEmulator, TransportWebsocket, TransportSerial:
	default:
		return fmt.Errorf("tadsim: unknown transport %q", c.Transport)
	}

	if c.Latency < 0 {
		return fmt.Errorf("tadsim: negative latency %d", c.Latency)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("tadsim: frames must be positive, got %d", c.Frames)
	}
	if len(c.Songs) > 255 {
		return fmt.Errorf("tadsim: %d songs; song ids stop at 255", len(c.Songs))
	}

	for i, e := range c.Script {
		if e.Frame < 0 || e.Frame >= c.Frames {
			return fmt.Errorf("tadsim: script[%d]: frame %d outside 0..%d", i, e.Frame, c.Frames-1)
		}
		switch e.Action {
		case ActionLoadSong, ActionSoundEffect, ActionReloadCommon, ActionStereo, ActionMono:
		case ActionCommand:
			if _, err := parseCommand(e.Command); err != nil {
				return fmt.Errorf("tadsim: script[%d]: %w", i, err)
			}
		default:
			return fmt.Errorf("tadsim: script[%d]: unknown action %q", i, e.Action)
		}
	}
	return nil
}

// parseCommand accepts the names printed by audio.Command.String.
func parseCommand(name string) (audio.Command, error) {
	for c := audio.CommandPause; c <= audio.CommandSetSongTempo; c += 2 {
		if c == audio.CommandPlaySoundEffect {
			continue
		}
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

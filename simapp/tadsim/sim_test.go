package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tad/audio"
	"tad/snes"
)

func smallConfig(transport string) *Config {
	pan := uint8(20)
	return &Config{
		Transport:     transport,
		LoaderAddress: audio.DefaultLoaderAddress,
		TransferSize:  audio.MaxTransferSize,
		Frames:        400,
		Loader:        DataSource{Size: 16},
		Code:          DataSource{Size: 0x200},
		Common:        DataSource{Size: 0x900},
		Songs:         []DataSource{{Size: 0x600}, {Size: 0x301}},
		Script: []Event{
			{Frame: 0, Action: ActionLoadSong, Song: 1},
			{Frame: 100, Action: ActionCommand, Command: "SET_MAIN_VOLUME", Parameter: 40},
			{Frame: 101, Action: ActionSoundEffect, Sfx: 3, Pan: &pan},
			{Frame: 150, Action: ActionLoadSong, Song: 2},
			{Frame: 300, Action: ActionCommand, Command: "PAUSE"},
		},
	}
}

func TestSimulation_Run(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		latency   int
	}{
		{"mock", TransportMock, 0},
		{"slow mock", TransportMock, 2},
		{"emulator", TransportEmulator, 0},
		{"websocket loopback", TransportWebsocket, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig(tt.transport)
			cfg.Latency = tt.latency
			if err := cfg.Validate(); err != nil {
				t.Fatal(err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sim, err := NewSimulation(ctx, cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer sim.Close()

			r, err := sim.Run(ctx)
			if err != nil {
				t.Fatal(err)
			}

			if r.Frames != cfg.Frames || len(r.FrameAccesses) != cfg.Frames {
				t.Errorf("ran %d frames, want %d", r.Frames, cfg.Frames)
			}
			if r.InitAccesses == 0 {
				t.Error("Init made no port accesses")
			}
			if len(r.SongLoads) != 2 || r.SongLoads[0].Song != 1 || r.SongLoads[1].Song != 2 {
				t.Errorf("SongLoads = %+v, want songs 1 and 2", r.SongLoads)
			}
			if r.FinalState != audio.StatePaused {
				t.Errorf("FinalState = %v, want %v", r.FinalState, audio.StatePaused)
			}

			// code, common data, song 1, song 2
			if r.DeviceLoads != 4 {
				t.Errorf("device saw %d loads, want 4", r.DeviceLoads)
			}
			if r.DeviceRestarts != 1 {
				t.Errorf("device restarted the loader %d times, want 1", r.DeviceRestarts)
			}

			var out bytes.Buffer
			if err = r.Fprint(&out); err != nil {
				t.Fatal(err)
			}
			for _, want := range []string{r.SessionID, "WAITING_FOR_LOADER", "song   2"} {
				if !strings.Contains(out.String(), want) {
					t.Errorf("report does not mention %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestSimulation_RunFromImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.sfc")
	if err := WriteImage(smallConfig(TransportMock), path); err != nil {
		t.Fatal(err)
	}

	for _, transport := range []string{TransportMock, TransportEmulator} {
		t.Run(transport, func(t *testing.T) {
			cfg := smallConfig(transport)
			cfg.ROM = path
			// the image is the only source of audio data
			cfg.Code, cfg.Common, cfg.Songs = DataSource{}, DataSource{}, nil

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sim, err := NewSimulation(ctx, cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer sim.Close()

			r, err := sim.Run(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(r.SongLoads) != 2 || r.SongLoads[1].Song != 2 {
				t.Errorf("SongLoads = %+v, want songs 1 and 2", r.SongLoads)
			}
			if r.DeviceLoads != 4 {
				t.Errorf("device saw %d loads, want 4", r.DeviceLoads)
			}
		})
	}
}

func TestSimulation_CorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.sfc")
	if err := WriteImage(smallConfig(TransportMock), path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b[0x8000] ^= 0xFF
	if err = os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := smallConfig(TransportMock)
	cfg.ROM = path
	if _, err = NewSimulation(context.Background(), cfg); !errors.Is(err, snes.ErrBadChecksum) {
		t.Errorf("NewSimulation() = %v, want %v", err, snes.ErrBadChecksum)
	}
}

func TestSimulation_SerialWithoutBridge(t *testing.T) {
	cfg := smallConfig(TransportSerial)
	cfg.Address = "/dev/does-not-exist"

	if _, err := NewSimulation(context.Background(), cfg); err == nil {
		t.Fatal("NewSimulation() opened a missing serial port")
	}
}

func TestSimulation_Cancelled(t *testing.T) {
	cfg := smallConfig(TransportMock)

	sim, err := NewSimulation(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err = sim.Run(ctx); err == nil {
		t.Error("Run() ignored a cancelled context")
	}
}

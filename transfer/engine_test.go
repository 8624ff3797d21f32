package transfer

import (
	"bytes"
	"context"
	"errors"
	"tad/apu"
	"testing"
	"time"
)

// fakeLoader plays the loader side of the spinlock handshake. An echo becomes visible to the
// host only after lag further reads of the spinlock port.
type fakeLoader struct {
	lag     int
	stalled bool

	in      [apu.PortCount]uint8
	echo    uint8
	pending int
	hasEcho bool

	received  []byte
	spins     []uint8
	completed bool
	writes    int
}

func (f *fakeLoader) ReadPort(port apu.Port) uint8 {
	if port != apu.SpinlockPort {
		return 0
	}
	if f.hasEcho && !f.stalled {
		if f.pending <= 0 {
			f.hasEcho = false
			f.echo = f.in[apu.SpinlockPort]
		} else {
			f.pending--
		}
	}
	return f.echo
}

func (f *fakeLoader) WritePort(port apu.Port, value uint8) {
	f.writes++
	f.in[port] = value
	if port != apu.SpinlockPort {
		return
	}
	if value&apu.SpinlockComplete != 0 {
		f.completed = true
		return
	}
	f.received = append(f.received, f.in[apu.DataPortL], f.in[apu.DataPortH])
	f.spins = append(f.spins, value)
	f.hasEcho = true
	f.pending = f.lag
}

func TestEngine_Step(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	tests := []struct {
		name      string
		maxBytes  int
		lag       int
		wantSteps int
	}{
		{name: "one word per step", maxBytes: 2, wantSteps: 10},
		{name: "zero rounds up to one word", maxBytes: 0, wantSteps: 10},
		{name: "odd budget rounds down", maxBytes: 7, wantSteps: 4},
		{name: "everything at once", maxBytes: 800, wantSteps: 1},
		{name: "slow loader", maxBytes: 6, lag: 3, wantSteps: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeLoader{lag: tt.lag}
			e := NewEngine(f)
			e.Begin(Bytes(data))

			steps := 0
			for {
				done, err := e.Step(context.Background(), tt.maxBytes)
				if err != nil {
					t.Fatal(err)
				}
				steps++
				if done {
					break
				}
				if steps > 1000 {
					t.Fatal("transfer did not complete")
				}
			}

			if tt.lag == 0 && steps != tt.wantSteps {
				t.Errorf("steps = %v, want %v", steps, tt.wantSteps)
			}
			if !bytes.Equal(f.received, data) {
				t.Errorf("received = %v, want %v", f.received, data)
			}
			if !f.completed {
				t.Error("complete marker not written")
			}
			if e.Active() {
				t.Error("job still active after completion")
			}
		})
	}
}

func TestEngine_SpinlockSequence(t *testing.T) {
	f := &fakeLoader{}
	e := NewEngine(f)
	e.Begin(Bytes(make([]byte, 20)))
	if err := e.Finish(context.Background(), 32); err != nil {
		t.Fatal(err)
	}

	want := []uint8{1, 2, 3, 4, 5, 6, 7, 1, 2, 3}
	if !bytes.Equal(f.spins, want) {
		t.Errorf("spinlock values = %v, want %v", f.spins, want)
	}
}

func TestEngine_StepWaitsForEchoWithoutWriting(t *testing.T) {
	f := &fakeLoader{lag: 10}
	e := NewEngine(f)
	e.Begin(Bytes(make([]byte, 8)))

	if _, err := e.Step(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	writes := f.writes

	// the loader has not yet echoed the first word:
	done, err := e.Step(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("done before all words were sent")
	}
	if f.writes != writes {
		t.Errorf("Step wrote %d bytes while the previous word was unacknowledged", f.writes-writes)
	}
}

func TestEngine_OddLengthIsPadded(t *testing.T) {
	f := &fakeLoader{}
	e := NewEngine(f)
	e.Begin(Bytes([]byte{0xAA, 0xBB, 0xCC}))
	if err := e.Finish(context.Background(), 256); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0xAA, 0xBB, 0xCC, 0x00}; !bytes.Equal(f.received, want) {
		t.Errorf("received = %x, want %x", f.received, want)
	}
}

func TestEngine_EmptyRegionCompletes(t *testing.T) {
	f := &fakeLoader{}
	e := NewEngine(f)
	e.Begin(Bytes(nil))
	done, err := e.Step(context.Background(), 256)
	if err != nil {
		t.Fatal(err)
	}
	if !done || !f.completed {
		t.Errorf("done = %v, completed = %v; want both true", done, f.completed)
	}
	if len(f.received) != 0 {
		t.Errorf("received %d bytes from an empty region", len(f.received))
	}
}

func TestEngine_CrossesBankBoundaryMidWord(t *testing.T) {
	rom := make(ROM, 0x10000)
	rom[0x7FFF] = 0x11
	rom[0x8000] = 0x22
	rom[0x8001] = 0x33
	rom[0x8002] = 0x44

	f := &fakeLoader{}
	e := NewEngine(f)
	e.Begin(Region{Memory: rom, Address: 0x80_FFFF, Length: 4})
	if err := e.Finish(context.Background(), 2); err != nil {
		t.Fatal(err)
	}

	if want := []byte{0x11, 0x22, 0x33, 0x44}; !bytes.Equal(f.received, want) {
		t.Errorf("received = %x, want %x", f.received, want)
	}
	if want := []uint8{1, 2}; !bytes.Equal(f.spins, want) {
		t.Errorf("spinlock values = %v, want %v", f.spins, want)
	}
}

func TestEngine_StalledLoaderRespectsContext(t *testing.T) {
	f := &fakeLoader{stalled: true}
	e := NewEngine(f)
	e.Begin(Bytes(make([]byte, 64)))

	// the initial spinlock value is echoed by the fake already; the stall bites on word two
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Finish(ctx, 64)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Finish() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if !e.Active() {
		t.Error("stalled job must stay active")
	}
}

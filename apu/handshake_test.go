package apu

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// echoPorts answers a write on one port after a number of reads.
type echoPorts struct {
	in, out [PortCount]uint8
	lag     int
	reads   int
}

func (p *echoPorts) ReadPort(port Port) uint8 {
	p.reads++
	if p.reads > p.lag {
		p.out = p.in
	}
	return p.out[port]
}

func (p *echoPorts) WritePort(port Port, value uint8) {
	p.in[port] = value
	p.reads = 0
}

func TestNextSpinlock(t *testing.T) {
	tests := []struct {
		prev, want uint8
	}{
		{SpinlockInit, 1},
		{1, 2},
		{6, 7},
		{SpinlockMax, 1},
		{SpinlockComplete, 1},
		{0x0f, 1},
	}
	for _, tt := range tests {
		if got := NextSpinlock(tt.prev); got != tt.want {
			t.Errorf("NextSpinlock($%02x) = %d, want %d", tt.prev, got, tt.want)
		}
	}
}

func TestPollForEcho(t *testing.T) {
	p := &echoPorts{lag: 2}
	WriteHandshakeByte(p, SpinlockPort, 5)

	if PollForEcho(p, SpinlockPort, 5) {
		t.Error("echo seen on the first read")
	}
	if PollForEcho(p, SpinlockPort, 5) {
		t.Error("echo seen on the second read")
	}
	if !PollForEcho(p, SpinlockPort, 5) {
		t.Error("echo not seen on the third read")
	}
}

func TestWaitForEcho(t *testing.T) {
	p := &echoPorts{lag: 1000}
	WriteHandshakeByte(p, Port2, 0x42)

	if err := WaitForEcho(context.Background(), p, Port2, 0x42); err != nil {
		t.Fatal(err)
	}
	if p.reads != 1001 {
		t.Errorf("reads = %d, want 1001", p.reads)
	}
}

func TestWaitForEcho_Cancelled(t *testing.T) {
	p := &echoPorts{lag: math.MaxInt}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := WaitForEcho(ctx, p, Port0, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForEcho() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestSendLoaderDataType(t *testing.T) {
	p := &echoPorts{}
	SendLoaderDataType(p, SongDataType(true, false))

	want := [PortCount]uint8{0, uint8(DataTypeMinSong | DataTypeStereoFlag), LoaderReadyL, LoaderReadyH}
	if p.in != want {
		t.Errorf("ports = % x, want % x", p.in, want)
	}
	if !IsLoaderReady(p) {
		t.Error("ready signature not recognised")
	}
}

func TestDataType(t *testing.T) {
	tests := []struct {
		t            DataType
		kind         DataType
		stereo, play bool
		str          string
	}{
		{DataTypeCode, DataTypeCode, false, false, "code"},
		{DataTypeCommonData, DataTypeCommonData, false, false, "common-data"},
		{SongDataType(false, false), DataTypeMinSong, false, false, "song(stereo=false,play=false)"},
		{SongDataType(true, false), DataTypeMinSong, true, false, "song(stereo=true,play=false)"},
		{SongDataType(false, true), DataTypeMinSong, false, true, "song(stereo=false,play=true)"},
		{SongDataType(true, true), DataTypeMinSong, true, true, "song(stereo=true,play=true)"},
		{DataType(5), DataTypeMinSong, false, false, "song(stereo=false,play=false)"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.t.Kind(); got != tt.kind {
				t.Errorf("Kind() = %d, want %d", got, tt.kind)
			}
			if got := tt.t.Stereo(); got != tt.stereo {
				t.Errorf("Stereo() = %v, want %v", got, tt.stereo)
			}
			if got := tt.t.PlaySong(); got != tt.play {
				t.Errorf("PlaySong() = %v, want %v", got, tt.play)
			}
			if got := tt.t.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

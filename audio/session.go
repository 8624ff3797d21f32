package audio

import (
	"errors"
	"github.com/google/uuid"
	"io"
	"tad/apu"
	"tad/transfer"
	"tad/util"
)

const (
	MinTransferSize     = 32
	MaxTransferSize     = 800
	DefaultTransferSize = 256

	// DefaultLoaderAddress is where the loader is placed in audio RAM by the IPL.
	DefaultLoaderAddress = 0x0200
)

var (
	ErrNoLoader     = errors.New("audio: no loader image")
	ErrNoDriverCode = errors.New("audio: no audio driver code")
)

// AudioData supplies the bytes sent to the loader. For songs dataType is
// apu.DataTypeMinSong; returning false makes the session send the built-in blank song.
type AudioData interface {
	LoadAudioData(dataType apu.DataType, song uint8) (region transfer.Region, ok bool)
}

type AudioDataFunc func(dataType apu.DataType, song uint8) (transfer.Region, bool)

func (f AudioDataFunc) LoadAudioData(dataType apu.DataType, song uint8) (transfer.Region, bool) {
	return f(dataType, song)
}

type Config struct {
	Ports     apu.Ports
	AudioData AudioData

	// Loader is the loader program uploaded through the IPL and LoaderAddress is where it
	// runs from.
	Loader        []byte
	LoaderAddress uint16

	// TransferSize is the number of bytes sent per Process call while loading.
	TransferSize     int
	Stereo           bool
	SongsStartPaused bool

	// Logger receives one line per state change. Writers with a Commit() method are committed
	// after every line.
	Logger io.Writer
}

// Session is one connection to the audio coprocessor. It is not safe for concurrent use:
// every method must be called from the single frame loop that owns it.
type Session struct {
	id uuid.UUID

	ports         apu.Ports
	data          AudioData
	loader        []byte
	loaderAddress uint16
	logger        io.Writer

	engine *transfer.Engine

	state        State
	flags        Flags
	bytesPerStep int

	previousCommand uint8
	commandID       commandID
	nextSong        uint8

	command commandSlot
	sfx     sfxSlot
}

func NewSession(cfg Config) *Session {
	s := &Session{
		id:            uuid.New(),
		ports:         cfg.Ports,
		data:          cfg.AudioData,
		loader:        cfg.Loader,
		loaderAddress: cfg.LoaderAddress,
		logger:        cfg.Logger,
		engine:        transfer.NewEngine(cfg.Ports),
		state:         StateNull,
		sfx:           emptySfxSlot,
	}
	if s.loaderAddress == 0 {
		s.loaderAddress = DefaultLoaderAddress
	}
	if s.data == nil {
		s.data = AudioDataFunc(func(apu.DataType, uint8) (transfer.Region, bool) {
			return transfer.Region{}, false
		})
	}

	s.bytesPerStep = DefaultTransferSize
	if cfg.TransferSize != 0 {
		s.SetTransferSize(cfg.TransferSize)
	}
	if cfg.Stereo {
		s.flags |= FlagStereo
	}
	if !cfg.SongsStartPaused {
		s.flags |= FlagPlaySongImmediately
	}

	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) logf(format string, args ...interface{}) {
	util.Logf(s.logger, "audio[%s]: "+format, append([]interface{}{s.id.String()[:8]}, args...)...)
}

func (s *Session) setState(state State) {
	if s.state != state {
		s.logf("%s -> %s", s.state, state)
	}
	s.state = state
}

func (s *Session) State() State { return s.state }

// IsLoaderActive reports whether the loader is running or about to run.
func (s *Session) IsLoaderActive() bool { return s.state.IsLoaderActive() }

// IsSongLoaded reports whether a song is in audio RAM and the driver is running.
func (s *Session) IsSongLoaded() bool { return s.state >= StatePaused }

// IsSfxPlaying reports whether sound effects are unpaused.
func (s *Session) IsSfxPlaying() bool { return s.state >= StatePlayingSfx }

// IsSongPlaying reports whether music is unpaused.
func (s *Session) IsSongPlaying() bool { return s.state == StatePlaying }

// SetMono makes the next loaded song play in mono.
func (s *Session) SetMono() { s.flags &^= FlagStereo }

// SetStereo makes the next loaded song play in stereo.
func (s *Session) SetStereo() { s.flags |= FlagStereo }

func (s *Session) IsStereo() bool { return s.flags&FlagStereo != 0 }

// SongsStartImmediately makes songs play as soon as they are loaded.
func (s *Session) SongsStartImmediately() { s.flags |= FlagPlaySongImmediately }

// SongsStartPaused makes songs wait for an unpause command after they are loaded.
func (s *Session) SongsStartPaused() { s.flags &^= FlagPlaySongImmediately }

// SetTransferSize sets the bytes sent per Process call while loading, clamped to
// [MinTransferSize, MaxTransferSize].
func (s *Session) SetTransferSize(bytesPerStep int) {
	if bytesPerStep < MinTransferSize {
		bytesPerStep = MinTransferSize
	} else if bytesPerStep > MaxTransferSize {
		bytesPerStep = MaxTransferSize
	}
	s.bytesPerStep = bytesPerStep
}

func (s *Session) TransferSize() int { return s.bytesPerStep }

// ReloadCommonAudioData makes the loader receive the common audio data again before the
// next song.
func (s *Session) ReloadCommonAudioData() { s.flags |= FlagReloadCommonData }

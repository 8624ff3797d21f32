package audio

import (
	"context"
	"fmt"
	"tad/apu"
	"tad/transfer"
)

// Init bootstraps the coprocessor from power-on: the loader is uploaded and started through
// the IPL, then the audio driver code is transferred in full. The common audio data and the
// next song follow through Process. Init blocks until done or until ctx is done; the
// coprocessor must be sitting in its IPL ROM.
func (s *Session) Init(ctx context.Context) (err error) {
	if len(s.loader) == 0 {
		return ErrNoLoader
	}
	code, ok := s.data.LoadAudioData(apu.DataTypeCode, 0)
	if !ok {
		return ErrNoDriverCode
	}

	s.engine.Abandon()
	s.setState(StateNull)
	defer func() {
		if err != nil {
			s.engine.Abandon()
		}
	}()

	ipl := apu.NewIPL(s.ports)
	if err = ipl.WaitReady(ctx); err != nil {
		return fmt.Errorf("audio: init: %w", err)
	}
	if err = ipl.Upload(ctx, s.loaderAddress, s.loader); err != nil {
		return fmt.Errorf("audio: init: loader upload: %w", err)
	}
	if err = ipl.Execute(ctx, s.loaderAddress); err != nil {
		return fmt.Errorf("audio: init: %w", err)
	}
	s.logf("loader started at $%04x (%d bytes)", s.loaderAddress, len(s.loader))

	err = apu.WaitFor(ctx, func() bool { return apu.IsLoaderReady(s.ports) })
	if err != nil {
		return fmt.Errorf("audio: init: waiting for loader: %w", err)
	}
	apu.SendLoaderDataType(s.ports, apu.DataTypeCode)
	s.engine.Begin(code)
	if err = s.engine.Finish(ctx, s.bytesPerStep); err != nil {
		return fmt.Errorf("audio: init: driver code: %w", err)
	}
	s.logf("audio driver code transferred (%d bytes)", code.Length)

	s.flags |= FlagReloadCommonData
	s.clearQueues()
	s.setState(StateWaitingForLoader)

	return nil
}

// Process advances the session by one frame: a loader handshake or one transfer step while
// loading, at most one command dispatch while the driver runs. It only blocks inside a
// transfer step, for at most the configured transfer size.
func (s *Session) Process() {
	_ = s.process(context.Background())
}

// ProcessContext is Process with a way out of a transfer step's echo waits, for transports
// that can lose the coprocessor mid-step.
func (s *Session) ProcessContext(ctx context.Context) error {
	if err := s.process(ctx); err != nil {
		return fmt.Errorf("audio: process: %w", err)
	}
	return nil
}

func (s *Session) process(ctx context.Context) error {
	switch {
	case s.state == StateWaitingForLoader:
		s.processWaitingForLoader()
	case s.state.IsLoading():
		return s.processLoading(ctx)
	case s.state.IsDriverRunning():
		s.processCommands()
	}
	return nil
}

// FinishLoadingData runs Process until the loader is no longer active. The wait is unbounded
// unless ctx has a deadline.
func (s *Session) FinishLoadingData(ctx context.Context) error {
	for s.state.IsLoaderActive() {
		if err := s.process(ctx); err != nil {
			return fmt.Errorf("audio: finish loading: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("audio: finish loading: %w", err)
		}
	}
	return nil
}

func (s *Session) processWaitingForLoader() {
	if !apu.IsLoaderReady(s.ports) {
		return
	}

	if s.flags&FlagReloadCommonData != 0 {
		s.flags &^= FlagReloadCommonData

		region, ok := s.data.LoadAudioData(apu.DataTypeCommonData, 0)
		if !ok {
			s.logf("no common audio data available")
			region = transfer.Bytes(nil)
		}
		s.startTransfer(apu.DataTypeCommonData, region, StateLoadingCommonData)
		return
	}

	region, ok := s.data.LoadAudioData(apu.DataTypeMinSong, s.nextSong)
	if !ok {
		s.logf("song %d not available; loading blank song", s.nextSong)
		region = blankSongRegion()
	}

	play := s.flags&FlagPlaySongImmediately != 0
	next := StateLoadingSongDataPaused
	if play {
		next = StateLoadingSongDataPlay
	}

	// the driver ignores whatever is on the command port when it starts
	s.ports.WritePort(apu.CommandPort, 0)

	s.startTransfer(apu.SongDataType(s.flags&FlagStereo != 0, play), region, next)
}

func (s *Session) startTransfer(dataType apu.DataType, region transfer.Region, next State) {
	apu.SendLoaderDataType(s.ports, dataType)
	s.engine.Begin(region)
	s.logf("sending %s: %d bytes from %s", dataType, region.Length, region.Address)
	s.setState(next)
}

func (s *Session) processLoading(ctx context.Context) error {
	done, err := s.engine.Step(ctx, s.bytesPerStep)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	switch s.state {
	case StateLoadingCommonData:
		// the loader stays resident and asks for the next data type
		s.setState(StateWaitingForLoader)
	case StateLoadingSongDataPaused:
		s.songStarted(StatePaused)
	case StateLoadingSongDataPlay:
		s.songStarted(StatePlaying)
	}
	return nil
}

// songStarted runs once the loader has handed over to the audio driver.
func (s *Session) songStarted(state State) {
	s.clearQueues()
	s.previousCommand = 0
	s.commandID = 0
	s.setState(state)
}

// LoadSong requests song id. If the driver is running it is told to switch back to the
// loader and the session moves to StateWaitingForLoader without waiting for the coprocessor.
// A song transfer in progress is abandoned and restarted with the new song; a common data
// transfer is allowed to finish first.
func (s *Session) LoadSong(id uint8) {
	s.nextSong = id

	switch {
	case s.state.IsDriverRunning():
		s.ports.WritePort(apu.SwitchToLoaderPort, apu.SwitchToLoader)
		s.setState(StateWaitingForLoader)
	case s.state == StateLoadingSongDataPaused || s.state == StateLoadingSongDataPlay:
		s.engine.Abandon()
		s.ports.WritePort(apu.SpinlockPort, apu.SpinlockSwitchToLoader)
		s.setState(StateWaitingForLoader)
	}
}

// LoadSongIfChanged calls LoadSong only if id differs from the last requested song.
func (s *Session) LoadSongIfChanged(id uint8) bool {
	if id == s.nextSong && s.state != StateNull {
		return false
	}
	s.LoadSong(id)
	return true
}

package audio

import "tad/apu"

const (
	// CenterPan is used for sound effects queued without a pan or with one out of range.
	CenterPan = 64
	MaxPan    = 128

	// MinTickClock is the smallest tempo accepted by CommandSetSongTempo.
	MinTickClock = 64

	noSfx = 0xff
)

type commandSlot struct {
	command   Command
	parameter uint8
	full      bool
}

type sfxSlot struct {
	id  uint8
	pan uint8
}

var emptySfxSlot = sfxSlot{id: noSfx, pan: CenterPan}

func (s *Session) clearQueues() {
	s.command = commandSlot{}
	s.sfx = emptySfxSlot
}

func normalizeParameter(c Command, parameter uint8) uint8 {
	if c == CommandSetSongTempo && parameter < MinTickClock {
		return MinTickClock
	}
	return parameter
}

// QueueCommand queues a command for the audio driver. It returns false, leaving the queue
// alone, if a command is already waiting or if c is not a general command (sound effects go
// through QueueSoundEffect).
func (s *Session) QueueCommand(c Command, parameter uint8) bool {
	if !c.queueable() || s.command.full {
		return false
	}
	s.command = commandSlot{command: c, parameter: normalizeParameter(c, parameter), full: true}
	return true
}

// QueueCommandOverride queues a command, replacing any command already waiting. It only
// returns false for commands that cannot be queued at all.
func (s *Session) QueueCommandOverride(c Command, parameter uint8) bool {
	if !c.queueable() {
		return false
	}
	s.command = commandSlot{command: c, parameter: normalizeParameter(c, parameter), full: true}
	return true
}

// QueuePannedSoundEffect queues sound effect id unless a sound effect with a lower id is
// already waiting. Lower ids win.
func (s *Session) QueuePannedSoundEffect(id uint8, pan uint8) bool {
	if pan > MaxPan {
		pan = CenterPan
	}
	if id > s.sfx.id {
		return false
	}
	s.sfx = sfxSlot{id: id, pan: pan}
	return true
}

func (s *Session) QueueSoundEffect(id uint8) bool {
	return s.QueuePannedSoundEffect(id, CenterPan)
}

// processCommands sends at most one command, and only once the driver has acknowledged the
// previous one. Queued commands go before sound effects; sound effects only go while
// the music is playing.
func (s *Session) processCommands() {
	if !apu.PollForEcho(s.ports, apu.CommandAckPort, s.previousCommand) {
		return
	}

	if s.command.full {
		c := s.command
		s.command = commandSlot{}
		s.send(c.command, c.parameter, 0)

		if c.command.isPauseClass() {
			s.setState(StatePaused | State(c.command>>1))
		}
		return
	}

	if s.state == StatePlaying && s.sfx.id != noSfx {
		sfx := s.sfx
		s.sfx = emptySfxSlot
		s.send(CommandPlaySoundEffect, sfx.id, sfx.pan)
	}
}

func (s *Session) send(c Command, parameter0, parameter1 uint8) {
	value := encodeCommand(s.commandID.next(), c)

	s.ports.WritePort(apu.Parameter0Port, parameter0)
	s.ports.WritePort(apu.Parameter1Port, parameter1)
	// the command byte goes last
	s.ports.WritePort(apu.CommandPort, value)

	s.previousCommand = value
}

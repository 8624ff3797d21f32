package audio

import (
	"fmt"
	"tad/apu"
)

// Command is an audio driver command opcode. Opcodes occupy the `ccc` bits of the command
// byte so they are always even.
type Command uint8

const (
	// CommandPause pauses music and sound effects.
	CommandPause Command = 0
	// CommandPauseMusicPlaySfx pauses music and keeps sound effects playing.
	CommandPauseMusicPlaySfx Command = 2
	// CommandUnpause resumes music and sound effects.
	CommandUnpause Command = 4
	// CommandPlaySoundEffect is only ever sent from the sound effect slot.
	CommandPlaySoundEffect Command = 6
	// CommandStopSoundEffects stops all playing sound effects.
	CommandStopSoundEffects Command = 8
	// CommandSetMainVolume takes a signed volume parameter.
	CommandSetMainVolume Command = 10
	// CommandSetMusicChannels takes a channel enable bitmask.
	CommandSetMusicChannels Command = 12
	// CommandSetSongTempo takes a tick clock value, MinTickClock or above.
	CommandSetSongTempo Command = 14
)

func (c Command) valid() bool {
	return uint8(c)&^apu.CommandMask == 0
}

// queueable reports whether c may travel through the general command slot.
func (c Command) queueable() bool {
	return c.valid() && c != CommandPlaySoundEffect
}

// isPauseClass commands change the driver's pause state.
func (c Command) isPauseClass() bool {
	return c <= CommandUnpause
}

func (c Command) String() string {
	switch c {
	case CommandPause:
		return "PAUSE"
	case CommandPauseMusicPlaySfx:
		return "PAUSE_MUSIC_PLAY_SFX"
	case CommandUnpause:
		return "UNPAUSE"
	case CommandPlaySoundEffect:
		return "PLAY_SOUND_EFFECT"
	case CommandStopSoundEffects:
		return "STOP_SOUND_EFFECTS"
	case CommandSetMainVolume:
		return "SET_MAIN_VOLUME"
	case CommandSetMusicChannels:
		return "SET_MUSIC_CHANNELS"
	case CommandSetSongTempo:
		return "SET_SONG_TEMPO"
	}
	return fmt.Sprintf("Command(%#02x)", uint8(c))
}

// commandID is a 3-bit wrapping sequence number. Consecutive values always differ, so two
// consecutive command bytes differ even when the opcode repeats.
type commandID uint8

const commandIDShift = 5

func (id *commandID) next() commandID {
	*id = (*id + 1) & 7
	return *id
}

// encodeCommand packs id and opcode into the `iii0ccci` command byte.
func encodeCommand(id commandID, c Command) uint8 {
	return (uint8(id)<<commandIDShift)&apu.CommandIDMask | uint8(c)&apu.CommandMask
}

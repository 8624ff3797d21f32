package audio

import "fmt"

// State is the host's view of what the coprocessor is doing. The values are chosen so that
// loader states sort below driver states and a pause-class command opcode maps onto a driver
// state with `StatePaused | opcode>>1`.
type State uint8

const (
	// StateNull: the coprocessor has not been bootstrapped.
	StateNull State = 0x00
	// StateWaitingForLoader: the loader is (or will shortly be) waiting for a data type.
	StateWaitingForLoader State = 0x7c
	// StateLoadingCommonData: the shared samples/instruments are being transferred.
	StateLoadingCommonData State = 0x7d
	// StateLoadingSongDataPaused: song data is being transferred; the song starts paused.
	StateLoadingSongDataPaused State = 0x7e
	// StateLoadingSongDataPlay: song data is being transferred; the song starts playing.
	StateLoadingSongDataPlay State = 0x7f
	// StatePaused: the audio driver is running with music and sound effects paused.
	StatePaused State = 0x80
	// StatePlayingSfx: the audio driver is running with music paused and sound effects playing.
	StatePlayingSfx State = 0x81
	// StatePlaying: the audio driver is running with music and sound effects playing.
	StatePlaying State = 0x82
)

func (s State) IsLoading() bool {
	return s >= StateLoadingCommonData && s <= StateLoadingSongDataPlay
}

func (s State) IsLoaderActive() bool {
	return s >= StateWaitingForLoader && s < StatePaused
}

func (s State) IsDriverRunning() bool {
	return s >= StatePaused && s <= StatePlaying
}

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateWaitingForLoader:
		return "WAITING_FOR_LOADER"
	case StateLoadingCommonData:
		return "LOADING_COMMON_DATA"
	case StateLoadingSongDataPaused:
		return "LOADING_SONG_DATA_PAUSED"
	case StateLoadingSongDataPlay:
		return "LOADING_SONG_DATA_PLAY"
	case StatePaused:
		return "PAUSED"
	case StatePlayingSfx:
		return "PLAYING_SFX"
	case StatePlaying:
		return "PLAYING"
	}
	return fmt.Sprintf("State(%#02x)", uint8(s))
}

// Flags are the session options that travel with the next song.
type Flags uint8

const (
	FlagReloadCommonData    Flags = 1 << 0
	FlagPlaySongImmediately Flags = 1 << 6
	FlagStereo              Flags = 1 << 7
)

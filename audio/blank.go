package audio

import "tad/transfer"

// blankSong is sent when no song data is available: a header with no active channels, no
// subroutines and the default tick clock, so the driver starts and plays silence.
var blankSong = [...]byte{
	// active music channels
	0x00,
	// tick clock
	0x40,
	// echo: FIR filter (8 taps), EFB, EDL, EVOL L/R
	0x7f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	// subroutine count
	0x00,
	// channel start offsets (8 channels, $0000 = disabled)
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	// padding to a whole word
	0x00,
}

func blankSongRegion() transfer.Region {
	return transfer.Bytes(blankSong[:])
}

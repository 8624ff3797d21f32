package audiodata

import (
	"tad/apu"
	"tad/transfer"
)

// Blobs serves audio data held in memory. Songs[n] is song n; a nil or missing song selects
// the blank song.
type Blobs struct {
	Code   []byte
	Common []byte
	Songs  map[uint8][]byte
}

func (m *Blobs) LoadAudioData(dataType apu.DataType, song uint8) (transfer.Region, bool) {
	var b []byte
	switch dataType.Kind() {
	case apu.DataTypeCode:
		b = m.Code
	case apu.DataTypeCommonData:
		b = m.Common
	default:
		if song == 0 {
			return transfer.Region{}, false
		}
		b = m.Songs[song]
	}

	if b == nil {
		return transfer.Region{}, false
	}
	return transfer.Bytes(b), true
}

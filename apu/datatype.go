package apu

import "fmt"

// DataType selects what the loader receives next. Song selectors carry flag bits.
type DataType uint8

const (
	DataTypeCode       DataType = 0
	DataTypeCommonData DataType = 1
	DataTypeMinSong    DataType = 2

	DataTypeStereoFlagBit = 7
	DataTypePlaySongBit   = 6

	DataTypeStereoFlag DataType = 1 << DataTypeStereoFlagBit
	DataTypePlaySong   DataType = 1 << DataTypePlaySongBit
)

// SongDataType builds the selector for song data.
func SongDataType(stereo, play bool) DataType {
	t := DataTypeMinSong
	if stereo {
		t |= DataTypeStereoFlag
	}
	if play {
		t |= DataTypePlaySong
	}
	return t
}

// Kind strips the song flag bits.
func (t DataType) Kind() DataType {
	if t&^(DataTypeStereoFlag|DataTypePlaySong) >= DataTypeMinSong {
		return DataTypeMinSong
	}
	return t
}

func (t DataType) IsSong() bool { return t.Kind() == DataTypeMinSong }

func (t DataType) Stereo() bool { return t.IsSong() && t&DataTypeStereoFlag != 0 }

func (t DataType) PlaySong() bool { return t.IsSong() && t&DataTypePlaySong != 0 }

func (t DataType) String() string {
	switch t.Kind() {
	case DataTypeCode:
		return "code"
	case DataTypeCommonData:
		return "common-data"
	default:
		return fmt.Sprintf("song(stereo=%v,play=%v)", t.Stereo(), t.PlaySong())
	}
}

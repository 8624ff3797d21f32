package audiodata

import (
	"bytes"
	"errors"
	"testing"

	"tad/apu"
	"tad/transfer"
)

func blob(seed uint8, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed ^ uint8(i) ^ uint8(i>>8)
	}
	return b
}

func TestPack(t *testing.T) {
	code := blob(0x11, 0x1234)
	common := blob(0x22, 0x7000)
	songs := [][]byte{
		blob(0x33, 0x3000),
		nil,
		blob(0x55, 0x801),
	}

	rom, table, err := Pack("PACK TEST", code, common, songs)
	if err != nil {
		t.Fatal(err)
	}
	if err = rom.Validate(); err != nil {
		t.Fatalf("packed ROM does not validate: %v", err)
	}
	if rom.Title() != "PACK TEST" {
		t.Errorf("Title() = %q", rom.Title())
	}

	tests := []struct {
		name     string
		dataType apu.DataType
		song     uint8
		want     []byte
	}{
		{"code", apu.DataTypeCode, 0, code},
		{"common crosses a bank", apu.DataTypeCommonData, 0, common},
		{"song 1", apu.SongDataType(false, true), 1, songs[0]},
		{"song 2 empty", apu.SongDataType(false, true), 2, nil},
		{"song 3", apu.SongDataType(true, false), 3, songs[2]},
		{"song 0 is blank", apu.DataTypeMinSong, 0, nil},
		{"song past the table", apu.DataTypeMinSong, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, ok := table.LoadAudioData(tt.dataType, tt.song)
			if ok != (tt.want != nil) {
				t.Fatalf("LoadAudioData() ok = %v, want %v", ok, tt.want != nil)
			}
			if !ok {
				return
			}
			if region.Length != len(tt.want) {
				t.Fatalf("Length = %d, want %d", region.Length, len(tt.want))
			}
			if got := region.Copy(); !bytes.Equal(got, tt.want) {
				t.Error("region contents differ from the packed blob")
			}
		})
	}
}

func TestPack_Layout(t *testing.T) {
	_, table, err := Pack("LAYOUT", blob(1, 0x10), blob(2, 0x8000), [][]byte{blob(3, 4)})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		entry int
		want  transfer.Address
	}{
		{0, 0x81_8000},
		{1, 0x81_8010},
		{2, 0x82_8010},
	}
	for _, tt := range tests {
		region, ok, err := table.Entry(tt.entry)
		if err != nil || !ok {
			t.Fatalf("Entry(%d) = %v, %v", tt.entry, ok, err)
		}
		if region.Address != tt.want {
			t.Errorf("Entry(%d) at %v, want %v", tt.entry, region.Address, tt.want)
		}
	}
}

func TestPack_Errors(t *testing.T) {
	if _, _, err := Pack("BIG", blob(0, 0x10000), nil, nil); err == nil {
		t.Error("Pack() accepted a blob larger than an entry can describe")
	}
	if _, _, err := Pack("MANY", nil, nil, make([][]byte, 0x2000)); err == nil {
		t.Error("Pack() accepted a table overlapping the header")
	}
}

func TestTable_RejectsNonROMEntries(t *testing.T) {
	rom := make(transfer.ROM, 0x8000)
	// entry 0 points at WRAM:
	copy(rom, []byte{0x00, 0x00, 0x7E, 0x10, 0x00})

	table := &Table{Memory: rom, Address: TableAddress}
	if _, _, err := table.Entry(0); !errors.Is(err, transfer.ErrNotROMAddress) {
		t.Errorf("Entry(0) error = %v, want %v", err, transfer.ErrNotROMAddress)
	}
	if _, ok := table.LoadAudioData(apu.DataTypeCode, 0); ok {
		t.Error("LoadAudioData() served a WRAM address")
	}
}

func TestBlobs(t *testing.T) {
	m := &Blobs{
		Code:  []byte{1, 2},
		Songs: map[uint8][]byte{0: {9}, 7: {7, 7, 7}},
	}

	tests := []struct {
		name     string
		dataType apu.DataType
		song     uint8
		want     []byte
	}{
		{"code", apu.DataTypeCode, 0, []byte{1, 2}},
		{"no common data", apu.DataTypeCommonData, 0, nil},
		{"song 0 is always blank", apu.DataTypeMinSong, 0, nil},
		{"song 7", apu.SongDataType(true, true), 7, []byte{7, 7, 7}},
		{"unknown song", apu.DataTypeMinSong, 8, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, ok := m.LoadAudioData(tt.dataType, tt.song)
			if ok != (tt.want != nil) {
				t.Fatalf("LoadAudioData() ok = %v", ok)
			}
			if ok && !bytes.Equal(region.Copy(), tt.want) {
				t.Errorf("LoadAudioData() = % x, want % x", region.Copy(), tt.want)
			}
		})
	}
}

package audiodata

import (
	"fmt"
	"log"
	"tad/apu"
	"tad/transfer"
)

// EntrySize is the size of one table entry: a 24-bit little-endian bus address followed by a
// 16-bit little-endian byte count.
const EntrySize = 5

const (
	codeEntry   = 0
	commonEntry = 1
	// song n lives in entry songEntry+n; song 0 is the blank song and has no entry
	songEntry = 1
)

// Table serves audio data from a table in host ROM. Entry 0 is the driver code, entry 1 the
// common data and entry 1+n song n for 1 <= n <= SongCount.
type Table struct {
	Memory    transfer.Memory
	Address   transfer.Address
	SongCount int
}

func (t *Table) entryAddress(i int) transfer.Address {
	return t.Address.Add(uint32(i * EntrySize))
}

// Entry reads table entry i. A zero length entry is reported as not present.
func (t *Table) Entry(i int) (region transfer.Region, ok bool, err error) {
	if i < 0 || i > songEntry+t.SongCount {
		return transfer.Region{}, false, nil
	}

	var b [EntrySize]byte
	a := t.entryAddress(i)
	for j := range b {
		b[j] = t.Memory.EaRead(uint32(a))
		a = a.Next()
	}

	busAddr := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	size := int(b[3]) | int(b[4])<<8
	if size == 0 {
		return transfer.Region{}, false, nil
	}

	addr, err := transfer.NewAddress(busAddr)
	if err != nil {
		return transfer.Region{}, false, fmt.Errorf("audiodata: entry %d: %w", i, err)
	}

	return transfer.Region{Memory: t.Memory, Address: addr, Length: size}, true, nil
}

// LoadAudioData implements audio.AudioData. Malformed entries are logged and treated as
// missing.
func (t *Table) LoadAudioData(dataType apu.DataType, song uint8) (transfer.Region, bool) {
	var i int
	switch dataType.Kind() {
	case apu.DataTypeCode:
		i = codeEntry
	case apu.DataTypeCommonData:
		i = commonEntry
	default:
		if song == 0 || int(song) > t.SongCount {
			return transfer.Region{}, false
		}
		i = songEntry + int(song)
	}

	region, ok, err := t.Entry(i)
	if err != nil {
		log.Printf("%v\n", err)
		return transfer.Region{}, false
	}
	return region, ok
}

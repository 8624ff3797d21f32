package audiodata

import (
	"tad/snes"
	"tad/transfer"
)

// OpenImage checks that contents is an intact LoROM image, such as one written by Pack, and
// returns the table at TableAddress. The song count is taken from the last non-empty entry.
func OpenImage(contents []byte) (*snes.ROM, *Table, error) {
	rom, err := snes.NewROM(contents)
	if err != nil {
		return nil, nil, err
	}
	if err = rom.Validate(); err != nil {
		return nil, nil, err
	}

	t := &Table{Memory: transfer.ROM(rom.Contents), Address: TableAddress}
	t.SongCount = t.countSongs()
	return rom, t, nil
}

// countSongs scans the table space in front of the header. Pack leaves it zero after the
// last entry.
func (t *Table) countSongs() int {
	n := 0
	for i := songEntry + 1; (i+1)*EntrySize <= int(snes.HeaderOffset-t.Address.Pak()); i++ {
		a := t.entryAddress(i)
		for j := 0; j < EntrySize; j++ {
			if t.Memory.EaRead(uint32(a.Add(uint32(j)))) != 0 {
				n = i - songEntry
				break
			}
		}
	}
	return n
}

package audiodata

import (
	"fmt"
	"tad/snes"
	"tad/transfer"
)

// TableAddress is where Pack places the table.
const TableAddress = transfer.Address(0x80_8000)

// firstBlob is the linear ROM offset of the first blob: bank $81, clear of the table and the
// header in bank $80.
const firstBlob = 0x8000

const maxBlobSize = 0xFFFF

// Pack lays the blobs out in a new LoROM image: the table at $80:8000 and the data from
// $81:8000 onwards, packed back to back so blobs may cross banks. songs[0] is song 1.
func Pack(title string, code, common []byte, songs [][]byte) (rom *snes.ROM, table *Table, err error) {
	blobs := make([][]byte, 0, 2+len(songs))
	blobs = append(blobs, code, common)
	blobs = append(blobs, songs...)

	if len(blobs)*EntrySize > int(snes.HeaderOffset) {
		return nil, nil, fmt.Errorf("audiodata: %d songs do not fit in the table", len(songs))
	}

	size := firstBlob
	for i, b := range blobs {
		if len(b) > maxBlobSize {
			return nil, nil, fmt.Errorf("audiodata: blob %d is %d bytes; entries hold at most %d", i, len(b), maxBlobSize)
		}
		size += len(b)
	}

	rom, err = snes.NewLoROM(size, title)
	if err != nil {
		return nil, nil, err
	}

	pak := uint32(firstBlob)
	for i, b := range blobs {
		addr := transfer.AddressFromPak(pak)
		if len(b) == 0 {
			addr = 0
		}

		e := uint32(TableAddress.Pak()) + uint32(i*EntrySize)
		rom.Contents[e+0] = uint8(addr)
		rom.Contents[e+1] = uint8(addr >> 8)
		rom.Contents[e+2] = uint8(addr >> 16)
		rom.Contents[e+3] = uint8(len(b))
		rom.Contents[e+4] = uint8(len(b) >> 8)

		copy(rom.Contents[pak:], b)
		pak += uint32(len(b))
	}

	if err = rom.UpdateChecksum(); err != nil {
		return nil, nil, err
	}

	table = &Table{
		Memory:    transfer.ROM(rom.Contents),
		Address:   TableAddress,
		SongCount: len(songs),
	}
	return
}

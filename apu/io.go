package apu

// IPL ROM handshake:
const (
	IPLReadyPortL = Port0
	IPLReadyPortH = Port1
	IPLReadyL     = 0xAA
	IPLReadyH     = 0xBB

	IPLIndexPort   = Port0
	IPLDataPort    = Port1
	IPLAddressPort = Port2 // and Port3
	IPLStart       = 0xCC
)

// ToDriver ports (host -> audio driver):
//
// The command byte is laid out as `iii0ccci`:
//
//	ccc = command
//	0   = reserved
//	i   = command id; must differ on every command so the driver can detect a new one
//
// The command byte must be written last and the command and parameter bytes must not change
// until the previous command has been acknowledged.
const (
	CommandPort        = Port0
	Parameter0Port     = Port1
	Parameter1Port     = Port2
	SwitchToLoaderPort = Port3

	CommandMask   = 0b0000_1110
	CommandIDMask = 0b1110_0001

	// SwitchToLoaderBit set on SwitchToLoaderPort stops the driver and restarts the loader.
	SwitchToLoaderBit = 5
	SwitchToLoader    = 0x80 | (1 << SwitchToLoaderBit)
)

// ToScpu ports (audio driver -> host):
const (
	CommandAckPort = Port0
	ModePort       = Port1

	ModeIPL         = 0xBB
	ModeLoader      = LoaderReadyL
	ModeAudioDriver = 0x61
)

// Loader initialisation ports:
const (
	LoaderDataTypePort = Port1
	ReadyPortL         = Port2
	ReadyPortH         = Port3

	LoaderReadyL = 'L'
	LoaderReadyH = 'D'
)

// Loader transfer ports:
const (
	DataPortL    = Port1
	DataPortH    = Port2
	SpinlockPort = Port3

	// SpinlockInit is echoed by the loader once it has accepted a data type.
	SpinlockInit = 0
	// SpinlockMask covers the bits that carry the rolling counter.
	SpinlockMask = 0x0f
	// SpinlockMax is the highest counter value; the counter wraps from here back to 1.
	SpinlockMax = 7
	// SpinlockComplete signals the end of the current data type.
	SpinlockComplete = 0x80
	// SpinlockSwitchToLoader written to the spinlock mid-transfer restarts the loader.
	SpinlockSwitchToLoader = SwitchToLoader
)

// NextSpinlock returns the counter value following prev. The counter runs 1..7 and never
// produces 0, which is reserved for SpinlockInit.
func NextSpinlock(prev uint8) uint8 {
	next := (prev + 1) & SpinlockMask
	if next == 0 || next > SpinlockMax {
		next = 1
	}
	return next
}

package apu

import "context"

// pollsPerContextCheck bounds how often a busy wait consults its context.
const pollsPerContextCheck = 256

// WriteHandshakeByte writes one handshake byte. Rewriting the value already present is
// harmless; the coprocessor only reacts to changes.
func WriteHandshakeByte(p Ports, port Port, value uint8) {
	p.WritePort(port, value)
}

// PollForEcho reads port exactly once and reports whether the coprocessor has echoed
// expected back.
func PollForEcho(p Ports, port Port, expected uint8) bool {
	return p.ReadPort(port) == expected
}

// WaitForEcho busy-waits until port reads expected.
// A coprocessor that never answers keeps this looping until ctx is done.
func WaitForEcho(ctx context.Context, p Ports, port Port, expected uint8) error {
	for n := 0; ; n++ {
		if PollForEcho(p, port, expected) {
			return nil
		}
		if n%pollsPerContextCheck == pollsPerContextCheck-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// WaitFor busy-waits until cond returns true, with the same cancellation rules as WaitForEcho.
func WaitFor(ctx context.Context, cond func() bool) error {
	for n := 0; ; n++ {
		if cond() {
			return nil
		}
		if n%pollsPerContextCheck == pollsPerContextCheck-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// IsLoaderReady reads the two ready ports once each and compares them to the loader's
// ready signature.
func IsLoaderReady(p Ports) bool {
	return p.ReadPort(ReadyPortL) == LoaderReadyL && p.ReadPort(ReadyPortH) == LoaderReadyH
}

// SendLoaderDataType answers the loader's ready signature with the data type to receive next.
// The loader replies by echoing SpinlockInit on SpinlockPort.
func SendLoaderDataType(p Ports, dataType DataType) {
	p.WritePort(LoaderDataTypePort, uint8(dataType))
	p.WritePort(ReadyPortL, LoaderReadyL)
	p.WritePort(ReadyPortH, LoaderReadyH)
}

package transfer

import (
	"context"
	"fmt"
	"tad/apu"
)

// Job is the remainder of one data type being sent to the loader.
type Job struct {
	region       Region
	addr         Address
	remaining    int
	prevSpinlock uint8
}

func (j *Job) next() uint8 {
	if j.remaining <= 0 {
		// odd lengths are padded to a whole word
		return 0
	}
	b := j.region.Memory.EaRead(uint32(j.addr))
	j.addr = j.addr.Next()
	j.remaining--
	return b
}

// Engine pushes a Job through the loader's data ports two bytes at a time. After each word
// the spinlock counter is advanced and the next word is only sent once the loader has echoed
// it back.
type Engine struct {
	ports apu.Ports
	job   *Job
}

func NewEngine(ports apu.Ports) *Engine {
	return &Engine{ports: ports}
}

// Begin records a new Job. The loader must already have accepted the data type and will echo
// apu.SpinlockInit before the first word.
func (e *Engine) Begin(r Region) {
	e.job = &Job{
		region:       r,
		addr:         r.Address,
		remaining:    r.Length,
		prevSpinlock: apu.SpinlockInit,
	}
}

// Active reports whether a Job is in progress.
func (e *Engine) Active() bool { return e.job != nil }

// Remaining returns the bytes left in the current Job.
func (e *Engine) Remaining() int {
	if e.job == nil {
		return 0
	}
	return e.job.remaining
}

// Abandon drops the current Job without telling the loader.
func (e *Engine) Abandon() { e.job = nil }

// Step sends up to maxBytes (rounded down to whole words, at least one word).
// If the loader has not yet echoed the previous word, Step returns immediately without
// sending anything. Between words of one step it busy-waits for the echo; ctx is the only
// way out of that wait.
func (e *Engine) Step(ctx context.Context, maxBytes int) (done bool, err error) {
	j := e.job
	if j == nil {
		return true, nil
	}

	p := e.ports
	if !apu.PollForEcho(p, apu.SpinlockPort, j.prevSpinlock) {
		return false, nil
	}

	words := maxBytes / 2
	if words < 1 {
		words = 1
	}

	for ; words > 0 && j.remaining > 0; words-- {
		lo := j.next()
		hi := j.next()
		p.WritePort(apu.DataPortL, lo)
		p.WritePort(apu.DataPortH, hi)

		j.prevSpinlock = apu.NextSpinlock(j.prevSpinlock)
		p.WritePort(apu.SpinlockPort, j.prevSpinlock)

		// the last word of a step is checked by the next step's poll, except the final word
		// which must be echoed before the complete marker
		if words > 1 || j.remaining == 0 {
			if err = apu.WaitForEcho(ctx, p, apu.SpinlockPort, j.prevSpinlock); err != nil {
				return false, fmt.Errorf("transfer: waiting for spinlock $%02x: %w", j.prevSpinlock, err)
			}
		}
	}

	if j.remaining > 0 {
		return false, nil
	}

	p.WritePort(apu.SpinlockPort, apu.SpinlockComplete)
	e.job = nil
	return true, nil
}

// Finish steps the current Job until it is done.
func (e *Engine) Finish(ctx context.Context, maxBytes int) error {
	for {
		done, err := e.Step(ctx, maxBytes)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err = ctx.Err(); err != nil {
			return err
		}
	}
}

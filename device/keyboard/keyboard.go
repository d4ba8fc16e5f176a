// Package keyboard implements the generic DCPU-16 keyboard device: a
// small ring buffer of raw key codes, fed by the host's input surface
// (the CLI's stdin reader) and drained by the guest via HWI.
package keyboard

import (
	"sync"
	"time"

	"github.com/markcol/dcpu16/device"
)

const (
	regA = 0
	regB = 1
	regC = 2
)

const bufSize = 256

// Host key codes the keyboard spec singles out as non-ASCII.
const (
	Backspace = 0x10
	Return    = 0x11
	Up        = 0x80
	Down      = 0x81
	Left      = 0x82
	Right     = 0x83
)

// Keyboard is a Device plus the host-facing PushKey method. PushKey runs
// on whatever goroutine reads host input, never the one stepping the
// CPU, so the ring buffer is guarded by its own mutex. PushKey never
// touches CPU state directly: it only raises a pending flag, which Tick
// — always called from the CPU's own goroutine, under its step lock —
// turns into an interrupt. This keeps every CPU mutation on the single
// actor the core interpreter already relies on.
type Keyboard struct {
	mu         sync.Mutex
	buf        [bufSize]uint16
	readIndex  int
	writeIndex int
	pending    bool

	intMsg uint16
}

// New returns a keyboard device, identified exactly as the original
// DCPU-16 reference keyboard (device id 0x30cf7406, manufacturer
// 0x01220423, version 1).
func New() (*Keyboard, device.Device) {
	k := &Keyboard{}
	return k, &device.Generic{
		IDValue: device.ID{
			Device:  0x30cf7406,
			Version: 1,
			Mfr:     0x01220423,
		},
		HWIFunc:  k.hwi,
		TickFunc: k.tick,
	}
}

// PushKey enqueues a raw key code from the host and marks an interrupt
// pending; Tick delivers it on the CPU's own goroutine. A full buffer
// silently drops the new key (keys already buffered are kept), matching
// the reference driver's "keep going, we just won't interrupt as
// promptly" tolerance for a full buffer.
func (k *Keyboard) PushKey(code uint16) {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := (k.writeIndex + 1) % bufSize
	if next == k.readIndex {
		return
	}
	k.buf[k.writeIndex] = code
	k.writeIndex = next
	k.pending = true
}

func (k *Keyboard) hwi(cpu device.CPU) uint16 {
	switch cpu.Reg(regA) {
	case 0:
		k.mu.Lock()
		k.readIndex = 0
		k.writeIndex = 0
		k.mu.Unlock()
	case 1:
		cpu.SetReg(regC, k.readKey())
	case 2:
		// Host key delivery is event-based, so "currently pressed" has no
		// meaningful answer; report not-pressed, as the reference
		// terminal driver does for its instantaneous curses reads.
		cpu.SetReg(regC, 0)
	case 3:
		k.intMsg = cpu.Reg(regB)
	}
	return 0
}

func (k *Keyboard) readKey() uint16 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.readIndex == k.writeIndex {
		return 0
	}
	c := k.buf[k.readIndex]
	k.readIndex = (k.readIndex + 1) % bufSize
	return c
}

// tick runs on the CPU's own goroutine (under its step lock, like every
// Tick call): it's the one place this device is allowed to raise an
// interrupt, so a key pushed from the host thread only reaches the CPU
// here.
func (k *Keyboard) tick(cpu device.CPU, _ time.Time) {
	k.mu.Lock()
	fire := k.pending
	k.pending = false
	k.mu.Unlock()
	if fire && k.intMsg != 0 {
		cpu.RaiseInterrupt(k.intMsg)
	}
}

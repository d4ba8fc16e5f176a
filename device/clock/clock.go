// Package clock implements the generic DCPU-16 clock device: a
// programmable interval timer that can raise a message on the CPU's
// interrupt queue every N/60th of a second.
package clock

import (
	"time"

	"github.com/markcol/dcpu16/device"
)

// Register offsets, mirrored from the core package to avoid an import
// cycle (device code is written against device.CPU, not dcpu16.CPU).
const (
	regA = 0
	regB = 1
	regC = 2
)

// hz is the clock device's base rate: a rate argument of n ticks the
// clock every n/60th of a second.
const hz = 60

// New returns a generic clock device, identified exactly as the original
// DCPU-16 reference clock (device id 0x12d0b402, manufacturer
// 0x01220423, version 1).
func New() device.Device {
	c := &clockState{}
	return &device.Generic{
		IDValue: device.ID{
			Device:  0x12d0b402,
			Version: 1,
			Mfr:     0x01220423,
		},
		HWIFunc:  c.hwi,
		TickFunc: c.tick,
	}
}

type clockState struct {
	interval time.Duration // 0 means stopped
	nextTick time.Time
	msg      uint16
	ticks    uint16
}

// setRate implements HWI function 0: B sets the number of 1/60s to wait
// between ticks; 0 stops the clock.
func (c *clockState) setRate(rate uint16) {
	c.ticks = 0
	if rate == 0 {
		c.interval = 0
		return
	}
	c.interval = time.Second * time.Duration(rate) / hz
	c.nextTick = time.Now().Add(c.interval)
}

func (c *clockState) hwi(cpu device.CPU) uint16 {
	switch cpu.Reg(regA) {
	case 0:
		c.setRate(cpu.Reg(regB))
	case 1:
		cpu.SetReg(regC, c.ticks)
	case 2:
		c.msg = cpu.Reg(regB)
	}
	return 0
}

func (c *clockState) tick(cpu device.CPU, now time.Time) {
	if c.interval == 0 {
		return
	}
	if now.After(c.nextTick) {
		c.ticks++
		if c.msg != 0 {
			cpu.RaiseInterrupt(c.msg)
		}
		c.nextTick = c.nextTick.Add(c.interval)
	}
}

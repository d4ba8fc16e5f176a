// Package device defines the DCPU-16 hardware bus: a small, fixed-capacity
// registry of devices that the core interpreter queries and interrupts via
// the HWN/HWQ/HWI special opcodes, and polls once per clock cycle.
//
// A device never holds a reference to the CPU: it receives one as an
// argument on every call, resolving the cyclic "clock needs to raise
// interrupts on the CPU that drives it" relationship without either side
// owning the other.
package device

import "time"

// Capacity is the maximum number of devices a Bus can hold.
const Capacity = 8

// ID identifies a device the way HWQ reports it: a 32-bit device id, a
// 16-bit version, and a 32-bit manufacturer id.
type ID struct {
	Device  uint32
	Version uint16
	Mfr     uint32
}

// CPU is the subset of core interpreter state a device needs: register and
// memory access, plus the ability to raise a hardware interrupt. The core
// dcpu16.CPU type satisfies this interface; devices are written against it
// so that device and dcpu16 never import one another.
type CPU interface {
	Reg(i int) uint16
	SetReg(i int, v uint16)
	ReadRAM(addr uint16) uint16
	WriteRAM(addr uint16, v uint16)
	RaiseInterrupt(msg uint16)
}

// Device is one entry on the bus. HWI runs the device's hardware
// interrupt handler and returns the number of extra cycles the caller
// must charge beyond the baseline HWI cost. Tick runs once per emulated
// cycle, before the pacer sleeps, and is where a device observes
// wall-clock time and raises its own interrupts.
type Device interface {
	ID() ID
	HWI(cpu CPU) (extraCycles uint16)
	Tick(cpu CPU, now time.Time)
}

// Generic wraps two plain functions as a Device, for devices (like the
// clock and keyboard) that don't need any exported state of their own
// beyond what their closures capture.
type Generic struct {
	IDValue  ID
	HWIFunc  func(cpu CPU) uint16
	TickFunc func(cpu CPU, now time.Time)
}

func (g *Generic) ID() ID { return g.IDValue }

func (g *Generic) HWI(cpu CPU) uint16 {
	if g.HWIFunc == nil {
		return 0
	}
	return g.HWIFunc(cpu)
}

func (g *Generic) Tick(cpu CPU, now time.Time) {
	if g.TickFunc != nil {
		g.TickFunc(cpu, now)
	}
}

// Bus is the fixed-capacity, append-only-after-init device registry.
// Devices are indexed by registration order; HWQ/HWI address them by that
// index.
type Bus struct {
	devices [Capacity]Device
	n       int
}

// Attach registers d at the next free slot. It reports false if the bus
// is already at Capacity; the device set is meant to be assembled once
// during startup.
func (b *Bus) Attach(d Device) bool {
	if b.n >= Capacity {
		return false
	}
	b.devices[b.n] = d
	b.n++
	return true
}

// Count returns the number of registered devices (HWN's result).
func (b *Bus) Count() uint16 {
	return uint16(b.n)
}

// At returns the device at index i, or ok=false if i is out of range —
// HWQ/HWI are silent no-ops (beyond charged cycles) on an out-of-range
// index.
func (b *Bus) At(i uint16) (Device, bool) {
	if int(i) >= b.n {
		return nil, false
	}
	return b.devices[i], true
}

// All returns the registered devices, in registration order, for the
// pacer to poll every cycle.
func (b *Bus) All() []Device {
	return b.devices[:b.n]
}

// Package lem1802 implements the LEM-1802 low energy monitor: a
// 32x12-character tile display mapped into guest RAM, with a built-in
// default font and palette the guest can either use as-is or copy out
// and override via HWI.
package lem1802

import (
	"time"

	"github.com/markcol/dcpu16/device"
)

const (
	regA = 0
	regB = 1
)

// Screen geometry, in character cells and pixels per glyph.
const (
	Width       = 32
	Height      = 12
	GlyphWidth  = 4
	GlyphHeight = 8
)

// HWI subfunctions, per the LEM-1802 hardware spec.
const (
	mapScreen   = 0
	mapFont     = 1
	mapPalette  = 2
	setBorder   = 3
	dumpFont    = 4
	dumpPalette = 5
)

// tickHz is the display's redraw rate.
const tickHz = 30

// LEM is the display's addressable state: the three mapped base
// addresses (0 means unmapped) and the current border color index.
type LEM struct {
	vram   uint16
	font   uint16
	pal    uint16
	border uint16

	interval time.Duration
	nextTick time.Time

	// Snapshot is called, if set, every redraw tick with the rendered
	// tiles and a resolver from palette index to RGB444 color; the
	// CLI installs this to drive a terminal renderer without
	// polling RAM on its own goroutine. colorOf honors MEM_MAP_PALETTE,
	// so a guest-supplied palette is reflected in the host rendering.
	Snapshot func(tiles [Height][Width]Tile, border uint16, colorOf func(index uint8) uint16)
}

// Tile is one decoded character cell: glyph index, blink flag, and
// foreground/background palette indices.
type Tile struct {
	Glyph      uint8
	Blink      bool
	Foreground uint8
	Background uint8
}

// New returns a LEM-1802 device, identified exactly as the original
// DCPU-16 reference display (device id 0x7349f615, manufacturer
// 0x1c6c8b36, version 0x1802).
func New() (*LEM, device.Device) {
	l := &LEM{interval: time.Second / tickHz}
	return l, &device.Generic{
		IDValue: device.ID{
			Device:  0x7349f615,
			Version: 0x1802,
			Mfr:     0x1c6c8b36,
		},
		HWIFunc:  l.hwi,
		TickFunc: l.tick,
	}
}

func decodeTile(word uint16) Tile {
	return Tile{
		Glyph:      uint8(word & 0x7f),
		Blink:      word&0x80 != 0,
		Background: uint8((word >> 8) & 0xf),
		Foreground: uint8(word >> 12),
	}
}

func (l *LEM) hwi(cpu device.CPU) uint16 {
	switch cpu.Reg(regA) {
	case mapScreen:
		l.vram = cpu.Reg(regB)
	case mapFont:
		l.font = cpu.Reg(regB)
	case mapPalette:
		l.pal = cpu.Reg(regB)
	case setBorder:
		l.border = cpu.Reg(regB) & 0xf
	case dumpFont:
		base := cpu.Reg(regB)
		for i, w := range DefaultFont {
			cpu.WriteRAM(base+uint16(i), w)
		}
		return 256
	case dumpPalette:
		base := cpu.Reg(regB)
		for i, w := range DefaultPalette {
			cpu.WriteRAM(base+uint16(i), w)
		}
		return 16
	}
	return 0
}

func (l *LEM) tick(cpu device.CPU, now time.Time) {
	if l.vram == 0 {
		return
	}
	if l.nextTick.IsZero() {
		l.nextTick = now
	}
	if now.Before(l.nextTick) {
		return
	}
	l.nextTick = l.nextTick.Add(l.interval)
	if l.Snapshot == nil {
		return
	}
	var tiles [Height][Width]Tile
	addr := l.vram
	for row := 0; row < Height; row++ {
		for col := 0; col < Width; col++ {
			tiles[row][col] = decodeTile(cpu.ReadRAM(addr))
			addr++
		}
	}
	l.Snapshot(tiles, l.border, func(index uint8) uint16 { return l.Palette(cpu, index) })
}

// Palette resolves a 4-bit palette index to an RGB444 color, either
// from the default palette or from a region of guest RAM the program
// has mapped with MEM_MAP_PALETTE.
func (l *LEM) Palette(cpu device.CPU, index uint8) uint16 {
	if l.pal == 0 {
		return DefaultPalette[index]
	}
	return cpu.ReadRAM(l.pal + uint16(index))
}

// Font resolves a glyph index to its two-word bitmap (GlyphWidth x
// GlyphHeight pixels, column-major), either from the default font or
// from a region of guest RAM mapped with MEM_MAP_FONT. Nothing in this
// module's text-mode rendering calls it; it's the seam a pixel-based
// --graphics backend would use to rasterize real glyphs instead of the
// plain-text approximation the CLI draws today.
func (l *LEM) Font(cpu device.CPU, glyph uint8) (uint16, uint16) {
	base := uint16(glyph) * 2
	if l.font == 0 {
		return DefaultFont[base], DefaultFont[base+1]
	}
	return cpu.ReadRAM(l.font + base), cpu.ReadRAM(l.font + base + 1)
}

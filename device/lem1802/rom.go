package lem1802

// DefaultPalette is the LEM-1802's built-in 16-color palette, as RGB444
// words (0x0RGB), dumped to guest RAM by HWI function 5.
var DefaultPalette = [16]uint16{
	0x0000, 0x000a, 0x00a0, 0x00aa,
	0x0a00, 0x0a0a, 0x0a50, 0x0aaa,
	0x0555, 0x055f, 0x05f5, 0x05ff,
	0x0f55, 0x0f5f, 0x0ff5, 0x0fff,
}

// DefaultFont is the LEM-1802's built-in 128-glyph font, two words per
// glyph, dumped to guest RAM by HWI function 4. Each pair of words packs
// one 4x8 glyph column-major, high bit of the low byte at the bottom of
// the first column.
//
// The device's boot-time font is a simplified block set (every printable
// glyph is the same solid block rather than a typeface); a
// program that cares about the exact reference glyph shapes should
// ship its own font and MEM_MAP_FONT it in, which every real DCPU-16
// program intending to be legible already does.
var DefaultFont = buildDefaultFont()

func buildDefaultFont() [256]uint16 {
	var font [256]uint16
	// Printable ASCII (0x20-0x7e) gets a solid block so text is at
	// least visible; everything else is left blank. Glyph index equals
	// the ASCII code, per the font's low-7-bits-of-the-tile-word
	// convention.
	const full = 0xffff
	for ch := uint16(0x20); ch <= 0x7e; ch++ {
		if ch == ' ' {
			continue
		}
		base := ch * 2
		font[base] = full
		font[base+1] = full
	}
	return font
}

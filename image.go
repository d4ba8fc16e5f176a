package dcpu16

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LoadImage reads a raw memory image from r into RAM starting at
// address 0 and returns the number of words loaded. Images shorter
// than RAMSIZE words leave the remainder of RAM zeroed; an image that
// exceeds RAMSIZE is an error.
//
// bigEndian selects the byte order of the words in r. The reference
// toolchain writes big-endian images; little-endian is accepted for
// images produced by a little-endian assembler.
func (c *CPU) LoadImage(r io.Reader, bigEndian bool) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var buf [2]byte
	words := 0
	for words < RAMSIZE {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return words, fmt.Errorf("reading image: %w", err)
		}
		var w uint16
		if bigEndian {
			w = binary.BigEndian.Uint16(buf[:])
		} else {
			w = binary.LittleEndian.Uint16(buf[:])
		}
		c.ram[words] = w
		words++
	}

	for i := words; i < RAMSIZE; i++ {
		c.ram[i] = 0
	}

	// An image that's still producing bytes past RAMSIZE words doesn't
	// fit. A trailing odd byte in a shorter image is ignored.
	if words == RAMSIZE {
		var extra [1]byte
		if n, _ := r.Read(extra[:]); n > 0 {
			return words, fmt.Errorf("image exceeds %d words of RAM", RAMSIZE)
		}
	}
	return words, nil
}

// CoreDump writes limit words of RAM to w, always in big-endian order
// (the reference toolchain's core image format). limit of zero dumps
// all of RAM.
func (c *CPU) CoreDump(w io.Writer, limit uint16) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := int(limit)
	if limit == 0 {
		n = RAMSIZE
	}
	buf := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint16(buf[2*i:], c.ram[i])
	}
	_, err := w.Write(buf)
	return err
}

// Package disasm renders DCPU-16 1.7 machine words as assembly text,
// for the debugger's print command.
package disasm

import (
	"fmt"
	"io"
)

var registerNames = []string{"A", "B", "C", "X", "Y", "Z", "I", "J"}

var basicNames = map[uint16]string{
	0x01: "SET", 0x02: "ADD", 0x03: "SUB", 0x04: "MUL", 0x05: "MLI",
	0x06: "DIV", 0x07: "DVI", 0x08: "MOD", 0x09: "MDI", 0x0a: "AND",
	0x0b: "BOR", 0x0c: "XOR", 0x0d: "SHR", 0x0e: "ASR", 0x0f: "SHL",
	0x10: "IFB", 0x11: "IFC", 0x12: "IFE", 0x13: "IFN", 0x14: "IFG",
	0x15: "IFA", 0x16: "IFL", 0x17: "IFU", 0x1a: "ADX", 0x1b: "SBX",
	0x1e: "STI", 0x1f: "STD",
}

var specialNames = map[uint16]string{
	0x01: "JSR", 0x02: "IMG", 0x03: "DIE", 0x04: "DBG",
	0x08: "INT", 0x09: "IAG", 0x0a: "IAS", 0x0b: "RFI", 0x0c: "IAQ",
	0x10: "HWN", 0x11: "HWQ", 0x12: "HWI",
}

// WordReader is the minimal sequential-word source a disassembly pass
// needs; a RAM image wrapped by NewWordReader satisfies it.
type WordReader interface {
	ReadWord() (w uint16, err error)
}

type wordReader struct {
	m []uint16
	i int
}

// NewWordReader wraps a RAM slice (or image) for sequential reading.
func NewWordReader(m []uint16) WordReader { return &wordReader{m: m} }

func (r *wordReader) ReadWord() (uint16, error) {
	if r.i >= len(r.m) {
		return 0, io.EOF
	}
	w := r.m[r.i]
	r.i++
	return w, nil
}

// Disassemble reads words from r, starting at the given address, and
// writes one line of assembly text per instruction to w until r is
// exhausted.
func Disassemble(addr uint16, r WordReader, w io.Writer) error {
	for {
		line, next, err := disassembleOne(addr, r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
		addr = next
	}
}

func disassembleOne(addr uint16, r WordReader) (line string, next uint16, err error) {
	start := addr
	instr, err := r.ReadWord()
	if err != nil {
		return "", addr, err
	}
	addr++

	opcode := instr & 0x001f
	if opcode != 0 {
		name, ok := basicNames[opcode]
		if !ok {
			return fmt.Sprintf("0x%04x:\t\t.dat 0x%04x\n", start, instr), addr, nil
		}
		a, aAddr, err := addrMode((instr>>10)&0x3f, addr, r, true)
		if err != nil {
			return "", addr, err
		}
		b, bAddr, err := addrMode((instr>>5)&0x1f, aAddr, r, false)
		if err != nil {
			return "", addr, err
		}
		return fmt.Sprintf("0x%04x:\t\t%s\t%s, %s\n", start, name, b, a), bAddr, nil
	}

	special := (instr >> 5) & 0x1f
	name, ok := specialNames[special]
	if !ok {
		return fmt.Sprintf("0x%04x:\t\t.dat 0x%04x\n", start, instr), addr, nil
	}
	a, aAddr, err := addrMode((instr>>10)&0x3f, addr, r, true)
	if err != nil {
		return "", addr, err
	}
	return fmt.Sprintf("0x%04x:\t\t%s\t%s\n", start, name, a), aAddr, nil
}

func addrMode(field uint16, addr uint16, r WordReader, isA bool) (s string, next uint16, err error) {
	switch {
	case field <= 0x07:
		return registerNames[field], addr, nil
	case field <= 0x0f:
		return fmt.Sprintf("[%s]", registerNames[field-0x08]), addr, nil
	case field <= 0x17:
		v, err := r.ReadWord()
		if err != nil {
			return "", addr, err
		}
		return fmt.Sprintf("[0x%x+%s]", v, registerNames[field-0x10]), addr + 1, nil
	case field == 0x18:
		if isA {
			return "POP", addr, nil
		}
		return "PUSH", addr, nil
	case field == 0x19:
		return "PEEK", addr, nil
	case field == 0x1a:
		v, err := r.ReadWord()
		if err != nil {
			return "", addr, err
		}
		return fmt.Sprintf("[SP+0x%x]", v), addr + 1, nil
	case field == 0x1b:
		return "SP", addr, nil
	case field == 0x1c:
		return "PC", addr, nil
	case field == 0x1d:
		return "EX", addr, nil
	case field == 0x1e:
		v, err := r.ReadWord()
		if err != nil {
			return "", addr, err
		}
		return fmt.Sprintf("[0x%x]", v), addr + 1, nil
	case field == 0x1f:
		v, err := r.ReadWord()
		if err != nil {
			return "", addr, err
		}
		return fmt.Sprintf("0x%x", v), addr + 1, nil
	case field <= 0x3f:
		return fmt.Sprintf("0x%x", int32(field)-0x21), addr, nil
	}
	return "?", addr, nil
}

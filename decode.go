package dcpu16

// storeKind tags where an operand's value came from, and where a write
// to it should go. This replaces the "raw pointer, or null for literal"
// trick with an explicit branch in store, per the design's resolution of
// the "silent fault on literal write" problem: a write to storeNone is an
// explicit no-op, not an aliased write through a scratch pointer.
type storeKind uint8

const (
	storeNone storeKind = iota
	storeReg
	storeRAM
	storeSP
	storePC
	storeEX
)

// operand is the result of decoding one a/b field: a value to feed the
// instruction, and where (if anywhere) a result should be written back.
type operand struct {
	value uint16
	kind  storeKind
	index uint16 // register index (storeReg) or RAM address (storeRAM)
}

// store writes v to op's target. Writing to storeNone (a literal or
// otherwise unwritable operand) is a silent no-op, as required by the
// instruction set: "if any instruction tries to assign a literal value,
// the assignment fails silently."
func (c *CPU) store(op operand, v uint16) {
	switch op.kind {
	case storeReg:
		c.reg[op.index] = v
	case storeRAM:
		c.ram[op.index] = v
	case storeSP:
		c.sp = v
	case storePC:
		c.pc = v
	case storeEX:
		c.ex = v
	}
}

// decodeOperand resolves a 6-bit a-field or 5-bit b-field to a value and
// write-back target. effects controls whether this decode charges
// cycles and mutates SP (false during skip decoding: PC must still
// advance past any extra word, but nothing else may happen). isA
// distinguishes the two operands that share field 0x18 (POP as a, PUSH
// as b).
func (c *CPU) decodeOperand(field uint16, isA bool, effects bool) operand {
	switch {
	case field <= 0x07: // register
		return operand{value: c.reg[field], kind: storeReg, index: field}

	case field <= 0x0f: // [register]
		addr := c.reg[field-0x08]
		return operand{value: c.ram[addr], kind: storeRAM, index: addr}

	case field <= 0x17: // [register + next word]
		reg := c.reg[field-0x10]
		addr := reg + c.fetchWord(effects)
		return operand{value: c.ram[addr], kind: storeRAM, index: addr}

	case field == fieldPSHP:
		if isA {
			// POP: read [SP], then SP++ (old top).
			addr := c.sp
			if effects {
				c.sp++
			}
			return operand{value: c.ram[addr], kind: storeRAM, index: addr}
		}
		// PUSH: SP--, then target is [SP] (new top).
		addr := c.sp
		if effects {
			addr = c.sp - 1
			c.sp = addr
		}
		return operand{value: c.ram[addr], kind: storeRAM, index: addr}

	case field == fieldPEEK: // [SP], unchanged
		return operand{value: c.ram[c.sp], kind: storeRAM, index: c.sp}

	case field == fieldPICK: // [SP + next word]
		addr := c.sp + c.fetchWord(effects)
		return operand{value: c.ram[addr], kind: storeRAM, index: addr}

	case field == fieldSP:
		return operand{value: c.sp, kind: storeSP}

	case field == fieldPC:
		return operand{value: c.pc, kind: storePC}

	case field == fieldEX:
		return operand{value: c.ex, kind: storeEX}

	case field == fieldNXA: // [next word]
		addr := c.fetchWord(effects)
		return operand{value: c.ram[addr], kind: storeRAM, index: addr}

	case field == fieldNXL: // next word, literal
		return operand{value: c.fetchWord(effects), kind: storeNone}

	case field <= 0x3f: // embedded literal, -1..30 (a field only)
		return operand{value: field - 0x21, kind: storeNone}
	}
	// unreachable: callers only ever pass 6-bit fields.
	return operand{kind: storeNone}
}

// skip decodes (but does not execute) the next instruction, so that PC
// advances past it without any side effects or per-word cycle charges;
// the whole skip is charged a single cycle here. If the skipped
// instruction is itself a conditional (IFB..IFU), skipping chains: the
// loop keeps skipping until a non-conditional instruction has been
// skipped.
func (c *CPU) skip() {
	c.awaitTick()
	for {
		instr := c.fetchWord(false)
		opcode := instr & OPCODE_MASK
		if opcode != 0 {
			c.decodeOperand((instr&ARGA_MASK)>>ARGA_SHIFT, true, false)
			c.decodeOperand((instr&ARGB_MASK)>>ARGB_SHIFT, false, false)
		} else {
			// special instruction: only the a operand exists.
			c.decodeOperand((instr&ARGA_MASK)>>ARGA_SHIFT, true, false)
		}
		if opcode < IFB || opcode > IFU {
			return
		}
	}
}

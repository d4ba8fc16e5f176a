package dcpu16

import "fmt"

// execute runs the single instruction already fetched into instr,
// decoding its operands with full effects and dispatching to the basic
// or special opcode tables.
func (c *CPU) execute(instr uint16) StepResult {
	opcode := instr & OPCODE_MASK
	if opcode == 0 {
		return c.executeSpecial(instr)
	}

	a := c.decodeOperand((instr&ARGA_MASK)>>ARGA_SHIFT, true, true)
	dest := c.decodeOperand((instr&ARGB_MASK)>>ARGB_SHIFT, false, true)
	b := dest.value

	switch opcode {
	case SET:
		c.store(dest, a.value)

	case ADD:
		sum := uint32(b) + uint32(a.value)
		c.store(dest, uint16(sum))
		c.ex = uint16(sum >> 16)
		c.awaitTick()

	case SUB:
		diff := int32(b) - int32(a.value)
		c.store(dest, uint16(diff))
		if diff < 0 {
			c.ex = 0xffff
		} else {
			c.ex = 0
		}
		c.awaitTick()

	case MUL:
		v := uint32(b) * uint32(a.value)
		c.store(dest, uint16(v))
		c.ex = uint16(v >> 16)
		c.awaitTick()

	case MLI:
		v := int32(int16(b)) * int32(int16(a.value))
		c.store(dest, uint16(v))
		c.ex = uint16(uint32(v) >> 16)
		c.awaitTick()

	case DIV:
		if a.value == 0 {
			c.store(dest, 0)
			c.ex = 0
		} else {
			c.store(dest, b/a.value)
			c.ex = uint16((uint32(b) << 16) / uint32(a.value))
		}
		c.awaitTick()
		c.awaitTick()

	case DVI:
		if a.value == 0 {
			c.store(dest, 0)
			c.ex = 0
		} else {
			sb, sa := int16(b), int16(a.value)
			c.store(dest, uint16(sb/sa))
			c.ex = uint16((int32(sb) << 16) / int32(sa))
		}
		c.awaitTick()
		c.awaitTick()

	case MOD:
		if a.value == 0 {
			c.store(dest, 0)
		} else {
			c.store(dest, b%a.value)
		}
		c.awaitTick()
		c.awaitTick()

	case MDI:
		if a.value == 0 {
			c.store(dest, 0)
		} else {
			c.store(dest, uint16(int16(b)%int16(a.value)))
		}
		c.awaitTick()
		c.awaitTick()

	case AND:
		c.store(dest, b&a.value)

	case BOR:
		c.store(dest, b|a.value)

	case XOR:
		c.store(dest, b^a.value)

	case SHR:
		c.store(dest, b>>a.value)
		c.ex = uint16((uint32(b) << 16) >> a.value)

	case ASR:
		c.store(dest, uint16(int16(b)>>a.value))
		c.ex = uint16((int32(int16(b)) << 16) >> a.value)

	case SHL:
		c.store(dest, b<<a.value)
		c.ex = uint16((uint32(b) << a.value) >> 16)

	case IFB:
		if b&a.value == 0 {
			c.skip()
		}
		c.awaitTick()

	case IFC:
		if b&a.value != 0 {
			c.skip()
		}
		c.awaitTick()

	case IFE:
		if b != a.value {
			c.skip()
		}
		c.awaitTick()

	case IFN:
		if b == a.value {
			c.skip()
		}
		c.awaitTick()

	case IFG:
		if b <= a.value {
			c.skip()
		}
		c.awaitTick()

	case IFA:
		if int16(b) <= int16(a.value) {
			c.skip()
		}
		c.awaitTick()

	case IFL:
		if b >= a.value {
			c.skip()
		}
		c.awaitTick()

	case IFU:
		if int16(b) >= int16(a.value) {
			c.skip()
		}
		c.awaitTick()

	case ADX:
		sum := uint32(b) + uint32(a.value) + uint32(c.ex)
		c.store(dest, uint16(sum))
		if sum > 0xffff {
			c.ex = 1
		} else {
			c.ex = 0
		}
		c.awaitTick()
		c.awaitTick()

	case SBX:
		diff := int32(b) - int32(a.value) + int32(int16(c.ex))
		c.store(dest, uint16(diff))
		if diff < 0 {
			c.ex = 0xffff
		} else {
			c.ex = 0
		}
		c.awaitTick()
		c.awaitTick()

	case STI:
		c.store(dest, a.value)
		c.reg[I]++
		c.reg[J]++
		c.awaitTick()

	case STD:
		c.store(dest, a.value)
		c.reg[I]--
		c.reg[J]--
		c.awaitTick()

	default:
		c.pendingFault = &Fault{
			Kind:   FaultReservedInstruction,
			Detail: fmt.Sprintf("basic opcode 0x%02x at pc=0x%04x", opcode, c.pc),
		}
		return StepBreak
	}
	return StepContinue
}

// executeSpecial runs the single-operand special instructions (the b
// field of a zero-basic-opcode instruction is the special opcode).
func (c *CPU) executeSpecial(instr uint16) StepResult {
	special := (instr & ARGB_MASK) >> ARGB_SHIFT
	a := c.decodeOperand((instr&ARGA_MASK)>>ARGA_SHIFT, true, true)

	switch special {
	case JSR:
		c.pushValue(c.pc)
		c.pc = a.value
		c.awaitTick()
		c.awaitTick()

	case IMG:
		// host-side core dump request, collected by the CLI via
		// TakeDumpRequest; a==0 means dump all of RAM.
		limit := a.value
		c.pendingDump = &limit

	case DIE:
		return StepExit

	case DBG:
		return StepBreak

	case INT:
		c.awaitTick()
		c.awaitTick()
		c.awaitTick()
		if !c.enqueueInterrupt(a.value) {
			return StepBreak
		}

	case IAG:
		c.store(a, c.ia)

	case IAS:
		c.ia = a.value

	case RFI:
		c.qints = false
		c.reg[A] = c.popValue()
		c.pc = c.popValue()
		c.awaitTick()
		c.awaitTick()

	case IAQ:
		c.qints = a.value != 0
		c.awaitTick()

	case HWN:
		c.store(a, c.Bus.Count())
		c.awaitTick()

	case HWQ:
		c.hardwareQuery(a.value)
		c.awaitTick()
		c.awaitTick()
		c.awaitTick()

	case HWI:
		extra := c.hardwareInterrupt(a.value)
		for i := uint16(0); i < extra; i++ {
			c.awaitTick()
		}
		c.awaitTick()
		c.awaitTick()
		c.awaitTick()

	default:
		c.pendingFault = &Fault{
			Kind:   FaultReservedInstruction,
			Detail: fmt.Sprintf("special opcode 0x%02x at pc=0x%04x", special, c.pc),
		}
		return StepBreak
	}
	return StepContinue
}

// hardwareQuery implements HWQ: sets A/B/C/X/Y from the identity of the
// device at index hwindex. Out-of-range indices are a silent no-op
// (cycles are still charged by the caller).
func (c *CPU) hardwareQuery(hwindex uint16) {
	dev, ok := c.Bus.At(hwindex)
	if !ok {
		return
	}
	id := dev.ID()
	c.reg[A] = uint16(id.Device)
	c.reg[B] = uint16(id.Device >> 16)
	c.reg[C] = id.Version
	c.reg[X] = uint16(id.Mfr)
	c.reg[Y] = uint16(id.Mfr >> 16)
}

// hardwareInterrupt implements HWI: invokes the device's handler and
// returns the extra cycles it reports. Out-of-range indices are a
// silent no-op.
func (c *CPU) hardwareInterrupt(hwindex uint16) uint16 {
	dev, ok := c.Bus.At(hwindex)
	if !ok {
		return 0
	}
	return dev.HWI(c)
}

func (c *CPU) pushValue(v uint16) {
	c.sp--
	c.ram[c.sp] = v
}

func (c *CPU) popValue() uint16 {
	v := c.ram[c.sp]
	c.sp++
	return v
}

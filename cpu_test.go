package dcpu16

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markcol/dcpu16/device/clock"
	"github.com/markcol/dcpu16/device/keyboard"
	"github.com/markcol/dcpu16/device/lem1802"
)

// fastCPU returns a CPU clocked fast enough that awaitTick's sleeps
// never meaningfully slow a test down.
func fastCPU(opts ...Option) *CPU {
	return New(append([]Option{WithKHz(1_000_000)}, opts...)...)
}

func instr(opcode, b, a uint16) uint16 {
	return opcode | (b << ARGB_SHIFT) | (a << ARGA_SHIFT)
}

func TestSetAddBasic(t *testing.T) {
	c := fastCPU()
	// SET A, 0x30; ADD A, 0x10
	c.Write(0, []uint16{
		instr(SET, A, fieldNXL), 0x30,
		instr(ADD, A, fieldNXL), 0x10,
	})
	require.Equal(t, StepContinue, c.Step())
	require.Equal(t, StepContinue, c.Step())
	assert.Equal(t, uint16(0x40), c.Registers().A)
	assert.Equal(t, uint16(0), c.Registers().EX)
}

func TestAddOverflowSetsEX(t *testing.T) {
	c := fastCPU()
	c.reg[A] = 0xffff
	c.Write(0, []uint16{instr(ADD, A, fieldNXL), 1})
	c.Step()
	assert.Equal(t, uint16(0), c.Registers().A)
	assert.Equal(t, uint16(1), c.Registers().EX)
}

func TestSubUnderflowSetsEX(t *testing.T) {
	c := fastCPU()
	c.reg[A] = 0
	c.Write(0, []uint16{instr(SUB, A, fieldNXL), 1})
	c.Step()
	assert.Equal(t, uint16(0xffff), c.Registers().A)
	assert.Equal(t, uint16(0xffff), c.Registers().EX)
}

func TestShlCarriesIntoEX(t *testing.T) {
	c := fastCPU()
	c.reg[A] = 0x8001
	c.Write(0, []uint16{instr(SHL, A, fieldNXL), 1})
	c.Step()
	assert.Equal(t, uint16(0x0002), c.Registers().A)
	assert.Equal(t, uint16(1), c.Registers().EX)
}

func TestDivisionByZeroClearsResultAndEX(t *testing.T) {
	c := fastCPU()
	c.reg[A] = 42
	c.reg[B] = 0
	c.Write(0, []uint16{instr(DIV, A, B)})
	c.Step()
	assert.Equal(t, uint16(0), c.Registers().A)
	assert.Equal(t, uint16(0), c.Registers().EX)
}

func TestIfChainSkipsThroughMultipleConditionals(t *testing.T) {
	c := fastCPU()
	// IFE A, 1 (false since A=0) -> skip IFE B, 2 -> skip SET C, 99
	// SET C, 1 (the instruction actually reached)
	c.Write(0, []uint16{
		instr(IFE, A, fieldNXL), 1,
		instr(IFE, B, fieldNXL), 2,
		instr(SET, C, fieldNXL), 99,
		instr(SET, C, fieldNXL), 1,
	})
	for i := 0; i < 2; i++ {
		require.Equal(t, StepContinue, c.Step())
	}
	assert.Equal(t, uint16(1), c.Registers().C)
	assert.Equal(t, uint16(8), c.Registers().PC)
}

func TestIfTrueDoesNotSkip(t *testing.T) {
	c := fastCPU()
	c.reg[A] = 1
	c.Write(0, []uint16{
		instr(IFE, A, fieldNXL), 1,
		instr(SET, C, fieldNXL), 5,
	})
	c.Step()
	c.Step()
	assert.Equal(t, uint16(5), c.Registers().C)
}

func TestStackRoundTrip(t *testing.T) {
	c := fastCPU()
	// SET PUSH, 0x55; SET A, POP
	c.Write(0, []uint16{
		instr(SET, fieldPSHP, fieldNXL), 0x55,
		instr(SET, A, fieldPSHP),
	})
	c.Step()
	assert.Equal(t, uint16(0xffff), c.Registers().SP)
	c.Step()
	assert.Equal(t, uint16(0x55), c.Registers().A)
	assert.Equal(t, uint16(0x0000), c.Registers().SP)
}

func TestInterruptDeliveryAndRFI(t *testing.T) {
	c := fastCPU()
	c.ia = 0x100
	c.Write(0, []uint16{instr(0, INT, fieldNXL), 0x42})
	c.Write(0x100, []uint16{instr(0, RFI, 0)})
	c.reg[A] = 0xabcd
	oldPC := uint16(2)

	c.Step() // INT 0x42: enqueues, then deliverInterrupt fires, pc -> 0x100
	got := c.Registers()
	assert.Equal(t, uint16(0x100), got.PC)
	assert.Equal(t, uint16(0x42), got.A)
	assert.True(t, got.QueueingInterrupts)

	c.Step() // RFI
	got = c.Registers()
	assert.Equal(t, oldPC, got.PC)
	assert.Equal(t, uint16(0xabcd), got.A)
	assert.False(t, got.QueueingInterrupts)
}

func TestInterruptQueueOverflowFaults(t *testing.T) {
	c := fastCPU()
	for i := 0; i < intQUsable; i++ {
		assert.True(t, c.enqueueInterrupt(uint16(i)))
	}
	assert.False(t, c.enqueueInterrupt(0xffff))
	assert.NotNil(t, c.pendingFault)
	assert.Equal(t, FaultQueueOverflow, c.pendingFault.Kind)
}

func TestReservedInstructionFaults(t *testing.T) {
	c := fastCPU()
	// basic opcode 0x18 is reserved.
	c.Write(0, []uint16{0x18})
	result := c.Step()
	assert.Equal(t, StepBreak, result)
	require.NotNil(t, c.PendingFault())
	assert.Equal(t, FaultReservedInstruction, c.PendingFault().Kind)
}

func TestLoopDetectionBreaks(t *testing.T) {
	c := fastCPU(WithLoopDetection())
	// SET PC, 0: a true single-word self-loop (PC already advanced past
	// this word by the time the literal 0 is stored back into it).
	c.Write(0, []uint16{instr(SET, fieldPC, 0x21)})
	result := c.Step()
	assert.Equal(t, StepBreak, result)
	require.NotNil(t, c.PendingFault())
	assert.Equal(t, FaultLoopDetected, c.PendingFault().Kind)
}

func TestLoadImageBigEndianAndCoreDump(t *testing.T) {
	c := fastCPU()
	img := []byte{0x00, 0x01, 0x00, 0x02} // words 0x0001, 0x0002
	n, err := c.LoadImage(bytes.NewReader(img), true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint16{0x0001, 0x0002}, c.Read(0, 2))

	var out bytes.Buffer
	require.NoError(t, c.CoreDump(&out, 2))
	assert.Equal(t, img, out.Bytes())
}

func TestHelloWorldWritesLEMTile(t *testing.T) {
	c := fastCPU()
	lem, lemDev := lem1802.New()
	c.Bus.Attach(lemDev)

	var lastBorder uint16
	var lastTile lem1802.Tile
	var lastColor uint16
	lem.Snapshot = func(tiles [lem1802.Height][lem1802.Width]lem1802.Tile, border uint16, colorOf func(uint8) uint16) {
		lastBorder = border
		lastTile = tiles[0][0]
		lastColor = colorOf(lastTile.Foreground)
	}

	// HWI 0 with A=0 (MEM_MAP_SCREEN), B=0x8000.
	c.reg[A] = 0
	c.reg[B] = 0x8000
	c.Write(0, []uint16{instr(0, HWI, fieldNXL), 0})
	c.Write(0x8000, []uint16{'H' | (0xf << 12)}) // white 'H' at (0,0)
	c.Step()

	// The first device tick after the screen is mapped, during Step's
	// remaining HWI cycles, already redrew; this direct tick falls inside
	// the redraw interval and draws nothing new.
	lemDev.Tick(c, time.Now())
	assert.Equal(t, uint8('H'), lastTile.Glyph)
	assert.Equal(t, uint8(0xf), lastTile.Foreground)
	assert.Equal(t, uint16(0x0fff), lastColor) // default palette entry 0xf: white
	_ = lastBorder
}

func TestClockInterruptTiming(t *testing.T) {
	c := fastCPU()
	clk := clock.New()
	c.Bus.Attach(clk)

	// HWI 0: A=0 (set rate), B=1 -> tick at 60Hz; A=2, B=0x50 (set message).
	c.reg[A] = 0
	c.reg[B] = 1
	c.Write(0, []uint16{instr(0, HWI, fieldNXL), 0})
	c.Step()

	c.reg[A] = 2
	c.reg[B] = 0x50
	c.Write(2, []uint16{instr(0, HWI, fieldNXL), 0})
	c.Step()

	assert.True(t, c.intQueueEmpty())

	// Simulate the passage of more than one tick interval and confirm
	// the clock raises its configured message.
	clk.Tick(c, time.Now().Add(time.Second))
	assert.False(t, c.intQueueEmpty())
}

func TestKeyboardPushAndRead(t *testing.T) {
	c := fastCPU()
	kbd, kbdDev := keyboard.New()
	c.Bus.Attach(kbdDev)
	kbd.PushKey('x')

	// HWI 0: A=1 (read key) -> C gets the key.
	c.reg[A] = 1
	c.Write(0, []uint16{instr(0, HWI, fieldNXL), 0})
	c.Step()
	assert.Equal(t, uint16('x'), c.Registers().C)
}

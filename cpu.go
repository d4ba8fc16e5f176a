package dcpu16

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/markcol/dcpu16/device"
)

// CPU is a single virtual DCPU-16: register file, 64Ki-word RAM, bounded
// interrupt queue, and an attached device bus. All state mutation happens
// on the goroutine that calls Step/Run; the exported accessors
// (Read/Write/Registers) take the same mutex that guards a step, so a
// renderer or debugger running on another goroutine only ever observes
// state at an instruction boundary.
type CPU struct {
	reg [regSize]uint16
	ram [RAMSIZE]uint16

	pc, sp, ex, ia uint16

	qints    bool
	intQueue [intQCap]uint16
	intHead  int
	intTail  int

	Bus *device.Bus

	detectLoops bool
	tickns      time.Duration
	nextTick    time.Time

	pendingFault *Fault
	pendingDump  *uint16

	breakRequested atomic.Bool
	die            atomic.Bool

	mutex sync.Mutex
}

// Option configures a CPU at construction time.
type Option func(*CPU)

// WithKHz sets the target clock rate, in kilohertz. The default is
// DefaultKHz (150kHz) if unset or zero.
func WithKHz(khz uint32) Option {
	return func(c *CPU) {
		if khz == 0 {
			khz = DefaultKHz
		}
		c.tickns = time.Duration(1000000/khz) * time.Nanosecond
	}
}

// WithLoopDetection enables the single-instruction-loop breakpoint used
// by --detect-loops.
func WithLoopDetection() Option {
	return func(c *CPU) { c.detectLoops = true }
}

// New constructs a CPU with zeroed RAM and registers and an empty device
// bus, ready to have an image loaded and devices attached.
func New(opts ...Option) *CPU {
	c := &CPU{
		Bus: &device.Bus{},
	}
	WithKHz(DefaultKHz)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write copies data into RAM starting at addr, wrapping addresses modulo
// RAMSIZE. It waits for an instruction boundary.
func (c *CPU) Write(addr uint16, data []uint16) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, w := range data {
		c.ram[addr] = w
		addr++
	}
}

// Read returns up to l words of RAM starting at addr. Fewer words are
// returned if addr+l exceeds addressable memory. It waits for an
// instruction boundary.
func (c *CPU) Read(addr uint16, l int) []uint16 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if int(addr)+l > LASTADDR {
		l = LASTADDR - int(addr) + 1
	}
	d := make([]uint16, l)
	copy(d, c.ram[addr:])
	return d
}

// Registers is a snapshot of every architectural register, taken at an
// instruction boundary.
type Registers struct {
	A, B, C, X, Y, Z, I, J uint16
	PC, SP, EX, IA         uint16
	QueueingInterrupts     bool
}

// Registers returns a consistent snapshot of the register file.
func (c *CPU) Registers() Registers {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return Registers{
		A: c.reg[A], B: c.reg[B], C: c.reg[C], X: c.reg[X],
		Y: c.reg[Y], Z: c.reg[Z], I: c.reg[I], J: c.reg[J],
		PC: c.pc, SP: c.sp, EX: c.ex, IA: c.ia,
		QueueingInterrupts: c.qints,
	}
}

// --- device.CPU interface, used by devices on the bus. ---

func (c *CPU) Reg(i int) uint16     { return c.reg[i] }
func (c *CPU) SetReg(i int, v uint16) { c.reg[i] = v }
func (c *CPU) ReadRAM(addr uint16) uint16        { return c.ram[addr] }
func (c *CPU) WriteRAM(addr uint16, v uint16)    { c.ram[addr] = v }
func (c *CPU) RaiseInterrupt(msg uint16)         { c.enqueueInterrupt(msg) }

// RequestBreak asks the run loop to enter the debugger after the current
// instruction finishes. Safe to call from a signal handler.
func (c *CPU) RequestBreak() { c.breakRequested.Store(true) }

// RequestDie asks the run loop to terminate cleanly before the next
// instruction. Safe to call from a signal handler.
func (c *CPU) RequestDie() { c.die.Store(true) }

// PendingFault returns the fault (if any) that caused the most recent
// Step to return StepBreak.
func (c *CPU) PendingFault() *Fault { return c.pendingFault }

// TakeDumpRequest returns and clears the limit argument of the most
// recent IMG instruction, if one has run since the last call. A limit of
// zero means a full-RAM dump was requested, matching the host debugger's
// CORE command. The CLI front end polls this after each Step/Run break
// to know whether to write a core image to disk.
func (c *CPU) TakeDumpRequest() (limit uint16, ok bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pendingDump == nil {
		return 0, false
	}
	limit = *c.pendingDump
	c.pendingDump = nil
	return limit, true
}

// Step executes a single instruction, charging cycles to the pacer and
// delivering at most one interrupt afterward.
func (c *CPU) Step() StepResult {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.step()
}

func (c *CPU) step() StepResult {
	c.pendingFault = nil
	oldPC := c.pc
	instr := c.fetchWord(true)
	result := c.execute(instr)
	c.deliverInterrupt()

	if c.detectLoops && c.pc == oldPC && c.pendingFault == nil {
		c.pendingFault = &Fault{Kind: FaultLoopDetected}
		return StepBreak
	}
	if c.pendingFault != nil {
		return StepBreak
	}
	return result
}

// Run drives the CPU until DIE, a host-requested die, or onBreak declines
// to continue after a break-class event. onBreak may be nil, in which
// case any break terminates the run (there is no debugger to hand
// control to).
func (c *CPU) Run(onBreak func(*CPU) bool) {
	c.mutex.Lock()
	c.nextTick = time.Now().Add(c.tickns)
	c.mutex.Unlock()

	for {
		if c.die.Load() {
			return
		}
		c.mutex.Lock()
		result := c.step()
		brk := result == StepBreak || c.breakRequested.Load()
		c.mutex.Unlock()

		if result == StepExit {
			return
		}
		if brk {
			c.breakRequested.Store(false)
			if onBreak == nil || !onBreak(c) {
				return
			}
		}
	}
}

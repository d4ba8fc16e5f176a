// Package debugger is the interactive bubbletea front end the CLI
// drops into on a DBG instruction, a fault, or Ctrl-C: a small
// command line over the running CPU, in the spirit of the reference
// emulator's line-oriented debugger.
package debugger

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"github.com/markcol/dcpu16"
	"github.com/markcol/dcpu16/disasm"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	faultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// matches reports whether min is a prefix of tok and tok is a prefix of
// full — the reference debugger's "unambiguous abbreviation" rule.
func matches(tok, min, full string) bool {
	tok, min, full = strings.ToLower(tok), strings.ToLower(min), strings.ToLower(full)
	return strings.HasPrefix(tok, min) && strings.HasPrefix(full, tok)
}

// Result is what the debugger decided to do when the user quit it.
type Result int

const (
	// ResultContinue resumes the run loop.
	ResultContinue Result = iota
	// ResultExit terminates the emulator.
	ResultExit
)

type model struct {
	cpu *dcpu16.CPU

	input   string
	history []string
	result  Result
	done    bool
}

// Run starts the interactive debugger over cpu and blocks until the
// user asks to continue or exit. If fault is non-nil, it's shown as
// the reason the debugger was entered.
func Run(cpu *dcpu16.CPU, fault *dcpu16.Fault) (Result, error) {
	m := model{cpu: cpu}
	if fault != nil {
		m.history = append(m.history, dumpFault(fault))
	}
	m.history = append(m.history, dumpState(cpu))

	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return ResultExit, err
	}
	return final.(model).result, nil
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.Type {
	case tea.KeyCtrlC:
		m.result = ResultExit
		m.done = true
		return m, tea.Quit
	case tea.KeyEnter:
		line := m.input
		m.input = ""
		m.history = append(m.history, promptStyle.Render(" * ")+line)
		cont, quit := m.runCommand(line)
		if cont || quit {
			if quit {
				m.result = ResultExit
			} else {
				m.result = ResultContinue
			}
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		m.input += keyMsg.String()
		return m, nil
	}
	return m, nil
}

// runCommand executes one command line, appending any output to the
// history. It reports (continueRun, quitEmulator).
func (m *model) runCommand(line string) (bool, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, false
	}
	tok, args := fields[0], fields[1:]

	switch {
	case matches(tok, "h", "help"), matches(tok, "?", "?"):
		m.log(
			"help, ?: show this message\n" +
				"continue: resume running\n" +
				"step [n]: execute n instructions (default 1)\n" +
				"dump [-v]: display the state of the cpu (-v for a full register dump)\n" +
				"print addr [len]: display len words of ram starting at addr\n" +
				"core: dump ram image to core.img\n" +
				"exit, quit: exit emulator\n" +
				"unambiguous abbreviations are recognized (e.g., s for step).")

	case matches(tok, "con", "continue"):
		return true, false

	case matches(tok, "s", "step"):
		n := 1
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				n = v
			}
		}
		for i := 0; i < n; i++ {
			if m.cpu.Step() == dcpu16.StepExit {
				return false, true
			}
		}
		m.log(dumpState(m.cpu))

	case matches(tok, "d", "dump"):
		if len(args) > 0 && args[0] == "-v" {
			m.log(spew.Sdump(m.cpu.Registers()))
		} else {
			m.log(dumpState(m.cpu))
		}

	case matches(tok, "p", "print"):
		m.log(m.printRAM(args))

	case matches(tok, "cor", "core"):
		m.log(writeCoreDump(m.cpu))

	case matches(tok, "e", "exit"), matches(tok, "q", "quit"):
		return false, true

	default:
		m.log(fmt.Sprintf("unrecognized or ambiguous command: %s", tok))
	}
	return false, false
}

func (m *model) printRAM(args []string) string {
	if len(args) == 0 {
		return "usage: print addr [len]"
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 16)
	if err != nil {
		return fmt.Sprintf("bad address %q: %v", args[0], err)
	}
	length := 8
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			length = v
		}
	}
	words := m.cpu.Read(uint16(addr), length)
	var b strings.Builder
	disasm.Disassemble(uint16(addr), disasm.NewWordReader(words), &b)
	return b.String()
}

func (m *model) log(s string) {
	m.history = append(m.history, s)
}

const coreFileName = "core.img"

func writeCoreDump(cpu *dcpu16.CPU) string {
	f, err := os.Create(coreFileName)
	if err != nil {
		return fmt.Sprintf("error opening %s: %v", coreFileName, err)
	}
	defer f.Close()
	if err := cpu.CoreDump(f, 0); err != nil {
		return fmt.Sprintf("error writing %s: %v", coreFileName, err)
	}
	return "core written to " + coreFileName
}

func dumpState(cpu *dcpu16.CPU) string {
	r := cpu.Registers()
	header := "pc   sp   ex   ia   a    b    c    x    y    z    i    j\n" +
		"---- ---- ---- ---- ---- ---- ---- ---- ---- ---- ---- ----"
	state := fmt.Sprintf(
		"%04x %04x %04x %04x %04x %04x %04x %04x %04x %04x %04x %04x",
		r.PC, r.SP, r.EX, r.IA, r.A, r.B, r.C, r.X, r.Y, r.Z, r.I, r.J)
	return headerStyle.Render(header) + "\n" + state
}

func (m model) View() string {
	var b strings.Builder
	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(promptStyle.Render(" * ") + m.input)
	return b.String()
}

// dumpFault renders a fault for the history log, in the error style.
func dumpFault(f *dcpu16.Fault) string {
	if f == nil {
		return ""
	}
	return faultStyle.Render(fmt.Sprintf("fault: %s", f.Error()))
}

// Command dcpu16 loads a DCPU-16 memory image and runs it, pacing
// execution to a configurable clock rate with a LEM-1802 display, a
// generic keyboard, and a generic clock attached to the bus.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markcol/dcpu16"
	"github.com/markcol/dcpu16/debugger"
	"github.com/markcol/dcpu16/device/clock"
	"github.com/markcol/dcpu16/device/keyboard"
	"github.com/markcol/dcpu16/device/lem1802"
)

var (
	khz          uint32
	littleEndian bool
	debugBoot    bool
	detectLoops  bool
	dumpScreen   bool
	graphics     bool
)

func main() {
	root := &cobra.Command{
		Use:     "dcpu16 [image]",
		Short:   "DCPU-16 cycle-paced emulator",
		Version: "1.7",
		Args:    cobra.ExactArgs(1),
		RunE:    run,
	}

	root.Flags().Uint32Var(&khz, "khz", dcpu16.DefaultKHz, "target clock rate, in kilohertz")
	root.Flags().BoolVar(&littleEndian, "little-endian", false, "image words are little-endian (default big-endian)")
	root.Flags().Bool("big-endian", false, "image words are big-endian (the default)")
	root.MarkFlagsMutuallyExclusive("little-endian", "big-endian")
	root.Flags().BoolVar(&debugBoot, "debug-boot", false, "enter the debugger before the first instruction")
	root.Flags().BoolVar(&detectLoops, "detect-loops", false, "break into the debugger on a single-instruction infinite loop")
	root.Flags().BoolVar(&dumpScreen, "dump-screen", false, "render the LEM-1802 screen to stdout as plain text on every redraw")
	root.Flags().BoolVar(&graphics, "graphics", false, "reserved for a future graphical front end; currently inert")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	var opts []dcpu16.Option
	opts = append(opts, dcpu16.WithKHz(khz))
	if detectLoops {
		opts = append(opts, dcpu16.WithLoopDetection())
	}
	cpu := dcpu16.New(opts...)

	if _, err := cpu.LoadImage(f, !littleEndian); err != nil {
		return fmt.Errorf("loading image: %w", err)
	}

	attachDevices(cpu)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		first := true
		for s := range sig {
			if first && s != syscall.SIGTERM {
				cpu.RequestBreak()
				first = false
				continue
			}
			cpu.RequestDie()
		}
	}()

	onBreak := func(c *dcpu16.CPU) bool {
		result, err := debugger.Run(c, c.PendingFault())
		if err != nil {
			fmt.Fprintln(os.Stderr, "debugger error:", err)
			return false
		}
		if limit, ok := c.TakeDumpRequest(); ok {
			writeCore(c, limit)
		}
		return result == debugger.ResultContinue
	}

	if debugBoot {
		if !onBreak(cpu) {
			return nil
		}
	}

	cpu.Run(onBreak)
	return nil
}

func attachDevices(cpu *dcpu16.CPU) {
	cpu.Bus.Attach(clock.New())

	kbd, kbdDev := keyboard.New()
	cpu.Bus.Attach(kbdDev)
	go pumpKeys(cpu, kbd)

	lem, lemDev := lem1802.New()
	cpu.Bus.Attach(lemDev)

	if dumpScreen {
		lem.Snapshot = renderScreen
	}
}

// pumpKeys feeds raw bytes from stdin to the keyboard device. Without a
// cbreak-mode terminal library in the dependency set, input arrives a
// line at a time rather than keystroke by keystroke; good enough for
// the programs the reference keyboard spec targets. EOF (Ctrl-D) asks
// the run loop to terminate cleanly, the same as a guest DIE.
func pumpKeys(cpu *dcpu16.CPU, kbd *keyboard.Keyboard) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		for i := 0; i < n; i++ {
			kbd.PushKey(uint16(buf[i]))
		}
		if err != nil {
			cpu.RequestDie()
			return
		}
	}
}

func renderScreen(tiles [lem1802.Height][lem1802.Width]lem1802.Tile, border uint16, colorOf func(index uint8) uint16) {
	fmt.Printf("\x1b[2J\x1b[H") // clear screen, home cursor
	fmt.Printf("border: %d\n", border)
	for _, row := range tiles {
		for _, t := range row {
			ch := rune(t.Glyph)
			if ch == 0 {
				ch = ' '
			}
			r, g, b := rgb444(colorOf(t.Foreground))
			fmt.Printf("\x1b[38;2;%d;%d;%dm%c", r, g, b, ch)
		}
		fmt.Printf("\x1b[0m\n")
	}
}

// rgb444 expands a LEM-1802 0x0RGB color word to 8-bit-per-channel RGB.
func rgb444(word uint16) (r, g, b int) {
	r = int((word>>8)&0xf) * 17
	g = int((word>>4)&0xf) * 17
	b = int(word&0xf) * 17
	return
}

func writeCore(cpu *dcpu16.CPU, limit uint16) {
	f, err := os.Create("core.img")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error opening core.img:", err)
		return
	}
	defer f.Close()
	if err := cpu.CoreDump(f, limit); err != nil {
		fmt.Fprintln(os.Stderr, "error writing core.img:", err)
	}
}

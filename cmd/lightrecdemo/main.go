// Command lightrecdemo wires the reference closure backend and the
// collabtest doubles together to run a handful of guest opcodes through
// Init/Execute, the same combination integration_test.go exercises. It
// exists to give SPEC_FULL.md's wiring a runnable entry point, the way the
// teacher ships small cmd/ programs alongside its library packages rather
// than a library with no driver at all.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/SoriDon/lightrec/closurebackend"
	"github.com/SoriDon/lightrec/collabtest"
	"github.com/SoriDon/lightrec/internal/logx"
	"github.com/SoriDon/lightrec/lightrec"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := logx.LevelError
	if *verbose {
		level = logx.LevelDebug
	}

	if err := run(level); err != nil {
		fmt.Fprintln(os.Stderr, "lightrecdemo:", err)
		os.Exit(1)
	}
}

func run(level logx.Level) error {
	// a single store-then-load sequence: SW r2,0(r1) ; LW r3,0(r1)
	opcodes := []lightrec.Opcode{
		{Raw: 1, Op: lightrec.OpSW, Rs: 1, Rt: 2},
		{Raw: 2, Op: lightrec.OpLW, Rs: 1, Rt: 3},
	}

	buf := make([]byte, 0x10000)
	memMap := []lightrec.MemoryMapEntry{
		{GuestPCBase: 0, Length: uint32(len(buf)), Host: buf},
	}

	opts := lightrec.Options{
		PlatformIdent: "mipsel-psx",
		Disassembler:  &collabtest.FixedDisassembler{Opcodes: opcodes},
		Emitter:       &collabtest.LoadStoreEmitter{},
		RegAlloc:      &collabtest.RecordingAllocator{},
		Cycles:        collabtest.UniformCycles{Cost: 2},
		Backend:       closurebackend.New(),
		LogLevel:      level,
	}

	state, err := lightrec.Init(opts, memMap, nil)
	if err != nil {
		return err
	}
	defer lightrec.Destroy(state)

	state.Regs[1] = 0x80001000
	state.Regs[2] = 0xCAFEBABE

	// both opcodes disassemble into the same block, so one Execute call
	// runs the store and the dependent load it feeds.
	pc := lightrec.Execute(state, 0x80000000)
	fmt.Printf("executed block at %#08x: stored %#08x at %#08x, loaded back %#08x, next pc %#08x\n",
		uint32(0x80000000), state.Regs[2], state.Regs[1], state.Regs[3], pc)

	if state.Regs[3] != state.Regs[2] {
		return fmt.Errorf("round trip mismatch: stored %#08x, loaded %#08x", state.Regs[2], state.Regs[3])
	}
	return nil
}

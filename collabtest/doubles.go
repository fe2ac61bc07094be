// Package collabtest provides test doubles for the lightrec.Disassembler,
// lightrec.Emitter, lightrec.Allocator and lightrec.CyclesTable
// collaborators. spec.md §1 places the real disassembler, per-opcode
// emitter and register allocator out of scope; this package exists only
// so package lightrec's own tests (and SPEC_FULL.md's end-to-end
// scenarios) have something concrete to wire in, the way the teacher's
// models/mock.Usercorn stubs out models.Usercorn for tests that need a
// Usercorn but don't care about its behavior.
package collabtest

import "github.com/SoriDon/lightrec/lightrec"

// FixedDisassembler returns a pre-set opcode list regardless of its code
// argument, recording every call it receives.
type FixedDisassembler struct {
	Opcodes []lightrec.Opcode
	Calls   int
}

func (d *FixedDisassembler) Disassemble(code []byte, pc uint32) ([]lightrec.Opcode, error) {
	d.Calls++
	out := make([]lightrec.Opcode, len(d.Opcodes))
	copy(out, d.Opcodes)
	return out, nil
}

// RecordingAllocator counts Reset/Close calls, standing in for the
// register allocator collaborator (spec.md §6).
type RecordingAllocator struct {
	Resets int
	Closed bool
}

func (a *RecordingAllocator) Reset()       { a.Resets++ }
func (a *RecordingAllocator) Close() error { a.Closed = true; return nil }

// UniformCycles charges every opcode the same cycle cost.
type UniformCycles struct {
	Cost uint32
}

func (c UniformCycles) CyclesOf(lightrec.Opcode) uint32 {
	if c.Cost == 0 {
		return 1
	}
	return c.Cost
}

// LoadStoreEmitter is a minimal, real (not a no-op stub) per-opcode
// emitter: it emits a NativeFunc that performs exactly the guest
// register read/modify/write + memory access a MIPS load/store
// instruction would, by calling back into state.RW — the same boundary
// real emitted code crosses (spec.md §4.B). Branch/arithmetic/coprocessor
// opcodes are emitted as no-ops; this double exists to exercise the
// recompiler driver and the load/store engine end to end, not to be a
// MIPS interpreter.
type LoadStoreEmitter struct {
	Calls int
}

func (e *LoadStoreEmitter) RecOpcode(asm lightrec.Assembler, block *lightrec.Block, op lightrec.Opcode, pc uint32) (lightrec.EmitResult, error) {
	e.Calls++
	o := op
	switch {
	case o.Op.IsStore():
		asm.Emit(func(state *lightrec.GuestState) {
			base := state.Regs[o.Rs]
			val := state.Regs[o.Rt]
			state.RW(o, base, val)
		})
	case o.Op.IsLoad():
		asm.Emit(func(state *lightrec.GuestState) {
			base := state.Regs[o.Rs]
			old := state.Regs[o.Rt]
			result := state.RW(o, base, old)
			if o.Rt != 0 {
				state.Regs[o.Rt] = result
			}
		})
	}
	asm.Emit(func(state *lightrec.GuestState) {
		state.NextPC = pc + 4
		// block is fully compiled (and its Cycles total final) by the
		// time this closure runs, since it only ever runs after
		// RecompileBlock returns; every exit path stamps ExitCycles with
		// the block's static cycle count, resolving spec.md §9's open
		// question about who owns block_exit_cycles.
		state.ExitCycles = block.Cycles
	})
	return lightrec.Emitted, nil
}

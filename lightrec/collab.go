package lightrec

// This file specifies the interfaces the core consumes but does not
// implement (spec.md §6, "Required external collaborators"): the
// disassembler, the per-opcode emitter, the register allocator, the cycle
// table, and the code-emission backend. §1 treats all of these as out of
// scope; the core is only ever given them through these interfaces. A
// reference code-emission backend ships in package closurebackend, and
// test doubles for the rest ship in package collabtest, mirroring how the
// teacher's models.Usercorn interface is both the production contract and
// the shape models/mock.Usercorn stubs out for tests.

// Disassembler turns a host-mapped guest code pointer into an ordered
// opcode stream, starting at the given address.
type Disassembler interface {
	Disassemble(code []byte, pc uint32) ([]Opcode, error)
}

// EmitResult is the per-opcode emitter's signal back to the recompiler
// driver loop.
type EmitResult int

const (
	Emitted EmitResult = iota
	SkipDelaySlot
)

// Emitter compiles one guest opcode into the block under construction via
// asm. It must respect the register conventions the wrapper trampoline
// sets up, and must cause every generated exit path to reach the
// trampoline's exit (modeled here as the assembled closure chain
// returning rather than jumping to a fixed address, see trampoline.go).
type Emitter interface {
	RecOpcode(asm Assembler, block *Block, op Opcode, pc uint32) (EmitResult, error)
}

// Allocator is the register allocator collaborator. Reset clears any
// state left over from the previous block; the driver calls it once per
// recompile so no allocation state leaks between blocks. Close releases
// resources held by the allocator itself (e.g. at GuestState teardown).
type Allocator interface {
	Reset()
	Close() error
}

// CyclesTable reports the guest cycle cost of one opcode. Cycle
// accounting includes skipped delay slots (spec.md §4.F).
type CyclesTable interface {
	CyclesOf(op Opcode) uint32
}

// CopOps is the coprocessor operation table. It is opaque to the core,
// which only stores it on GuestState.CopOps. Emitter.RecOpcode does not
// receive it; emitted NativeFuncs can read it from the *GuestState they
// run with.
type CopOps interface{}

// Assembler is the per-block handle a Backend opens. It accumulates the
// effect of each emitted opcode and finalises them into one native entry
// point. Finalize may be called at most once; Close releases whatever
// resources the handle holds (for a real JIT backend, the executable
// code buffer).
type Assembler interface {
	// Prologue marks the start of a block that will be entered via a
	// jump (not a call), with enough stack reserved for spilled guest
	// registers. stackHint is advisory.
	Prologue(stackHint int)
	// Emit appends one native effect to the block being assembled.
	Emit(fn NativeFunc)
	// Finalize closes code generation and returns the block's entry
	// point. After Finalize, Emit must not be called again.
	Finalize() (NativeFunc, error)
	// Close releases the handle's resources. Safe to call after
	// Finalize, and safe to call on a handle that was never finalized
	// (e.g. recompilation aborted partway through).
	Close() error
}

// Backend is the code-emission backend collaborator (spec.md §6). The
// core opens one Assembler per recompile and one more each for the
// wrapper trampoline and the address-lookup stub at Init.
type Backend interface {
	NewAssembler() (Assembler, error)
}

// NativeFunc is this module's stand-in for "native function pointer":
// generated code is represented as a Go closure over *GuestState rather
// than emitted machine code, since package lightrec has no legitimate way
// to emit raw host instructions without cgo or a platform assembler
// (DESIGN.md records this as the central Open Question decision). The
// Backend/Assembler boundary is exactly where a real JIT backend would
// plug in instead.
type NativeFunc func(state *GuestState)

package lightrec

import (
	"github.com/pkg/errors"

	"github.com/SoriDon/lightrec/internal/logx"
)

// GuestState: spec.md §3. Process-wide, exactly one instance per
// embedding; created by Init, destroyed by Destroy, owned by no other
// entity.
type GuestState struct {
	// Regs is the guest register file. MIPS R3000 has 32 general
	// purpose registers; index 0 is wired to zero by convention (the
	// Emitter collaborator is responsible for that, the core does not
	// special-case it).
	Regs [32]uint32

	Current    *Block
	NextPC     uint32
	Stop       bool
	ExitFlags  ExitFlag
	ExitCycles uint32

	Cache      *BlockCache
	RegAlloc   Allocator
	Trampoline *Trampoline

	MemMap []MemoryMapEntry
	CopOps CopOps

	// Disassembler, Emitter, Backend and Cycles are the required
	// external collaborators (spec.md §6); wired once at Init.
	Disassembler Disassembler
	Emitter      Emitter
	Backend      Backend
	Cycles       CyclesTable

	Log *logx.Logger

	addrLookupHandle Assembler
}

// logger returns a non-nil logger even if the embedder did not supply
// one, matching the teacher's defensive nil-receiver pattern in its own
// helpers (e.g. logx.Logger's methods no-op on a nil receiver, but
// GuestState always has a concrete Logger after Init).
func (s *GuestState) logger() *logx.Logger {
	if s.Log == nil {
		return logx.New(logx.LevelError)
	}
	return s.Log
}

// RW dispatches one guest memory operation through the load/store
// engine (spec.md §3's "function pointer to the load/store dispatcher",
// §4.B). It is a method rather than a stored func pointer because Go
// methods already are late-bound function values; emitted code captures
// state and calls state.RW the same way it would call through a stored
// pointer in C.
func (s *GuestState) RW(op Opcode, baseAddr, data uint32) uint32 {
	return rw(s, op, baseAddr, data)
}

// AddressLookup exposes the address-lookup stub (spec.md §4.C) to
// emitted code.
func (s *GuestState) AddressLookup(addr uint32) (host []byte, offset uint32, ok bool) {
	return addressLookup(s, addr)
}

// Options bundles the collaborators and knobs Init needs. spec.md's
// language-neutral init(platform_ident, map_array, map_count, cop_ops)
// signature only names the memory map and coprocessor table explicitly;
// the disassembler/emitter/allocator/cycle-table/backend collaborators
// are threaded through this struct instead of as further positional
// parameters, following the teacher's models.Config pattern (a plain
// struct of knobs, not a flag/env parser — §6 rules those out anyway).
type Options struct {
	PlatformIdent string

	Disassembler Disassembler
	Emitter      Emitter
	RegAlloc     Allocator
	Cycles       CyclesTable
	Backend      Backend

	LogLevel logx.Level
}

func (o *Options) validate() error {
	switch {
	case o.Disassembler == nil:
		return errors.New("lightrec: Options.Disassembler is required")
	case o.Emitter == nil:
		return errors.New("lightrec: Options.Emitter is required")
	case o.RegAlloc == nil:
		return errors.New("lightrec: Options.RegAlloc is required")
	case o.Cycles == nil:
		return errors.New("lightrec: Options.Cycles is required")
	case o.Backend == nil:
		return errors.New("lightrec: Options.Backend is required")
	}
	return nil
}

// Init implements spec.md §6's init(platform_ident, map_array, map_count,
// cop_ops) -> state. map entries are copied into the returned state so
// the caller's slice may be discarded; per spec.md §3 entries are
// immutable after init.
func Init(opts Options, memMap []MemoryMapEntry, copOps CopOps) (*GuestState, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	state := &GuestState{
		MemMap:       append([]MemoryMapEntry(nil), memMap...),
		CopOps:       copOps,
		Disassembler: opts.Disassembler,
		Emitter:      opts.Emitter,
		RegAlloc:     opts.RegAlloc,
		Cycles:       opts.Cycles,
		Backend:      opts.Backend,
		Log:          logx.New(opts.LogLevel),
	}
	state.Cache = newBlockCache(state)

	trampoline, err := newTrampoline(state.Backend)
	if err != nil {
		return nil, errors.Wrap(err, "lightrec: unable to compile wrapper trampoline")
	}
	state.Trampoline = trampoline

	handle, err := state.Backend.NewAssembler()
	if err != nil {
		trampoline.Close()
		return nil, errors.Wrap(err, "lightrec: unable to compile address lookup stub")
	}
	state.addrLookupHandle = handle

	return state, nil
}

// Destroy tears down everything Init allocated: the register allocator,
// the block cache (and every block it still owns), the wrapper
// trampoline, and the address-lookup stub handle (spec.md §6).
func Destroy(state *GuestState) error {
	if state == nil {
		return nil
	}
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(state.RegAlloc.Close())
	record(state.Cache.Close())
	record(state.Trampoline.Close())
	if state.addrLookupHandle != nil {
		record(state.addrLookupHandle.Close())
	}
	return firstErr
}

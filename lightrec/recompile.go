package lightrec

import "github.com/pkg/errors"

// ErrUnmappedPC and ErrOutOfMemory are returned internally by
// RecompileBlock so the two failure causes can be logged distinctly, but
// per spec.md §7 they are "indistinguishable to the caller by design":
// Execute treats any non-nil error from RecompileBlock identically (log
// and return the input PC unchanged), never branching on which one it
// got. RecompileBlock logs every failure itself, so only the log messages
// differ.
var (
	ErrUnmappedPC  = errors.New("unmapped pc")
	ErrOutOfMemory = errors.New("out of memory")
)

// RecompileBlock implements spec.md §4.F: resolve the starting PC,
// disassemble, open a code-emitter handle, emit a prologue, emit each
// opcode in order (folding delay slots, skipping NOPs, accumulating
// cycles), and finalise. No explicit return is emitted: the finalised
// closure chain returning is this module's jump to the trampoline exit.
//
// It does not register the block into the cache; spec.md's reference
// execute() (§4.G / original_source/lightrec.c's lightrec_execute) keeps
// recompilation and registration as two separate steps, and so does this
// port.
func RecompileBlock(state *GuestState, pc uint32) (*Block, error) {
	host, _, offset, ok := resolve(state.MemMap, pc)
	if !ok || host == nil {
		state.logger().Errorf("unable to recompile block at pc %#08x: unmapped", pc)
		return nil, ErrUnmappedPC
	}
	code := host[offset:]

	list, err := state.Disassembler.Disassemble(code, pc)
	if err != nil {
		state.logger().Errorf("unable to recompile block at pc %#08x: disassemble: %v", pc, err)
		return nil, errors.Wrap(err, "disassemble")
	}

	handle, err := state.Backend.NewAssembler()
	if err != nil {
		state.logger().Errorf("unable to recompile block at pc %#08x: %v", pc, err)
		return nil, ErrOutOfMemory
	}

	state.RegAlloc.Reset()

	block := &Block{
		GuestPC:    pc,
		KunsegPC:   kunseg(pc),
		OpcodeList: list,
		SourceCode: code,
		handle:     handle,
	}

	handle.Prologue(len(list) * 4)

	skipNext := false
	curPC := pc
	for _, op := range list {
		block.Cycles += state.Cycles.CyclesOf(op)

		if skipNext {
			skipNext = false
			curPC += 4
			continue
		}

		if !op.IsNop() {
			result, err := state.Emitter.RecOpcode(handle, block, op, curPC)
			if err != nil {
				handle.Close()
				state.logger().Errorf("unable to recompile block at pc %#08x: emit opcode at pc %#08x: %v", pc, curPC, err)
				return nil, errors.Wrapf(err, "emit opcode at pc %#08x", curPC)
			}
			skipNext = result == SkipDelaySlot
		}

		curPC += 4
	}

	entry, err := handle.Finalize()
	if err != nil {
		handle.Close()
		state.logger().Errorf("unable to recompile block at pc %#08x: %v", pc, err)
		return nil, ErrOutOfMemory
	}
	block.NativeEntry = entry

	state.logger().Debugf("recompiled block at pc %#08x: %d opcodes, %d cycles", pc, len(list), block.Cycles)
	return block, nil
}

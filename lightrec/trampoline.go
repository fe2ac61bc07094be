package lightrec

// Wrapper trampoline (spec.md §4.D) and address-lookup stub (§4.C).
//
// The original lightrec generates both of these as raw machine code at
// Init via GNU lightning (generate_wrapper_block, generate_address_lookup_block
// in original_source/lightrec.c). Package lightrec has no legitimate way to
// emit host machine code without cgo or a platform assembler — that's
// exactly the Backend collaborator's job (collab.go) — so both are
// represented here as ordinary Go functions operating on *GuestState, and
// built once at Init via the Backend the same way the original builds
// them once via jit_new_state(). See DESIGN.md's Open Question decision.

// Trampoline is the fixed entry/exit boundary every block passes through.
// It corresponds 1:1 to spec.md §4.D: on Enter it is responsible for the
// callee-saved register discipline (§5's "shared-by-convention" state
// pointer) — which in this pure-Go rendition collapses to "the state
// pointer is simply the *GuestState argument passed to every NativeFunc",
// since Go closures close over their environment rather than relying on a
// pinned machine register. Enter is the one safe boundary the design
// notes in spec.md §9 call for: it is the only place a NativeFunc is
// invoked from outside the recompiler.
type Trampoline struct {
	handle Assembler
}

// newTrampoline opens the backend handle the wrapper block corresponds
// to. The handle is never actually used to emit anything in this
// rendition (there's nothing to prologue/epilogue at the Go level), but
// it is opened and closed with the same lifetime the original gives its
// wrapper block, so a real Backend can still account for it.
func newTrampoline(backend Backend) (*Trampoline, error) {
	h, err := backend.NewAssembler()
	if err != nil {
		return nil, err
	}
	h.Prologue(0)
	return &Trampoline{handle: h}, nil
}

// Enter jumps into the block's native entry point with state set up, and
// returns once the block reaches its exit. Blocks do not "return" in the
// spec's model, they jump to state.end_of_block; here that collapses to
// the NativeFunc call returning normally; the trampoline performs no
// further bookkeeping after the call; updating state.NextPC and the exit
// flags is the emitted code's (i.e. the Emitter collaborator's)
// responsibility on every exit path, per spec.md §4.D/§6.
func (t *Trampoline) Enter(state *GuestState, block *Block) {
	block.NativeEntry(state)
}

func (t *Trampoline) Close() error {
	if t.handle == nil {
		return nil
	}
	return t.handle.Close()
}

// addressLookup is the Go-level analogue of the native address-lookup
// stub (spec.md §4.C / generate_address_lookup_block in
// original_source/lightrec.c). It performs a reverse linear scan
// starting from the last map entry, exactly as the reference generator
// does ("the reference generator scans highest-indexed entry downward").
// On a miss it hands off to the segfault path precisely as the stub
// tail-calls __segfault_cb.
//
// Unlike resolve() (memmap.go), which is used by the interpreted
// load/store engine and honors MMIO regions, addressLookup only ever
// answers the direct-memory "give me a host pointer for this code/data
// address" question the original find_code_address/address-lookup block
// answer — it is not consulted for MMIO dispatch.
func addressLookup(state *GuestState, addr uint32) (host []byte, offset uint32, ok bool) {
	kaddr := kunseg(addr)
	entries := state.MemMap
	for i := len(entries) - 1; i >= 0; i-- {
		e := &entries[i]
		if !e.contains(kaddr) {
			continue
		}
		if e.Host == nil {
			break
		}
		return e.Host, kaddr - e.GuestPCBase, true
	}
	segfault(state, addr)
	return nil, 0, false
}

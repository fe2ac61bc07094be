// Package closurebackend is a reference implementation of
// lightrec.Backend. It does not emit host machine code: it assembles a
// block's native entry point as a chain of Go closures, run in sequence.
//
// This stands in for a real code-emission backend (spec.md §6 treats that
// backend as an out-of-scope external collaborator, the same way the
// teacher treats keystone/gapstone as external collaborators behind its
// own models.Arch fields rather than code it owns). Go offers no portable
// way to emit and execute raw host instructions without cgo or a
// per-platform assembler package, so this backend exists to make the
// module runnable end to end; a real JIT backend would implement the
// same lightrec.Backend/lightrec.Assembler interfaces and replace this
// package without touching package lightrec.
package closurebackend

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/SoriDon/lightrec/lightrec"
)

// Backend is the reference lightrec.Backend.
type Backend struct{}

// New returns a ready-to-use reference backend.
func New() *Backend { return &Backend{} }

func (b *Backend) NewAssembler() (lightrec.Assembler, error) {
	return &assembler{}, nil
}

// assembler accumulates NativeFuncs and chains them together on
// Finalize. It corresponds to lightrec.c's jit_state_t handle: opened
// once per block (or once for the wrapper/address-lookup stub), used to
// emit in order, then finalised exactly once.
type assembler struct {
	mu       sync.Mutex
	fns      []lightrec.NativeFunc
	final    bool
	released bool
}

func (a *assembler) Prologue(stackHint int) {
	// No host stack frame to reserve: each NativeFunc closes over its
	// own state and needs no spill slots. Kept as a no-op call so the
	// Assembler contract (spec.md §4.F step 4) has somewhere to plug in
	// a real backend's frame setup.
}

func (a *assembler) Emit(fn lightrec.NativeFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final {
		return
	}
	a.fns = append(a.fns, fn)
}

func (a *assembler) Finalize() (lightrec.NativeFunc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final {
		return nil, errors.New("closurebackend: Finalize called twice")
	}
	a.final = true
	fns := a.fns
	return func(state *lightrec.GuestState) {
		// Every emitted opcode runs regardless of an in-flight segfault
		// (state.Stop): spec.md §7 is explicit that emitted code is
		// "never unwound mid-block" and keeps running to its exit jump
		// without branching on failure. The executor observes Stop only
		// once this closure chain returns.
		for _, fn := range fns {
			fn(state)
		}
	}, nil
}

func (a *assembler) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = true
	a.fns = nil
	return nil
}

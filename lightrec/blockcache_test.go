package lightrec

import "testing"

func newCacheTestState() *GuestState {
	state := &GuestState{}
	state.Cache = newBlockCache(state)
	return state
}

func TestBlockCacheFindMiss(t *testing.T) {
	state := newCacheTestState()
	if b := state.Cache.Find(0x1000); b != nil {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestBlockCacheRegisterAndFind(t *testing.T) {
	state := newCacheTestState()
	block := &Block{GuestPC: 0x1000, SourceCode: []byte{1, 2, 3, 4}, OpcodeList: []Opcode{{Raw: 1}}}
	if err := state.Cache.Register(block); err != nil {
		t.Fatalf("unexpected error registering block: %v", err)
	}
	if got := state.Cache.Find(0x1000); got != block {
		t.Fatal("expected Find to return the registered block")
	}
	if !block.hasHash {
		t.Fatal("expected Register to stamp a content hash")
	}
}

func TestBlockCacheRegisterDuplicatePC(t *testing.T) {
	state := newCacheTestState()
	first := &Block{GuestPC: 0x2000, SourceCode: []byte{1, 2, 3, 4}}
	second := &Block{GuestPC: 0x2000, SourceCode: []byte{5, 6, 7, 8}}
	if err := state.Cache.Register(first); err != nil {
		t.Fatalf("unexpected error on first register: %v", err)
	}
	if err := state.Cache.Register(second); err == nil {
		t.Fatal("expected an error registering a second block at the same pc")
	}
}

func TestBlockCacheUnregisterDoesNotFree(t *testing.T) {
	state := newCacheTestState()
	block := &Block{GuestPC: 0x3000, SourceCode: []byte{1, 2, 3, 4}, OpcodeList: []Opcode{{Raw: 1}}}
	if err := state.Cache.Register(block); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state.Cache.Unregister(block)
	if got := state.Cache.Find(0x3000); got != nil {
		t.Fatal("expected Find to miss after Unregister")
	}
	if block.OpcodeList == nil {
		t.Fatal("Unregister must not free the block; caller retains ownership")
	}
}

// TestUnregisterThenFreeCompletesStaleBlockRecovery exercises spec.md §7's
// StaleBlock recovery path end to end: the embedder unregisters a stale
// block, then must be able to free it itself (spec.md §6's free_block)
// without tearing down the whole GuestState via Destroy.
func TestUnregisterThenFreeCompletesStaleBlockRecovery(t *testing.T) {
	state := newCacheTestState()
	var closed int
	block := &Block{
		GuestPC:    0x5000,
		SourceCode: []byte{1, 2, 3, 4},
		OpcodeList: []Opcode{{Raw: 1}},
		handle:     &countingCloseAssembler{count: &closed},
	}
	if err := state.Cache.Register(block); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state.Cache.Unregister(block)
	if closed != 0 {
		t.Fatal("Unregister must not itself free the block's handle")
	}

	if err := block.Free(); err != nil {
		t.Fatalf("unexpected error from Free: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected Free to close the block's emitter handle, closed=%d", closed)
	}
	if block.OpcodeList != nil {
		t.Fatal("expected Free to drop the block's opcode list")
	}
}

func TestCalculateBlockHashIsDeterministic(t *testing.T) {
	a := &Block{SourceCode: []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, OpcodeList: []Opcode{{Raw: 1}, {Raw: 1}}}
	b := &Block{SourceCode: append([]byte(nil), a.SourceCode...), OpcodeList: []Opcode{{Raw: 1}, {Raw: 1}}}

	if CalculateBlockHash(a) != CalculateBlockHash(b) {
		t.Fatal("expected CalculateBlockHash to be deterministic across two blocks with identical covered bytes")
	}
	if CalculateBlockHash(a) != CalculateBlockHash(a) {
		t.Fatal("expected CalculateBlockHash to be deterministic across repeated calls on the same block")
	}

	b.SourceCode[0] ^= 0xFF
	if CalculateBlockHash(a) == CalculateBlockHash(b) {
		t.Fatal("expected a changed covered byte to change the hash")
	}
}

func TestBlockCacheIsOutdated(t *testing.T) {
	state := newCacheTestState()
	src := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	block := &Block{GuestPC: 0x4000, SourceCode: src, OpcodeList: []Opcode{{Raw: 1}}}
	if err := state.Cache.Register(block); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Cache.IsOutdated(block) {
		t.Fatal("expected a freshly registered block to not be outdated")
	}
	src[0] = 0xFF
	if !state.Cache.IsOutdated(block) {
		t.Fatal("expected a block to be outdated once its covered bytes change")
	}
}

func TestBlockCacheCloseFreesEverything(t *testing.T) {
	state := newCacheTestState()
	var closed int
	for pc := uint32(0); pc < 3; pc++ {
		b := &Block{
			GuestPC:    pc * 4,
			SourceCode: []byte{1, 2, 3, 4},
			OpcodeList: []Opcode{{Raw: 1}},
			handle:     &countingCloseAssembler{count: &closed},
		}
		if err := state.Cache.Register(b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := state.Cache.Close(); err != nil {
		t.Fatalf("unexpected error closing cache: %v", err)
	}
	if closed != 3 {
		t.Fatalf("expected 3 handles closed, got %d", closed)
	}
	if state.Cache.Find(0) != nil {
		t.Fatal("expected the cache to be empty after Close")
	}
}

// countingCloseAssembler is a bare-bones Assembler double local to this
// test file; it only needs to track Close calls, so it does not warrant a
// place in package collabtest (which exists for the real collaborator
// interfaces, not Assembler internals).
type countingCloseAssembler struct {
	count *int
}

func (a *countingCloseAssembler) Prologue(int)             {}
func (a *countingCloseAssembler) Emit(NativeFunc)           {}
func (a *countingCloseAssembler) Finalize() (NativeFunc, error) { return nil, nil }
func (a *countingCloseAssembler) Close() error {
	*a.count++
	return nil
}

package lightrec

// Block: spec.md §3. Owned by the BlockCache once registered; before
// that it is owned by whoever called RecompileBlock.
type Block struct {
	GuestPC     uint32
	KunsegPC    uint32
	NativeEntry NativeFunc
	OpcodeList  []Opcode
	Cycles      uint32
	// SourceCode is the host-mapped window of guest code this block was
	// compiled from (spec.md's source_code_ptr). It must stay readable
	// for the block's entire lifetime, which holds automatically here
	// since it aliases the memory map's backing buffer, itself owned by
	// the embedder for the process lifetime.
	SourceCode []byte

	// handle is the code-emitter handle (spec.md's code_emitter_handle);
	// torn down on free, releasing whatever the Backend considers the
	// block's executable code buffer.
	handle Assembler

	// hash is the content hash recorded at registration time, compared
	// against a fresh CalculateBlockHash result by IsOutdated.
	hash    uint32
	hasHash bool
}

// Free tears down the block's code-emitter handle and drops its opcode
// list, per spec.md §3's destruction order (opcode list, then emitter
// handle, then the block itself — the block struct is reclaimed by the
// Go garbage collector once unreferenced, so only the handle needs
// explicit teardown). It is spec.md §6's free_block(block), exported so a
// block taken back via Cache.Unregister can be released without tearing
// down the whole GuestState (§7's StaleBlock recovery: unregister, free,
// recompile).
func (b *Block) Free() error {
	b.OpcodeList = nil
	if b.handle == nil {
		return nil
	}
	return b.handle.Close()
}

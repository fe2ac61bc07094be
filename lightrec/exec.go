package lightrec

// Execute implements spec.md §4.G / §6: execute(state, pc) -> next_pc.
//
// State machine of a Block's lifecycle (spec.md §4.G): Compiling ->
// Registered -> Executing -> Outdated? -> Unregistered -> Freed. This
// function drives Compiling->Registered->Executing; staleness detection
// and the Unregistered->Freed transition are the embedder's
// responsibility per spec.md §7's StaleBlock policy ("the core does not
// proactively rescan") — callers that want that behavior call
// state.Cache.IsOutdated/Unregister themselves before calling Execute
// again.
func Execute(state *GuestState, pc uint32) uint32 {
	block := state.Cache.Find(pc)
	if block == nil {
		var err error
		block, err = RecompileBlock(state, pc)
		if err != nil || block == nil {
			// OutOfMemory and UnmappedPC are indistinguishable here by
			// design (spec.md §7); RecompileBlock already logged the
			// failure.
			return pc
		}
		if err := state.Cache.Register(block); err != nil {
			state.logger().Errorf("%v", err)
			block.Free()
			return pc
		}
	}

	state.ExitFlags = ExitNormal
	state.ExitCycles = 0
	state.Current = block

	state.Trampoline.Enter(state, block)

	return state.NextPC
}

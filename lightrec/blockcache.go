package lightrec

import (
	"hash/fnv"

	"github.com/pkg/errors"
)

// BlockCache: spec.md §3/§4.E. A PC-keyed map with uniqueness on PC; the
// cache owns every block once registered and frees them all on Close,
// mirroring lightrec_free_block_cache in original_source/blockcache.h.
type BlockCache struct {
	state  *GuestState
	blocks map[uint32]*Block
}

func newBlockCache(state *GuestState) *BlockCache {
	return &BlockCache{state: state, blocks: make(map[uint32]*Block)}
}

// Find returns the block registered for pc, or nil.
func (c *BlockCache) Find(pc uint32) *Block {
	return c.blocks[pc]
}

// Register inserts block, keyed by its GuestPC, and records its content
// hash for future staleness checks. It errors if a block is already
// registered at that PC (spec.md §4.E).
func (c *BlockCache) Register(block *Block) error {
	if _, exists := c.blocks[block.GuestPC]; exists {
		return errors.Errorf("block already registered at pc %#08x", block.GuestPC)
	}
	block.hash = CalculateBlockHash(block)
	block.hasHash = true
	c.blocks[block.GuestPC] = block
	return nil
}

// Unregister removes block from the cache without freeing it; the caller
// takes ownership back (spec.md §4.E).
func (c *BlockCache) Unregister(block *Block) {
	delete(c.blocks, block.GuestPC)
}

// Close frees every block still registered, per the cache's ownership
// of registered blocks (spec.md §3).
func (c *BlockCache) Close() error {
	var firstErr error
	for pc, b := range c.blocks {
		if err := b.Free(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.blocks, pc)
	}
	return firstErr
}

// CalculateBlockHash computes a deterministic, position-independent
// hash over the guest code words a block covers (spec.md §4.E/§6's
// calculate_block_hash(block) -> u32). The source algorithm
// (lightrec_calculate_block_hash) is declared but not shown upstream
// (§9's Open Question); FNV-1a is chosen here, with no claim of
// compatibility with any on-disk cache the original may use.
func CalculateBlockHash(block *Block) uint32 {
	n := len(block.OpcodeList) * 4
	if n > len(block.SourceCode) {
		n = len(block.SourceCode)
	}
	h := fnv.New32a()
	h.Write(block.SourceCode[:n])
	return h.Sum32()
}

// IsOutdated recomputes the block's hash and compares it against the one
// stored at registration time (spec.md §4.E/§8: false immediately after
// compilation, true after any covered byte changes).
func (c *BlockCache) IsOutdated(block *Block) bool {
	if !block.hasHash {
		return false
	}
	return CalculateBlockHash(block) != block.hash
}

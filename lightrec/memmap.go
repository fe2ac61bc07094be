package lightrec

// Memory map and kunseg: spec.md §3 (MemoryMapEntry, MMIOOps) and §4.A.
//
// Grounded on the teacher's region-table idiom in models/cpu/page.go and
// models/cpu/memsim.go (a slice of regions, searched in address order),
// adapted for this spec's very different lifecycle: the teacher's
// MemSim.Map/Unmap/Prot mutate a sorted, binary-searched page list at
// runtime as the guest maps and unmaps memory. A lightrec memory map is
// the opposite: a small, fixed-size table built once at Init and never
// mutated again, searched in *init-time* order rather than address
// order (spec.md §4.A's tie-break rule), so the mutable sort/bsearch
// machinery is intentionally dropped (see DESIGN.md).

const (
	kseg1Base = 0xA0000000
	kseg0Base = 0x80000000
)

// kunseg strips the kseg0/kseg1 mirroring high bits from a guest address.
func kunseg(addr uint32) uint32 {
	if addr >= kseg1Base {
		return addr - kseg1Base
	}
	if addr >= kseg0Base {
		return addr - kseg0Base
	}
	return addr
}

// MMIOOps is a record of load/store callbacks for one memory-mapped I/O
// region. Store callbacks take the value to store; load callbacks return
// the zero-extended loaded value (the engine applies sign extension for
// LB/LH itself, per spec.md §4.B step 4).
type MMIOOps struct {
	SB func(state *GuestState, op Opcode, addr uint32, val uint8)
	SH func(state *GuestState, op Opcode, addr uint32, val uint16)
	SW func(state *GuestState, op Opcode, addr uint32, val uint32)
	LB func(state *GuestState, op Opcode, addr uint32) uint32
	LH func(state *GuestState, op Opcode, addr uint32) uint32
	LW func(state *GuestState, op Opcode, addr uint32) uint32
}

// MemoryMapEntry describes one region of the guest address space.
// Invariant (spec.md §3): regions do not overlap once unsegmented, and at
// most one entry covers any given address.
type MemoryMapEntry struct {
	GuestPCBase uint32
	Length      uint32
	// Host is the backing buffer for a direct-memory region. Nil for a
	// pure-MMIO region (Ops must be non-nil in that case).
	Host []byte
	// Ops being non-nil marks this region as MMIO; its presence
	// suppresses the direct host-memory path for this entry.
	Ops *MMIOOps
}

func (e *MemoryMapEntry) contains(addr uint32) bool {
	return addr >= e.GuestPCBase && addr-e.GuestPCBase < e.Length
}

// resolve implements spec.md §4.A: resolve(addr) -> (host slice window,
// ops, offset) or a miss. MMIO entries are matched against the
// pre-kunseg address; direct-memory entries are matched against the
// kunseg'd address. Search order is the init-time order of entries
// (ties broken by earliest entry), not sorted by address.
func resolve(entries []MemoryMapEntry, addr uint32) (host []byte, ops *MMIOOps, offset uint32, ok bool) {
	kaddr := kunseg(addr)
	for i := range entries {
		e := &entries[i]
		if e.Ops != nil {
			if addr >= e.GuestPCBase && addr-e.GuestPCBase < e.Length {
				return nil, e.Ops, addr - e.GuestPCBase, true
			}
			continue
		}
		if e.contains(kaddr) {
			return e.Host, nil, kaddr - e.GuestPCBase, true
		}
	}
	return nil, nil, 0, false
}

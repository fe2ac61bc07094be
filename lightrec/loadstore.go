package lightrec

import "encoding/binary"

// Load/store engine: spec.md §4.B. Ported line-for-line from
// original_source/lightrec.c's lightrec_rw/lightrec_rw_ops, since
// spec.md's prose description of SWL/SWR/LWL/LWR leaves the exact GENMASK
// arguments ambiguous in a couple of edge cases (shift == 0 and shift ==
// 3) that only the C source resolves unambiguously.

// genMask64 computes GENMASK(h, l) (spec.md §4.B) using 64-bit
// arithmetic so that l == 32 and l == 33 (which arise when shift == 0
// and shift == 3 respectively) behave the same way the original's
// (unsigned long) macro does on a 64-bit host, instead of overflowing a
// 32-bit shift.
func genMask64(h, l uint) uint64 {
	return (^uint64(0) << l) & (^uint64(0) >> (63 - h))
}

func readWordLE(buf []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

func writeWordLE(buf []byte, off uint32, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

// segfault implements spec.md §7's Segfault error path: it never returns
// an error value (emitted code keeps running to its exit jump), it
// mutates state and logs.
func segfault(state *GuestState, addr uint32) {
	state.Stop = true
	state.ExitFlags = ExitSegfault
	state.logger().Errorf("segmentation fault in recompiled code: invalid load/store at address %#08x", addr)
}

// rw is the single entry point of the load/store engine (spec.md §4.B).
// data is the value to store (ignored for loads) or the register value
// LWL/LWR fold into (for loads, unused by other ops). It always returns
// the loaded value for load opcodes, 0 for stores, and 0 on segfault.
func rw(state *GuestState, op Opcode, baseAddr uint32, data uint32) uint32 {
	addr := baseAddr + uint32(int32(op.Imm16))
	kaddr := kunseg(addr)

	host, ops, offset, ok := resolve(state.MemMap, addr)
	if !ok {
		segfault(state, addr)
		return 0
	}

	if ops != nil {
		return rwOps(state, op, ops, addr, data)
	}

	wordOff := offset &^ 3
	shift := kaddr & 3

	switch op.Op {
	case OpSB:
		host[offset] = byte(data)
		return 0
	case OpSH:
		binary.LittleEndian.PutUint16(host[offset:offset+2], uint16(data))
		return 0
	case OpSWL:
		memWord := readWordLE(host, wordOff)
		mask := uint32(genMask64(31, uint(shift)*8+9))
		writeWordLE(host, wordOff, (data>>((3-shift)*8))|(memWord&mask))
		return 0
	case OpSWR:
		memWord := readWordLE(host, wordOff)
		mask := uint32((uint64(1) << (shift * 8)) - 1)
		writeWordLE(host, wordOff, (data<<(shift*8))|(memWord&mask))
		return 0
	case OpSW:
		writeWordLE(host, wordOff, data)
		return 0
	case OpLB:
		return uint32(int32(int8(host[offset])))
	case OpLBU:
		return uint32(host[offset])
	case OpLH:
		return uint32(int32(int16(binary.LittleEndian.Uint16(host[offset : offset+2]))))
	case OpLHU:
		return uint32(binary.LittleEndian.Uint16(host[offset : offset+2]))
	case OpLWL:
		memWord := readWordLE(host, wordOff)
		mask := uint32((uint64(1) << (24 - shift*8)) - 1)
		return (data & mask) | (memWord << (24 - shift*8))
	case OpLWR:
		memWord := readWordLE(host, wordOff)
		mask := uint32(genMask64(31, uint(32-shift*8)))
		return (data & mask) | (memWord >> (shift * 8))
	case OpLW:
		fallthrough
	default:
		return readWordLE(host, wordOff)
	}
}

// rwOps dispatches a load/store against an MMIO region (spec.md §4.B
// step 4). It mirrors lightrec_rw_ops exactly, including its collapsing
// of SWL/SWR into a plain word store and LWL/LWR into a plain word load
// — MMIO regions in the original are never misaligned-accessed, so the
// source does not special-case them.
func rwOps(state *GuestState, op Opcode, ops *MMIOOps, addr uint32, data uint32) uint32 {
	switch op.Op {
	case OpSB:
		ops.SB(state, op, addr, uint8(data))
		return 0
	case OpSH:
		ops.SH(state, op, addr, uint16(data))
		return 0
	case OpSWL, OpSWR, OpSW:
		ops.SW(state, op, addr, data)
		return 0
	case OpLB:
		return uint32(int32(int8(ops.LB(state, op, addr))))
	case OpLBU:
		return ops.LB(state, op, addr)
	case OpLH:
		return uint32(int32(int16(ops.LH(state, op, addr))))
	case OpLHU:
		return ops.LH(state, op, addr)
	case OpLW:
		fallthrough
	default:
		return ops.LW(state, op, addr)
	}
}

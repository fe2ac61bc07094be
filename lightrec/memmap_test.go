package lightrec

import "testing"

func TestKunseg(t *testing.T) {
	cases := []struct {
		addr uint32
		want uint32
	}{
		{0x00000000, 0x00000000},
		{0x7fffffff, 0x7fffffff},
		{0x80000010, 0x00000010},
		{0x9fffffff, 0x1fffffff},
		{0xa0000010, 0x00000010},
		{0xbfffffff, 0x1fffffff},
		{0xc0000000, 0xc0000000},
	}
	for _, c := range cases {
		if got := kunseg(c.addr); got != c.want {
			t.Errorf("kunseg(%#08x) = %#08x, want %#08x", c.addr, got, c.want)
		}
	}
}

func TestResolveBoundary(t *testing.T) {
	entries := []MemoryMapEntry{
		{GuestPCBase: 0, Length: 0x1000, Host: make([]byte, 0x1000)},
	}
	if _, _, _, ok := resolve(entries, 0x80000000+0xfff); !ok {
		t.Fatal("expected last byte of region to resolve")
	}
	if _, _, _, ok := resolve(entries, 0x80000000+0x1000); ok {
		t.Fatal("expected one past the region to miss")
	}
}

func TestResolveKsegMirrors(t *testing.T) {
	buf := make([]byte, 0x1000)
	entries := []MemoryMapEntry{{GuestPCBase: 0, Length: 0x1000, Host: buf}}

	host1, ops1, off1, ok1 := resolve(entries, 0xA0000010)
	host2, ops2, off2, ok2 := resolve(entries, 0x80000010)
	if !ok1 || !ok2 {
		t.Fatal("expected both mirrors to resolve")
	}
	if ops1 != nil || ops2 != nil {
		t.Fatal("expected direct memory, not MMIO")
	}
	if off1 != off2 || off1 != 0x10 {
		t.Fatalf("expected matching offsets 0x10, got %#x %#x", off1, off2)
	}
	if &host1[0] != &host2[0] {
		t.Fatal("expected both mirrors to resolve to the same backing buffer")
	}
}

func TestResolveMMIOUsesPreKunsegAddress(t *testing.T) {
	var seenAddr uint32
	ops := &MMIOOps{
		LW: func(state *GuestState, op Opcode, addr uint32) uint32 {
			seenAddr = addr
			return 0
		},
	}
	entries := []MemoryMapEntry{
		{GuestPCBase: 0xA0000000, Length: 0x10, Ops: ops},
	}
	// this region only matches the un-kunseg'd address, since it's MMIO
	if _, gotOps, _, ok := resolve(entries, 0xA0000004); !ok || gotOps != ops {
		t.Fatal("expected MMIO region to match pre-kunseg address")
	}
	if _, _, _, ok := resolve(entries, 0x80000004); ok {
		t.Fatal("expected the kseg0 mirror to miss an MMIO region keyed on kseg1")
	}
	_ = seenAddr
}

func TestResolveOrderIsInitOrderNotAddressOrder(t *testing.T) {
	bufLow := make([]byte, 0x10)
	bufHigh := make([]byte, 0x10)
	// deliberately out of address order: the higher region comes first
	entries := []MemoryMapEntry{
		{GuestPCBase: 0x1000, Length: 0x10, Host: bufHigh},
		{GuestPCBase: 0x0, Length: 0x2000, Host: bufLow},
	}
	host, _, _, ok := resolve(entries, 0x1004)
	if !ok {
		t.Fatal("expected a hit")
	}
	if &host[0] != &bufHigh[0] {
		t.Fatal("expected the first matching entry in init order to win, not the address-sorted one")
	}
}

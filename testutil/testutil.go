package testutil

import (
	"math/rand"
	"net/netip"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// IPv4Networks returns n distinct, non-overlapping IPv4 prefixes of the given
// length. It panics if n exceeds the number of such prefixes.
func (r *RNG) IPv4Networks(n, bits int) []netip.Prefix {
	if bits < 1 || bits > 32 || (bits < 31 && n > 1<<bits) {
		panic("testutil: not enough distinct IPv4 networks")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[netip.Prefix]struct{}, n)
	out := make([]netip.Prefix, 0, n)
	for len(out) < n {
		var b [4]byte
		v := r.rand.Uint32()
		b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		p := netip.PrefixFrom(netip.AddrFrom4(b), bits).Masked()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

var (
	teredo    = netip.MustParsePrefix("2001::/32")
	sixToFour = netip.MustParsePrefix("2002::/16")
)

// IPv6Networks returns n distinct, non-overlapping IPv6 prefixes of the given
// length, all outside the IPv4 subtree (::/96) and the Teredo and 6to4
// ranges that aliased databases map onto it.
func (r *RNG) IPv6Networks(n, bits int) []netip.Prefix {
	if bits < 8 || bits > 128 {
		panic("testutil: IPv6 prefix length out of range")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[netip.Prefix]struct{}, n)
	out := make([]netip.Prefix, 0, n)
	for len(out) < n {
		var b [16]byte
		for i := range b {
			b[i] = byte(r.rand.Intn(256))
		}
		// 2000::/3, global unicast
		b[0] = 0x20 | (b[0] & 0x1f)
		p := netip.PrefixFrom(netip.AddrFrom16(b), bits).Masked()
		if p.Overlaps(teredo) || p.Overlaps(sixToFour) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

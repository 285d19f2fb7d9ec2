package testutil

import (
	"net/netip"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPv4Networks(t *testing.T) {
	rng := NewRNG(1)
	nets := rng.IPv4Networks(500, 24)
	require.Len(t, nets, 500)

	seen := make(map[netip.Prefix]bool)
	for _, p := range nets {
		assert.True(t, p.Addr().Is4())
		assert.Equal(t, 24, p.Bits())
		assert.Equal(t, p, p.Masked())
		assert.False(t, seen[p])
		seen[p] = true
	}
}

func TestIPv6Networks(t *testing.T) {
	rng := NewRNG(2)
	for _, p := range rng.IPv6Networks(100, 48) {
		assert.True(t, p.Addr().Is6())
		assert.False(t, p.Addr().Is4In6())
		assert.Equal(t, byte(0x20), p.Addr().As16()[0]&0xe0)
		assert.False(t, p.Overlaps(netip.MustParsePrefix("2002::/16")))
		assert.False(t, p.Overlaps(netip.MustParsePrefix("2001::/32")))
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	a := rng.IPv4Networks(10, 16)

	rng.Reset()
	b := rng.IPv4Networks(10, 16)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(42), rng.Seed())
}

func TestBuildDatabase(t *testing.T) {
	path := BuildDatabase(t, Options{IPVersion: 4},
		Entry{Network: netip.MustParsePrefix("1.1.1.0/24"), Record: CityRecord("1.1.1.0/24")},
	)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())

	for _, format := range []string{"gzip", "zstd", "lz4"} {
		compressed := CompressFile(t, path, format)
		_, err := os.Stat(compressed)
		assert.NoError(t, err, format)
	}
}

package testutil

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
	"github.com/pierrec/lz4/v4"
)

// Options describes the header of a fixture database.
type Options struct {
	// DatabaseType defaults to "Test-City".
	DatabaseType string
	// IPVersion is 4 or 6. Defaults to 6.
	IPVersion int
	// RecordSize is 24, 28 or 32. Defaults to 28.
	RecordSize  int
	Description map[string]string
	Languages   []string
	BuildEpoch  int64
	// AliasIPv4 maps ::ffff:0:0/96, 2001::/32 and 2002::/16 of an IPv6
	// database onto the IPv4 subtree, as published databases do.
	AliasIPv4 bool
}

// Entry is one network and the record stored for it.
type Entry struct {
	Network netip.Prefix
	Record  mmdbtype.DataType
}

// WriteDatabase writes a MaxMind DB containing entries to path.
func WriteDatabase(path string, opts Options, entries []Entry) error {
	if opts.DatabaseType == "" {
		opts.DatabaseType = "Test-City"
	}
	if opts.IPVersion == 0 {
		opts.IPVersion = 6
	}
	if opts.RecordSize == 0 {
		opts.RecordSize = 28
	}
	if opts.Description == nil {
		opts.Description = map[string]string{"en": "geodb test database"}
	}
	if opts.Languages == nil {
		opts.Languages = []string{"en"}
	}

	tree, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType:            opts.DatabaseType,
		Description:             opts.Description,
		Languages:               opts.Languages,
		IPVersion:               opts.IPVersion,
		RecordSize:              opts.RecordSize,
		BuildEpoch:              opts.BuildEpoch,
		IncludeReservedNetworks: true,
		DisableIPv4Aliasing:     !opts.AliasIPv4,
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := tree.Insert(ipNet(e.Network), e.Record); err != nil {
			return fmt.Errorf("insert %s: %w", e.Network, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := tree.WriteTo(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// BuildDatabase writes a fixture database into a temporary directory and
// returns its path.
func BuildDatabase(tb testing.TB, opts Options, entries ...Entry) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "test.mmdb")
	if err := WriteDatabase(path, opts, entries); err != nil {
		tb.Fatalf("testutil: write database: %v", err)
	}
	return path
}

// CompressFile writes a copy of src compressed with format ("gzip", "zstd" or
// "lz4") next to it and returns the new path.
func CompressFile(tb testing.TB, src, format string) string {
	tb.Helper()

	in, err := os.Open(src)
	if err != nil {
		tb.Fatalf("testutil: %v", err)
	}
	defer in.Close()

	dst := src + "." + format
	out, err := os.Create(dst)
	if err != nil {
		tb.Fatalf("testutil: %v", err)
	}
	defer out.Close()

	var w io.WriteCloser
	switch format {
	case "gzip":
		w = gzip.NewWriter(out)
	case "zstd":
		w, err = zstd.NewWriter(out)
		if err != nil {
			tb.Fatalf("testutil: %v", err)
		}
	case "lz4":
		w = lz4.NewWriter(out)
	default:
		tb.Fatalf("testutil: unknown compression %q", format)
	}

	if _, err := io.Copy(w, in); err != nil {
		tb.Fatalf("testutil: compress: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("testutil: compress: %v", err)
	}
	return dst
}

// CityRecord returns a city-style record. The network is embedded so that
// records of neighbouring networks never compare equal and get merged.
func CityRecord(network string) mmdbtype.Map {
	return mmdbtype.Map{
		"network": mmdbtype.String(network),
		"city": mmdbtype.Map{
			"geoname_id": mmdbtype.Uint32(2643743),
			"names": mmdbtype.Map{
				"en": mmdbtype.String("London"),
				"de": mmdbtype.String("London"),
				"ja": mmdbtype.String("ロンドン"),
			},
		},
		"location": mmdbtype.Map{
			"latitude":        mmdbtype.Float64(51.5142),
			"longitude":       mmdbtype.Float64(-0.0931),
			"accuracy_radius": mmdbtype.Uint16(100),
		},
		"subdivisions": mmdbtype.Slice{
			mmdbtype.Map{"iso_code": mmdbtype.String("ENG")},
		},
		"is_anycast": mmdbtype.Bool(false),
	}
}

// NumericRecord returns a record exercising every numeric type, including
// values that do not fit a signed 32-bit integer.
func NumericRecord(network string) mmdbtype.Map {
	u128 := new(big.Int).Lsh(big.NewInt(1), 120)
	return mmdbtype.Map{
		"network": mmdbtype.String(network),
		"uint16":  mmdbtype.Uint16(100),
		"uint32":  mmdbtype.Uint32(1 << 31),
		"uint64":  mmdbtype.Uint64(1 << 63),
		"uint128": (*mmdbtype.Uint128)(u128),
		"int32":   mmdbtype.Int32(-268435456),
		"float":   mmdbtype.Float32(1.1),
		"double":  mmdbtype.Float64(42.123456),
		"bytes":   mmdbtype.Bytes{0, 0, 0, 42},
		"bool":    mmdbtype.Bool(true),
		"array":   mmdbtype.Slice{mmdbtype.Uint32(1), mmdbtype.Uint32(2), mmdbtype.Uint32(3)},
	}
}

func ipNet(p netip.Prefix) *net.IPNet {
	return &net.IPNet{
		IP:   net.IP(p.Addr().AsSlice()),
		Mask: net.CIDRMask(p.Bits(), p.Addr().BitLen()),
	}
}

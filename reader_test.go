package geodb_test

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"math/big"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/geodb"
	"github.com/hupe1980/geodb/testutil"
	"github.com/oschwald/maxminddb-golang/v2/mmdbdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ExactRecord(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 6},
		entry("1.1.1.0/24"),
		entry("2001:4860::/32"),
	)

	for _, mode := range []geodb.Mode{geodb.ModeMMap, geodb.ModeMemory} {
		t.Run(mode.String(), func(t *testing.T) {
			r := openReader(t, path, mode)

			rec, err := r.Get("1.1.1.1")
			require.NoError(t, err)

			m := rec.(map[string]any)
			assert.Equal(t, "1.1.1.0/24", m["network"])
			assert.Equal(t, false, m["is_anycast"])

			city := m["city"].(map[string]any)
			assert.Equal(t, 2643743, city["geoname_id"])
			assert.Equal(t, "ロンドン", city["names"].(map[string]any)["ja"])

			loc := m["location"].(map[string]any)
			assert.InDelta(t, 51.5142, loc["latitude"].(float64), 1e-9)
			assert.Equal(t, 100, loc["accuracy_radius"])

			subs := m["subdivisions"].([]any)
			require.Len(t, subs, 1)
			assert.Equal(t, "ENG", subs[0].(map[string]any)["iso_code"])

			rec, err = r.Get("2001:4860:4860::8888")
			require.NoError(t, err)
			assert.Equal(t, "2001:4860::/32", networkOf(t, rec))
		})
	}
}

func TestGet_Absent(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 4}, entry("1.1.1.0/24"))
	r := openReader(t, path, geodb.ModeAuto)

	rec, prefixLen, err := r.GetWithPrefixLen("1.1.1.1")
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Equal(t, 24, prefixLen)

	rec, prefixLen, err = r.GetWithPrefixLen("2.2.2.2")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 7, prefixLen)

	rec, err = r.Get("2.2.2.2")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, network, err := r.LookupPrefix(netip.MustParseAddr("1.1.1.200"))
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Equal(t, netip.MustParsePrefix("1.1.1.0/24"), network)
}

func TestGet_NumericPolicy(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 4}, testutil.Entry{
		Network: netip.MustParsePrefix("10.0.0.0/8"),
		Record:  testutil.NumericRecord("10.0.0.0/8"),
	})
	r := openReader(t, path, geodb.ModeMemory)

	rec, err := r.Get("10.1.2.3")
	require.NoError(t, err)
	m := rec.(map[string]any)

	assert.Equal(t, 100, m["uint16"])
	assert.Equal(t, 1<<31, m["uint32"])
	assert.Equal(t, uint64(1<<63), m["uint64"])
	assert.Equal(t, -268435456, m["int32"])
	assert.InDelta(t, 1.1, m["float"].(float64), 1e-6)
	assert.InDelta(t, 42.123456, m["double"].(float64), 1e-9)
	assert.Equal(t, []byte{0, 0, 0, 42}, m["bytes"])
	assert.Equal(t, true, m["bool"])
	assert.Equal(t, []any{1, 2, 3}, m["array"])

	u128, ok := m["uint128"].(*big.Int)
	require.True(t, ok, "uint128 is %T", m["uint128"])
	assert.Equal(t, "1329227995784915872903807060280344576", u128.String())
}

func TestGet_IPv6InIPv4Database(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 4}, entry("1.1.1.0/24"))
	r := openReader(t, path, geodb.ModeAuto)

	for _, ip := range []string{"::1", "2001:db8::1", "::ffff:1.1.1.1"} {
		_, err := r.Get(ip)
		require.ErrorIs(t, err, geodb.ErrInvalidArgument, ip)

		var ve *geodb.IPVersionError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, err.Error(), "you attempted to look up an IPv6 address in an IPv4-only database")
	}

	_, err := r.Get("::1")
	assert.EqualError(t, err, "error looking up ::1: you attempted to look up an IPv6 address in an IPv4-only database")
}

func TestGet_InvalidAddress(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("1.1.1.0/24"))
	r := openReader(t, path, geodb.ModeAuto)

	for _, ip := range []string{"", "not-an-ip", "1.1.1", "1.1.1.1/24", "fe80::1%eth0"} {
		_, err := r.Get(ip)
		require.ErrorIs(t, err, geodb.ErrInvalidArgument, ip)
		assert.EqualError(t, err, "'"+ip+"' does not appear to be an IPv4 or IPv6 address")
	}

	_, err := r.Lookup(netip.Addr{})
	assert.ErrorIs(t, err, geodb.ErrInvalidArgument)
}

func TestGet_AliasedIPv4(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 6, AliasIPv4: true},
		entry("81.2.69.0/24"),
	)
	r := openReader(t, path, geodb.ModeMMap)

	for _, ip := range []string{"81.2.69.160", "::ffff:81.2.69.160", "2002:5102:45a0::1"} {
		rec, err := r.Get(ip)
		require.NoError(t, err, ip)
		assert.Equal(t, "81.2.69.0/24", networkOf(t, rec), ip)
	}

	n := 0
	require.NoError(t, r.Each(func(network netip.Prefix, _ any) bool {
		assert.Equal(t, "81.2.69.0/24", network.String())
		n++
		return true
	}))
	assert.Equal(t, 1, n)
}

func TestDecode_Struct(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("81.2.69.0/24"))
	r := openReader(t, path, geodb.ModeAuto)

	var city struct {
		City struct {
			GeoNameID uint32            `maxminddb:"geoname_id"`
			Names     map[string]string `maxminddb:"names"`
		} `maxminddb:"city"`
		Location struct {
			Latitude float64 `maxminddb:"latitude"`
		} `maxminddb:"location"`
	}

	found, err := r.Decode(netip.MustParseAddr("81.2.69.160"), &city)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(2643743), city.City.GeoNameID)
	assert.Equal(t, "London", city.City.Names["en"])

	found, err = r.Decode(netip.MustParseAddr("81.2.70.1"), &city)
	require.NoError(t, err)
	assert.False(t, found)

	var nilTarget *struct{}
	for _, target := range []any{nil, city, nilTarget} {
		found, err = r.Decode(netip.MustParseAddr("81.2.69.160"), target)
		require.ErrorIs(t, err, geodb.ErrInvalidArgument, "target %T", target)
		assert.NotErrorIs(t, err, geodb.ErrInvalidDatabase)
		assert.False(t, found)
	}
}

type panickingRecord struct{}

func (*panickingRecord) UnmarshalMaxMindDB(*mmdbdata.Decoder) error {
	panic("unmarshal exploded")
}

func TestDecode_PanicBecomesLookupError(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("81.2.69.0/24"))
	r := openReader(t, path, geodb.ModeMemory)
	addr := netip.MustParseAddr("81.2.69.160")

	var rec panickingRecord
	found, err := r.Decode(addr, &rec)
	require.ErrorIs(t, err, geodb.ErrLookup)
	assert.Contains(t, err.Error(), "unmarshal exploded")
	assert.False(t, found)

	got, err := r.Lookup(addr)
	require.NoError(t, err)
	assert.Equal(t, "81.2.69.0/24", networkOf(t, got))
}

func TestMetadata(t *testing.T) {
	epoch := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	path := testutil.BuildDatabase(t, testutil.Options{
		DatabaseType: "GeoIP2-City",
		IPVersion:    6,
		RecordSize:   28,
		Description:  map[string]string{"en": "Test City", "de": "Test Stadt"},
		Languages:    []string{"en", "de"},
		BuildEpoch:   epoch.Unix(),
	}, entry("1.1.1.0/24"), entry("8.8.8.0/24"))
	r := openReader(t, path, geodb.ModeAuto)

	meta, err := r.Metadata()
	require.NoError(t, err)

	assert.Equal(t, uint16(2), meta.BinaryFormatMajorVersion)
	assert.Equal(t, uint16(0), meta.BinaryFormatMinorVersion)
	assert.Equal(t, "GeoIP2-City", meta.DatabaseType)
	assert.Equal(t, uint16(6), meta.IPVersion)
	assert.Equal(t, uint16(28), meta.RecordSize)
	assert.Equal(t, uint16(7), meta.NodeByteSize())
	assert.Equal(t, meta.NodeCount*7, meta.SearchTreeSize())
	assert.Positive(t, meta.NodeCount)
	assert.Equal(t, uint64(epoch.Unix()), meta.BuildEpoch)
	assert.Equal(t, epoch, meta.BuildTime())
	assert.Equal(t, []string{"en", "de"}, meta.Languages)
	assert.Equal(t, "Test Stadt", meta.Description["de"])

	// Callers get a copy.
	meta.Description["en"] = "changed"
	meta.Languages[0] = "xx"
	again, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "Test City", again.Description["en"])
	assert.Equal(t, "en", again.Languages[0])
}

func TestClose(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("1.1.1.0/24"))
	r, err := geodb.Open(path, geodb.ModeAuto)
	require.NoError(t, err)

	assert.False(t, r.Closed())
	require.NoError(t, r.Close())
	assert.True(t, r.Closed())

	// Idempotent.
	require.NoError(t, r.Close())
	assert.True(t, r.Closed())

	_, err = r.Get("1.1.1.1")
	assert.ErrorIs(t, err, geodb.ErrClosed)
	assert.EqualError(t, err, "attempt to read from a closed MaxMind DB")

	_, _, err = r.GetWithPrefixLen("1.1.1.1")
	assert.ErrorIs(t, err, geodb.ErrClosed)

	_, err = r.Metadata()
	assert.ErrorIs(t, err, geodb.ErrClosed)

	_, err = r.Decode(netip.MustParseAddr("1.1.1.1"), new(any))
	assert.ErrorIs(t, err, geodb.ErrClosed)

	err = r.Each(func(netip.Prefix, any) bool { return true })
	assert.ErrorIs(t, err, geodb.ErrClosed)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("not found", func(t *testing.T) {
		_, err := geodb.Open(filepath.Join(dir, "missing.mmdb"), geodb.ModeAuto)
		assert.ErrorIs(t, err, geodb.ErrDatabaseNotFound)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("invalid database", func(t *testing.T) {
		path := filepath.Join(dir, "README.md")
		require.NoError(t, os.WriteFile(path, []byte("# not a database\n"), 0o600))

		for _, mode := range []geodb.Mode{geodb.ModeMMap, geodb.ModeMemory} {
			_, err := geodb.Open(path, mode)
			require.ErrorIs(t, err, geodb.ErrInvalidDatabase)

			var ide *geodb.InvalidDatabaseError
			require.True(t, errors.As(err, &ide))
			assert.Equal(t, path, ide.Path)
			assert.EqualError(t, err, "error opening database file ("+path+"): is this a valid MaxMind DB file?")
		}
	})

	t.Run("directory", func(t *testing.T) {
		_, err := geodb.Open(dir, geodb.ModeAuto)
		assert.ErrorIs(t, err, geodb.ErrIO)
	})

	t.Run("unsupported mode", func(t *testing.T) {
		_, err := geodb.Open(dir, geodb.Mode(9))
		assert.ErrorIs(t, err, geodb.ErrInvalidArgument)
	})
}

func TestOpen_Compressed(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("1.1.1.0/24"), entry("2001:4860::/32"))
	plain := openReader(t, path, geodb.ModeMMap)

	for _, format := range []string{"gzip", "zstd", "lz4"} {
		t.Run(format, func(t *testing.T) {
			compressed := testutil.CompressFile(t, path, format)

			r := openReader(t, compressed, geodb.ModeAuto, geodb.WithLoadChunkSize(256))
			assert.Equal(t, geodb.ModeMemory, r.Mode())

			for _, ip := range []string{"1.1.1.1", "2001:4860::1", "9.9.9.9"} {
				want, err := plain.Get(ip)
				require.NoError(t, err)
				got, err := r.Get(ip)
				require.NoError(t, err)
				assert.Equal(t, want, got, ip)
			}

			_, err := geodb.Open(compressed, geodb.ModeMMap)
			assert.ErrorIs(t, err, geodb.ErrInvalidArgument)
		})
	}
}

func TestOpen_MemoryLimit(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("1.1.1.0/24"))

	_, err := geodb.Open(path, geodb.ModeMemory, geodb.WithMemoryLimit(16))
	assert.ErrorIs(t, err, geodb.ErrIO)

	// Memory-mapped databases are not charged against the limit.
	r := openReader(t, path, geodb.ModeMMap, geodb.WithMemoryLimit(16))
	assert.Equal(t, geodb.ModeMMap, r.Mode())

	fi, err := os.Stat(path)
	require.NoError(t, err)

	ctrl := geodb.NewController(geodb.ControllerConfig{MemoryLimitBytes: fi.Size()})
	first := openReader(t, path, geodb.ModeMemory, geodb.WithController(ctrl))
	assert.Equal(t, fi.Size(), ctrl.MemoryUsage())

	// The shared budget is exhausted until the first reader is closed.
	_, err = geodb.Open(path, geodb.ModeMemory, geodb.WithController(ctrl))
	assert.ErrorIs(t, err, geodb.ErrIO)

	require.NoError(t, first.Close())
	assert.Zero(t, ctrl.MemoryUsage())

	second := openReader(t, path, geodb.ModeMemory, geodb.WithController(ctrl))
	assert.False(t, second.Closed())
}

func TestModeAuto_ResolvesToMMap(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{}, entry("1.1.1.0/24"))
	r := openReader(t, path, geodb.ModeAuto, geodb.WithAccessPattern(geodb.AccessSequential))

	assert.Equal(t, geodb.ModeMMap, r.Mode())
	assert.Equal(t, path, r.Path())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want geodb.Mode
	}{
		{"auto", geodb.ModeAuto},
		{"mmap", geodb.ModeMMap},
		{"memory", geodb.ModeMemory},
		{"MODE_AUTO", geodb.ModeAuto},
		{"MODE_MMAP", geodb.ModeMMap},
		{"MODE_MEMORY", geodb.ModeMemory},
	}
	for _, tt := range tests {
		got, err := geodb.ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := geodb.ParseMode("MODE_FILE")
	require.ErrorIs(t, err, geodb.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "unsupported mode: MODE_FILE")
}

func TestMetricsCollector(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 4}, entry("1.1.1.0/24"), entry("8.8.8.0/24"))
	mc := &geodb.BasicMetricsCollector{}

	r, err := geodb.Open(path, geodb.ModeAuto, geodb.WithMetricsCollector(mc))
	require.NoError(t, err)

	_, err = r.Get("1.1.1.1")
	require.NoError(t, err)
	_, err = r.Get("9.9.9.9")
	require.NoError(t, err)
	_, err = r.Get("::1")
	require.Error(t, err)

	require.NoError(t, r.Each(func(netip.Prefix, any) bool { return true }))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Zero(t, stats.OpenErrors)
	assert.Equal(t, int64(3), stats.LookupCount)
	assert.Equal(t, int64(1), stats.LookupHits)
	assert.Equal(t, int64(1), stats.LookupErrors)
	assert.Equal(t, int64(1), stats.IterationCount)
	assert.Equal(t, int64(2), stats.IterationNetworks)
	assert.Equal(t, int64(1), stats.CloseCount)
}

func TestLogger(t *testing.T) {
	path := testutil.BuildDatabase(t, testutil.Options{DatabaseType: "Log-Test"}, entry("1.1.1.0/24"))

	var buf bytes.Buffer
	logger := geodb.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r, err := geodb.Open(path, geodb.ModeMemory, geodb.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, r.Each(func(netip.Prefix, any) bool { return true }))
	require.NoError(t, r.Close())

	out := buf.String()
	assert.Contains(t, out, `"msg":"database opened"`)
	assert.Contains(t, out, `"database_type":"Log-Test"`)
	assert.Contains(t, out, `"mode":"memory"`)
	assert.Contains(t, out, `"msg":"iteration completed"`)
	assert.Contains(t, out, `"msg":"database closed"`)
}

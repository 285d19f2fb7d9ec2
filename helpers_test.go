package geodb_test

import (
	"net/netip"
	"testing"

	"github.com/hupe1980/geodb"
	"github.com/hupe1980/geodb/testutil"
	"github.com/stretchr/testify/require"
)

func entry(network string) testutil.Entry {
	return testutil.Entry{
		Network: netip.MustParsePrefix(network),
		Record:  testutil.CityRecord(network),
	}
}

func openReader(t *testing.T, path string, mode geodb.Mode, opts ...geodb.Option) *geodb.Reader {
	t.Helper()

	r, err := geodb.Open(path, mode, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// networkOf returns the "network" field every fixture record carries.
func networkOf(t *testing.T, rec any) string {
	t.Helper()

	m, ok := rec.(map[string]any)
	require.True(t, ok, "record is %T", rec)
	s, ok := m["network"].(string)
	require.True(t, ok)
	return s
}

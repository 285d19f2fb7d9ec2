// Package testutil provides testing utilities for geodb.
//
// This package is intended for use in tests and benchmarks only.
// It writes synthetic MaxMind DB files and generates random networks.
//
// # Fixture Databases
//
//	path := testutil.BuildDatabase(t, testutil.Options{IPVersion: 6},
//		testutil.Entry{Network: netip.MustParsePrefix("1.1.1.0/24"), Record: testutil.CityRecord("1.1.1.0/24")},
//	)
//
// # Random Networks
//
//	rng := testutil.NewRNG(seed)
//	nets := rng.IPv4Networks(100, 24)
package testutil

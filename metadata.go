package geodb

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/hupe1980/geodb/internal/conv"
	"github.com/oschwald/maxminddb-golang/v2"
)

// Metadata describes a database. It is read from the file header at open
// time and never changes afterwards.
type Metadata struct {
	BinaryFormatMajorVersion uint16
	BinaryFormatMinorVersion uint16
	BuildEpoch               uint64
	DatabaseType             string
	Description              map[string]string
	IPVersion                uint16
	Languages                []string
	NodeCount                uint32
	RecordSize               uint16
}

func newMetadata(m maxminddb.Metadata) (Metadata, error) {
	var (
		out Metadata
		err error
	)
	narrow16 := func(v uint) uint16 {
		n, cerr := conv.UintToUint16(v)
		err = errors.Join(err, cerr)
		return n
	}

	out.BinaryFormatMajorVersion = narrow16(m.BinaryFormatMajorVersion)
	out.BinaryFormatMinorVersion = narrow16(m.BinaryFormatMinorVersion)
	out.IPVersion = narrow16(m.IPVersion)
	out.RecordSize = narrow16(m.RecordSize)
	nodeCount, cerr := conv.UintToUint32(m.NodeCount)
	err = errors.Join(err, cerr)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata out of range: %w", err)
	}

	out.NodeCount = nodeCount
	out.BuildEpoch = uint64(m.BuildEpoch)
	out.DatabaseType = m.DatabaseType
	out.Description = maps.Clone(m.Description)
	out.Languages = slices.Clone(m.Languages)
	return out, nil
}

// NodeByteSize returns the size of a search tree node in bytes.
func (m Metadata) NodeByteSize() uint16 {
	return m.RecordSize / 4
}

// SearchTreeSize returns the size of the search tree in bytes.
func (m Metadata) SearchTreeSize() uint32 {
	return m.NodeCount * uint32(m.NodeByteSize())
}

// BuildTime returns BuildEpoch as a UTC time.
func (m Metadata) BuildTime() time.Time {
	return time.Unix(int64(m.BuildEpoch), 0).UTC()
}

func (m Metadata) clone() Metadata {
	m.Description = maps.Clone(m.Description)
	m.Languages = slices.Clone(m.Languages)
	return m
}

package geodb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    lookupCounter   prometheus.Counter
//	    lookupHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordLookup(duration time.Duration, found bool, err error) {
//	    p.lookupCounter.Inc()
//	    p.lookupHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordOpen is called after each open attempt.
	// mode is the resolved mode, err is nil if successful.
	RecordOpen(mode Mode, duration time.Duration, err error)

	// RecordLookup is called after each lookup.
	// found reports whether the address had a record.
	RecordLookup(duration time.Duration, found bool, err error)

	// RecordIteration is called when an iteration ends.
	// networks is the number of networks yielded.
	RecordIteration(networks int, duration time.Duration, err error)

	// RecordClose is called once when a Reader is closed.
	RecordClose()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(Mode, time.Duration, error)     {}
func (NoopMetricsCollector) RecordLookup(time.Duration, bool, error)   {}
func (NoopMetricsCollector) RecordIteration(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordClose()                              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount           atomic.Int64
	OpenErrors          atomic.Int64
	LookupCount         atomic.Int64
	LookupHits          atomic.Int64
	LookupErrors        atomic.Int64
	LookupTotalNanos    atomic.Int64
	IterationCount      atomic.Int64
	IterationErrors     atomic.Int64
	IterationNetworks   atomic.Int64
	IterationTotalNanos atomic.Int64
	CloseCount          atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(mode Mode, duration time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, found bool, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	}
	if found {
		b.LookupHits.Add(1)
	}
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(networks int, duration time.Duration, err error) {
	b.IterationCount.Add(1)
	b.IterationNetworks.Add(int64(networks))
	b.IterationTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IterationErrors.Add(1)
	}
}

// RecordClose implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClose() {
	b.CloseCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:         b.OpenCount.Load(),
		OpenErrors:        b.OpenErrors.Load(),
		LookupCount:       b.LookupCount.Load(),
		LookupHits:        b.LookupHits.Load(),
		LookupErrors:      b.LookupErrors.Load(),
		LookupAvgNanos:    avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		IterationCount:    b.IterationCount.Load(),
		IterationErrors:   b.IterationErrors.Load(),
		IterationNetworks: b.IterationNetworks.Load(),
		IterationAvgNanos: avg(b.IterationTotalNanos.Load(), b.IterationCount.Load()),
		CloseCount:        b.CloseCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount         int64
	OpenErrors        int64
	LookupCount       int64
	LookupHits        int64
	LookupErrors      int64
	LookupAvgNanos    int64
	IterationCount    int64
	IterationErrors   int64
	IterationNetworks int64
	IterationAvgNanos int64
	CloseCount        int64
}

package geodb

import (
	"log/slog"

	"github.com/hupe1980/geodb/internal/mmap"
	"github.com/hupe1980/geodb/internal/resource"
)

// AccessPattern is a hint to the kernel about how a memory-mapped database
// will be read.
type AccessPattern = mmap.AccessPattern

const (
	AccessDefault    = mmap.AccessDefault
	AccessSequential = mmap.AccessSequential
	AccessRandom     = mmap.AccessRandom
	AccessWillNeed   = mmap.AccessWillNeed
)

// Controller bounds the memory held by in-memory databases and the speed at
// which they are loaded. A Controller may be shared by several readers.
type Controller = resource.Controller

// ControllerConfig configures a Controller.
type ControllerConfig = resource.Config

// NewController creates a Controller.
func NewController(cfg ControllerConfig) *Controller {
	return resource.NewController(cfg)
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	controller       *Controller
	memoryLimit      int64
	loadRate         int64
	accessPattern    AccessPattern
	chunkSize        int
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		accessPattern:    AccessRandom,
	}
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel enables text logging to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector.
// If nil is passed, metrics are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMemoryLimit caps the bytes an in-memory database may occupy.
// Loading a larger database fails with ErrIO. It has no effect on
// memory-mapped databases and is ignored when WithController is used.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithLoadRateLimit caps the read throughput while loading a database into
// memory. It is ignored when WithController is used.
func WithLoadRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.loadRate = bytesPerSec
	}
}

// WithController draws memory and load throughput from a shared Controller.
func WithController(c *Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithAccessPattern sets the kernel access hint for memory-mapped databases.
// Defaults to AccessRandom.
func WithAccessPattern(p AccessPattern) Option {
	return func(o *options) {
		o.accessPattern = p
	}
}

// WithLoadChunkSize sets the read granularity for in-memory loads.
func WithLoadChunkSize(bytes int) Option {
	return func(o *options) {
		o.chunkSize = bytes
	}
}

func (o *options) resourceController() *Controller {
	if o.controller != nil {
		return o.controller
	}
	if o.memoryLimit > 0 || o.loadRate > 0 {
		return resource.NewController(resource.Config{
			MemoryLimitBytes: o.memoryLimit,
			LoadBytesPerSec:  o.loadRate,
		})
	}
	return nil
}

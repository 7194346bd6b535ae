package alloc

import "log/slog"

// Config tunes growth and placement. The zero value is not usable; pass nil
// to New for DefaultConfig.
type Config struct {
	// Name for this configuration (for benchmarking and reports)
	Name string

	// ChunkSize is the minimum number of bytes requested from the provider
	// when no free block fits.
	ChunkSize int

	// InitialSize is the first extension performed by New.
	InitialSize int

	// PlacementThreshold splits small requests at the low end of a free block
	// and larger ones at the high end, keeping big blocks clustered.
	PlacementThreshold int

	// Logger receives growth and check diagnostics. Nil uses logger.L, or a
	// stderr debug logger when MMLAB_LOG_ALLOC is set.
	Logger *slog.Logger
}

// Predefined configurations.
var (
	// DefaultConfig matches the classic tuning: 1 KiB chunks, a 32-byte first
	// extension and a 104-byte placement threshold.
	DefaultConfig = Config{
		Name:               "Default",
		ChunkSize:          1 << 10,
		InitialSize:        1 << 5,
		PlacementThreshold: 104,
	}

	// ConfigLargeChunk grows in 4 KiB steps: fewer provider calls, larger
	// trailing free block.
	ConfigLargeChunk = Config{
		Name:               "LargeChunk",
		ChunkSize:          4 << 10,
		InitialSize:        4 << 10,
		PlacementThreshold: 104,
	}

	// ConfigLowPlacement always allocates at the low end of a split block.
	ConfigLowPlacement = Config{
		Name:               "LowPlacement",
		ChunkSize:          1 << 10,
		InitialSize:        1 << 5,
		PlacementThreshold: int(^uint32(0) >> 1),
	}
)

// AllConfigs returns every preset, for table-driven benchmarks.
func AllConfigs() []Config {
	return []Config{DefaultConfig, ConfigLargeChunk, ConfigLowPlacement}
}

// normalize fills zero fields from DefaultConfig.
func (c Config) normalize() Config {
	if c.Name == "" {
		c.Name = "Custom"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultConfig.ChunkSize
	}
	if c.InitialSize <= 0 {
		c.InitialSize = DefaultConfig.InitialSize
	}
	if c.PlacementThreshold <= 0 {
		c.PlacementThreshold = DefaultConfig.PlacementThreshold
	}
	return c
}

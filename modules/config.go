package modules

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml"
)

// MixinBand is the height-indexed [min,max] mixin band from spec.md §6.
type MixinBand struct {
	StartHeight uint64
	Min         uint64
	Max         uint64
}

// Config holds every recognized wallet-synchronizer option from spec.md §6.
// Defaults are set by DefaultConfig; values may be overridden by loading a
// TOML file with LoadConfigFile, the way an operator tunes mainLoopInterval
// or blocksPerTick without recompiling.
type Config struct {
	MainLoopInterval               time.Duration `toml:"main_loop_interval"`
	BlocksPerTick                  int           `toml:"blocks_per_tick"`
	RequestTimeout                 time.Duration `toml:"request_timeout"`
	BlockTargetTime                time.Duration `toml:"block_target_time"`
	LastKnownBlockHashesSize       int           `toml:"last_known_block_hashes_size"`
	BlockHashCheckpointsInterval   uint64        `toml:"block_hash_checkpoints_interval"`
	MaxBlockHashCheckpoints        int           `toml:"max_block_hash_checkpoints"`
	MinimumFee                     uint64        `toml:"minimum_fee"`
	IntegratedAddressLength        int           `toml:"integrated_address_length"`
	MixinLimits                    []MixinBand   `toml:"mixin_limits"`
	ScanCoinbase                   bool          `toml:"scan_coinbase"`
	UnlockTimeAsBlockHeightThreshold uint64      `toml:"unlock_time_as_block_height_threshold"`

	// QueueHighWaterMark bounds blocksToProcess (spec.md §9): fetch pauses
	// once the queue holds this many unprocessed blocks.
	QueueHighWaterMark int `toml:"queue_high_water_mark"`
}

// DefaultConfig returns the defaults named in spec.md §6.
func DefaultConfig() Config {
	return Config{
		MainLoopInterval:                 10 * time.Millisecond,
		BlocksPerTick:                     1,
		RequestTimeout:                    10 * time.Second,
		BlockTargetTime:                   30 * time.Second,
		LastKnownBlockHashesSize:          100,
		BlockHashCheckpointsInterval:      5000,
		MaxBlockHashCheckpoints:           100,
		IntegratedAddressLength:           187,
		ScanCoinbase:                      false,
		UnlockTimeAsBlockHeightThreshold:  UnlockTimeAsBlockHeightThreshold,
		QueueHighWaterMark:                1000,
	}
}

// LoadConfigFile overlays a TOML config file's values onto c.
func (c *Config) LoadConfigFile(path string) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	return tree.Unmarshal(c)
}

// Validate performs a pure sanity check over the config shape: positive
// intervals, and a mixin band list whose start heights are strictly
// ascending with min <= max in every band.
func (c Config) Validate() error {
	if c.MainLoopInterval <= 0 {
		return fmt.Errorf("main loop interval must be positive")
	}
	if c.BlocksPerTick <= 0 {
		return fmt.Errorf("blocks per tick must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.LastKnownBlockHashesSize <= 0 {
		return fmt.Errorf("last known block hashes size must be positive")
	}
	if c.BlockHashCheckpointsInterval == 0 {
		return fmt.Errorf("block hash checkpoints interval must be positive")
	}
	var lastHeight uint64
	for i, band := range c.MixinLimits {
		if band.Min > band.Max {
			return fmt.Errorf("mixin band %d: min > max", i)
		}
		if i > 0 && band.StartHeight <= lastHeight {
			return fmt.Errorf("mixin band %d: start height not strictly ascending", i)
		}
		lastHeight = band.StartHeight
	}
	return nil
}

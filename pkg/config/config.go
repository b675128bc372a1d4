// Package config holds the engine tunables and loads them from an optional
// objmodel.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up by LoadOptional.
const FileName = "objmodel.yaml"

// Tunables represents the optional objmodel.yaml configuration.
type Tunables struct {
	Array   ArrayConfig  `yaml:"array"`
	Strings StringConfig `yaml:"strings"`
	Heap    HeapConfig   `yaml:"heap"`
	Objects ObjectConfig `yaml:"objects"`
}

// ArrayConfig controls array storage growth and the dense/sparse switch.
type ArrayConfig struct {
	// InitialCapacity is the first dense allocation.
	InitialCapacity uint32 `yaml:"initial_capacity,omitempty"`
	// A put at index >= SparseMinIndex that is more than SparseRatio times
	// the current occupancy converts dense storage to sparse.
	SparseMinIndex uint32 `yaml:"sparse_min_index,omitempty"`
	SparseRatio    uint32 `yaml:"sparse_ratio,omitempty"`
}

// WithDefaults returns c with every zero field taken from Default.
func (c ArrayConfig) WithDefaults() ArrayConfig {
	d := Default().Array
	if c.InitialCapacity == 0 {
		c.InitialCapacity = d.InitialCapacity
	}
	if c.SparseMinIndex == 0 {
		c.SparseMinIndex = d.SparseMinIndex
	}
	if c.SparseRatio == 0 {
		c.SparseRatio = d.SparseRatio
	}
	return c
}

// StringConfig controls rope balancing.
type StringConfig struct {
	// A concatenation longer than FlattenMinLength is flattened eagerly when
	// its length reaches FlattenRatio times its largest leaf.
	FlattenMinLength uint32 `yaml:"flatten_min_length,omitempty"`
	FlattenRatio     uint32 `yaml:"flatten_ratio,omitempty"`
	// MaxDepth bounds rope depth regardless of lengths.
	MaxDepth uint16 `yaml:"max_depth,omitempty"`
	// MaxLength is the longest string, in UTF-16 code units.
	MaxLength uint32 `yaml:"max_length,omitempty"`
}

// HeapConfig controls the collector.
type HeapConfig struct {
	// MaxCells caps live cells; 0 means unlimited.
	MaxCells int `yaml:"max_cells,omitempty"`
	// MarkStackLimit is the depth at which the mark stack drains inline.
	MarkStackLimit int `yaml:"mark_stack_limit,omitempty"`
	// CollectEvery requests a collection after this many allocations; 0 disables it.
	CollectEvery int `yaml:"collect_every,omitempty"`
}

// ObjectConfig controls named-property storage.
type ObjectConfig struct {
	// CompactThreshold is the number of orphaned slots (left behind by
	// deletes) that triggers a rebuild of the object's shape.
	CompactThreshold uint32 `yaml:"compact_threshold,omitempty"`
}

// Default returns the built-in tunables.
func Default() *Tunables {
	return &Tunables{
		Array: ArrayConfig{
			InitialCapacity: 8,
			SparseMinIndex:  1024,
			SparseRatio:     8,
		},
		Strings: StringConfig{
			FlattenMinLength: 256,
			FlattenRatio:     64,
			MaxDepth:         512,
			MaxLength:        1<<30 - 1,
		},
		Heap: HeapConfig{
			MarkStackLimit: 4096,
		},
		Objects: ObjectConfig{
			CompactThreshold: 16,
		},
	}
}

// Load reads tunables from path. Fields missing in the file keep their defaults.
func Load(path string) (*Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOptional reads objmodel.yaml from dir if present, defaults otherwise.
func LoadOptional(dir string) (*Tunables, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Tunables, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the storage engines cannot honour.
func (t *Tunables) Validate() error {
	if t.Array.InitialCapacity == 0 {
		return fmt.Errorf("array.initial_capacity must be positive")
	}
	if t.Array.SparseRatio < 2 {
		return fmt.Errorf("array.sparse_ratio must be at least 2, got %d", t.Array.SparseRatio)
	}
	if t.Strings.FlattenRatio < 2 {
		return fmt.Errorf("strings.flatten_ratio must be at least 2, got %d", t.Strings.FlattenRatio)
	}
	if t.Strings.MaxDepth == 0 {
		return fmt.Errorf("strings.max_depth must be positive")
	}
	if t.Strings.MaxLength == 0 {
		return fmt.Errorf("strings.max_length must be positive")
	}
	if t.Heap.MaxCells < 0 || t.Heap.CollectEvery < 0 {
		return fmt.Errorf("heap limits must not be negative")
	}
	if t.Heap.MarkStackLimit <= 0 {
		return fmt.Errorf("heap.mark_stack_limit must be positive")
	}
	return nil
}

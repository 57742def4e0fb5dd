package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Config represents a slave configuration file.
// All values are optional and act as defaults for the slave flags.
// Flags always override config values.
type Config struct {
	// LogLevel uses the numeric slave levels (1 crit .. 5 debug); zero
	// leaves the default.
	LogLevel     int      `yaml:"log_level"`
	LogTimestamp bool     `yaml:"log_timestamp"`
	// MaxBlobSize bounds each blob buffer; zero selects the 16M default.
	MaxBlobSize  ByteSize `yaml:"max_blob_size"`
	// Backend holds backend specific settings, passed through untouched.
	Backend map[string]string `yaml:"backend"`
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.LogLevel < 0 {
		return fmt.Errorf("log_level must not be negative, got %d", c.LogLevel)
	}
	return nil
}

// BackendKeys returns the backend setting names in sorted order.
func (c *Config) BackendKeys() []string {
	if len(c.Backend) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Backend))
	for k := range c.Backend {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ByteSize is a byte count parsed from YAML as a plain integer or with a
// binary suffix ("64K", "16M", "1G").
type ByteSize uint64

// UnmarshalYAML parses sizes like "4096", "64K" or "16M".
func (b *ByteSize) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseByteSize parses a size string. An empty string is zero.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	shift := 0
	switch s[len(s)-1] {
	case 'k', 'K':
		shift = 10
	case 'm', 'M':
		shift = 20
	case 'g', 'G':
		shift = 30
	}
	digits := s
	if shift > 0 {
		digits = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxUint64>>shift {
		return 0, fmt.Errorf("invalid size %q: overflows 64 bits", s)
	}
	return ByteSize(n << shift), nil
}

// Package config loads the benchmark configuration from a TOML file.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml"
)

// Config holds every knob of a benchmark run.
type Config struct {
	// Scale is the number of keys loaded into each index.
	Scale int
	// ListScale caps the load of the sorted-list baseline, whose inserts are
	// linear.
	ListScale int
	// Orders are the B-tree orders to sweep.
	Orders []int
	// MemtableSizes are the Pebble memtable sizes, in bytes, to sweep.
	MemtableSizes []int
	// RangeSpan is the width of each Reporting range scan.
	RangeSpan int
	// TableRows is the number of records loaded into the table benchmark;
	// zero skips it.
	TableRows int

	DataDir    string
	ResultsCSV string
	PlotPath   string
	LogLevel   string
	Seed       int64
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Scale:         1000000,
		ListScale:     50000,
		Orders:        []int{8, 32, 128},
		MemtableSizes: []int{4 << 20, 64 << 20},
		RangeSpan:     100,
		TableRows:     100000,
		DataDir:       "bench-data",
		ResultsCSV:    "final_thesis_results.csv",
		PlotPath:      "latency.png",
		LogLevel:      "info",
		Seed:          1,
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	if err := Parse(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg and validates the result. Keys missing from
// data keep their current values; unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	tree, err := toml.Load(string(data))
	if err != nil {
		return errors.Wrap(err, "config: parse")
	}
	for _, key := range tree.Keys() {
		v := tree.Get(key)
		var err error
		switch key {
		case "scale":
			err = setInt(&cfg.Scale, key, v)
		case "list_scale":
			err = setInt(&cfg.ListScale, key, v)
		case "orders":
			err = setInts(&cfg.Orders, key, v)
		case "memtable_sizes":
			err = setInts(&cfg.MemtableSizes, key, v)
		case "range_span":
			err = setInt(&cfg.RangeSpan, key, v)
		case "table_rows":
			err = setInt(&cfg.TableRows, key, v)
		case "data_dir":
			err = setString(&cfg.DataDir, key, v)
		case "results_csv":
			err = setString(&cfg.ResultsCSV, key, v)
		case "plot_path":
			err = setString(&cfg.PlotPath, key, v)
		case "log_level":
			err = setString(&cfg.LogLevel, key, v)
		case "seed":
			var n int
			err = setInt(&n, key, v)
			cfg.Seed = int64(n)
		default:
			err = errors.Newf("config: unknown key %q", key)
		}
		if err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func setInt(dst *int, key string, v interface{}) error {
	n, ok := v.(int64)
	if !ok {
		return errors.Newf("config: %s must be an integer, got %T", key, v)
	}
	*dst = int(n)
	return nil
}

func setInts(dst *[]int, key string, v interface{}) error {
	arr, ok := v.([]interface{})
	if !ok {
		return errors.Newf("config: %s must be an array of integers, got %T", key, v)
	}
	out := make([]int, len(arr))
	for i, e := range arr {
		if err := setInt(&out[i], key, e); err != nil {
			return err
		}
	}
	*dst = out
	return nil
}

func setString(dst *string, key string, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return errors.Newf("config: %s must be a string, got %T", key, v)
	}
	*dst = s
	return nil
}

// Validate reports the first setting that cannot be run.
func (c *Config) Validate() error {
	switch {
	case c.Scale <= 0:
		return errors.Newf("config: scale must be positive, got %d", c.Scale)
	case c.ListScale < 0:
		return errors.Newf("config: list_scale must not be negative, got %d", c.ListScale)
	case c.RangeSpan <= 0:
		return errors.Newf("config: range_span must be positive, got %d", c.RangeSpan)
	case c.TableRows < 0:
		return errors.Newf("config: table_rows must not be negative, got %d", c.TableRows)
	case c.DataDir == "":
		return errors.New("config: data_dir is required")
	case c.ResultsCSV == "":
		return errors.New("config: results_csv is required")
	}
	for _, o := range c.Orders {
		if o < 1 {
			return errors.Newf("config: order %d must be at least 1", o)
		}
	}
	for _, s := range c.MemtableSizes {
		if s < 1<<10 {
			return errors.Newf("config: memtable size %d is below 1KiB", s)
		}
	}
	return nil
}

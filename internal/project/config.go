package project

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"cc16/internal/backend/x86"
	"cc16/internal/irgen"
	"cc16/internal/iropt"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config mirrors cc16.toml. Keys left out keep their defaults.
type Config struct {
	Build     BuildConfig     `toml:"build"`
	Generator GeneratorConfig `toml:"generator"`
	Optimizer OptimizerConfig `toml:"optimizer"`
	Codegen   CodegenConfig   `toml:"codegen"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type BuildConfig struct {
	OutDir string `toml:"out_dir"`
	// Jobs bounds parallel units; 0 means one per CPU.
	Jobs  int  `toml:"jobs"`
	Cache bool `toml:"cache"`
}

type GeneratorConfig struct {
	LocalAggregateThreshold int `toml:"local_aggregate_threshold"`
	LocalStringThreshold    int `toml:"local_string_threshold"`
	MaxNestingDepth         int `toml:"max_nesting_depth"`
}

type OptimizerConfig struct {
	Enabled         bool `toml:"enabled"`
	MaxIterations   int  `toml:"max_iterations"`
	MergeByteStores bool `toml:"merge_byte_stores"`
}

type CodegenConfig struct {
	BitsDirective bool `toml:"bits_directive"`
	Org           int  `toml:"org"`
}

// Default returns the configuration used when no cc16.toml exists.
func Default() Config {
	return Config{
		Build: BuildConfig{OutDir: "build", Cache: true},
		Generator: GeneratorConfig{
			LocalAggregateThreshold: irgen.DefaultLocalAggregateThreshold,
			LocalStringThreshold:    irgen.DefaultLocalStringThreshold,
			MaxNestingDepth:         irgen.DefaultMaxNestingDepth,
		},
		Optimizer: OptimizerConfig{
			Enabled:         true,
			MaxIterations:   iropt.DefaultMaxIterations,
			MergeByteStores: true,
		},
		Codegen: CodegenConfig{BitsDirective: true},
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalidConfig, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads cc16.toml found upward from startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
		}
	}
	check(c.Build.Jobs >= 0, "build.jobs must not be negative, got %d", c.Build.Jobs)
	check(c.Generator.LocalAggregateThreshold >= 0, "generator.local_aggregate_threshold must not be negative")
	check(c.Generator.LocalStringThreshold >= 0, "generator.local_string_threshold must not be negative")
	check(c.Generator.MaxNestingDepth > 0, "generator.max_nesting_depth must be positive, got %d", c.Generator.MaxNestingDepth)
	check(c.Optimizer.MaxIterations > 0, "optimizer.max_iterations must be positive, got %d", c.Optimizer.MaxIterations)
	check(c.Codegen.Org >= 0 && c.Codegen.Org <= 0xFFFF, "codegen.org must fit in 16 bits, got %#x", c.Codegen.Org)
	return errors.Join(errs...)
}

// OutDir resolves build.out_dir against the directory of the config file.
func (c *Config) OutDir() string {
	if filepath.IsAbs(c.Build.OutDir) || c.Path == "" {
		return c.Build.OutDir
	}
	return filepath.Join(filepath.Dir(c.Path), c.Build.OutDir)
}

func (c *Config) GeneratorConfig() irgen.Config {
	g := irgen.DefaultConfig()
	g.LocalAggregateThreshold = c.Generator.LocalAggregateThreshold
	g.LocalStringThreshold = c.Generator.LocalStringThreshold
	g.MaxNestingDepth = c.Generator.MaxNestingDepth
	return g
}

func (c *Config) OptimizerOptions() iropt.Options {
	o := iropt.DefaultOptions()
	o.MaxIterations = c.Optimizer.MaxIterations
	o.MergeByteStores = c.Optimizer.MergeByteStores
	return o
}

func (c *Config) BackendOptions() x86.Options {
	o := x86.DefaultOptions()
	o.BitsDirective = c.Codegen.BitsDirective
	o.Org = c.Codegen.Org
	return o
}

// Fingerprint digests every setting that changes the generated assembly.
func (c *Config) Fingerprint() Digest {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	_ = enc.Encode(struct {
		Generator GeneratorConfig `toml:"generator"`
		Optimizer OptimizerConfig `toml:"optimizer"`
		Codegen   CodegenConfig   `toml:"codegen"`
	}{c.Generator, c.Optimizer, c.Codegen})
	return HashBytes(buf.Bytes())
}

// Package config carries the compile-argument vector and feature
// flags the incremental core reads at entry (spec.md §6, "Compiler
// entry contract"; "global options (compile-arg vector)").
//
// Grounded on the teacher's internal/pipeline.Config: a flat struct of
// boolean feature flags plus a Mode enum, the same shape this package
// needs for the analyser's own options (dump flags, fallback-forcing
// strictness flags). CANGJIE_HOME is read verbatim (not renamed) per
// spec.md §6's external-interface contract.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects how much of the pipeline a run exercises.
type Mode int

const (
	// ModeIncremental attempts an incremental rebuild, falling back
	// to ModeFull on any fallback condition.
	ModeIncremental Mode = iota
	// ModeFull forces a full rebuild regardless of cache state.
	ModeFull
)

// Config is the compile-argument vector: the options that, if changed
// between two builds, are themselves diffed by the AST differ
// (spec.md §4.5, "compile-arg change") and the feature flags that
// shape the analyser's own strictness.
type Config struct {
	Mode Mode

	// DumpCacheYAML requests a --dump-cache=yaml textual debug dump
	// after the run (internal/cachestore.DumpYAML).
	DumpCacheYAML bool

	// RequireIncremental fails the run (rather than silently falling
	// back) if incremental compilation isn't possible — the CI-mode
	// analogue of the teacher's FailOnShim.
	RequireIncremental bool

	// TrackInstantiations records devirtualisation's frozen
	// instantiations for diagnostics, mirroring the teacher's
	// TrackInstantiations flag for polymorphic instantiations.
	TrackInstantiations bool

	// CompileArgs is the verbatim argument vector compared against
	// the cache's previous one.
	CompileArgs []string
}

// Default returns a Config with conservative defaults: incremental
// mode, no experimental flags.
func Default() Config {
	return Config{Mode: ModeIncremental}
}

// StdlibPrefix resolves the compiler's canonical standard-library
// prefix: CANGJIE_HOME if set, else the directory containing the
// running binary (spec.md §6, "unset implies using the binary's own
// directory").
func StdlibPrefix() string {
	if home := os.Getenv("CANGJIE_HOME"); home != "" {
		return home
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	return "."
}

// fileConfig is the on-disk YAML shape for a config file, loaded via
// --config and merged over Default().
type fileConfig struct {
	Mode                string `yaml:"mode"`
	DumpCacheYAML       bool   `yaml:"dump_cache_yaml"`
	RequireIncremental  bool   `yaml:"require_incremental"`
	TrackInstantiations bool   `yaml:"track_instantiations"`
}

// LoadFile reads a YAML config file and overlays it onto base.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return base, err
	}
	out := base
	switch strings.ToLower(fc.Mode) {
	case "full":
		out.Mode = ModeFull
	case "incremental", "":
		// keep base.Mode unless the file is explicit
		if fc.Mode != "" {
			out.Mode = ModeIncremental
		}
	}
	out.DumpCacheYAML = fc.DumpCacheYAML || base.DumpCacheYAML
	out.RequireIncremental = fc.RequireIncremental || base.RequireIncremental
	out.TrackInstantiations = fc.TrackInstantiations || base.TrackInstantiations
	return out, nil
}

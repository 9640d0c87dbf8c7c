// Package cachestore loads and stores the per-package incremental cache
// blob: declaration fingerprints, semantic-usage map, relations, the
// CHIR-opt effect map, box-site map, compiler-added-decl map, and the
// ordered file map (spec.md §3, CompilationCache; §4.3).
//
// Serialization is content-keyed: encoding the same CompilationCache
// value always produces the same bytes, so hash-equal inputs across
// two otherwise-independent builds produce byte-equal cache files.
// Loading performs a magic/verify check; a mismatch reports "illegal
// bitcode cache" and signals the caller to fall back to a full
// rebuild rather than trusting a corrupt or foreign-version blob.
package cachestore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sunholo/increc/internal/hasher"
	"github.com/sunholo/increc/internal/mangle"
)

// magic identifies a cache blob written by this schema version. A
// mismatched or absent magic means the file is either foreign or from
// an incompatible build of the tool, never a format this store knows
// how to read.
const magic = "INCREC_CACHE_V1"

// SchemaVersion is the cache blob's forward-compatible schema tag,
// stored alongside magic so future additive changes can still be told
// apart from a truly illegal blob.
const SchemaVersion = "increc.cache/v1"

// UsageSet bundles the three usage kinds tracked per declaration for
// pollution propagation (spec.md §3, SemanticInfo.usages).
type UsageSet struct {
	APIUses    []mangle.RawMangledName
	BodyUses   []mangle.RawMangledName
	BoxedTypes []mangle.RawMangledName
}

// RelationEntry records a raw mangled name's inheritance/extension
// relations (spec.md §3, SemanticInfo.relations).
type RelationEntry struct {
	Inherits           mangle.RawMangledName
	Extends            []mangle.RawMangledName
	ExtendedInterfaces []string
}

// SemanticInfo is the usage/relation map recorded by the semantic-usage
// collector during one build, consumed by the next build's pollution
// analysis (spec.md §3).
type SemanticInfo struct {
	Usages               map[mangle.RawMangledName]UsageSet
	Relations            map[mangle.RawMangledName]RelationEntry
	BuiltInTypeRelations  map[string]RelationEntry
	CompilerAddedUsages   map[mangle.RawMangledName][]mangle.RawMangledName
}

// NewSemanticInfo returns an empty, ready-to-populate SemanticInfo.
func NewSemanticInfo() *SemanticInfo {
	return &SemanticInfo{
		Usages:               make(map[mangle.RawMangledName]UsageSet),
		Relations:            make(map[mangle.RawMangledName]RelationEntry),
		BuiltInTypeRelations: make(map[string]RelationEntry),
		CompilerAddedUsages:  make(map[mangle.RawMangledName][]mangle.RawMangledName),
	}
}

// FileEntry is one file's place in the package's ordered file map,
// used for gvid assignment stability across builds.
type FileEntry struct {
	Path  string
	Index int
}

// CompilationCache is the full per-package cache blob (spec.md §3).
type CompilationCache struct {
	SpecsHash string

	// Monotonic synthetic-name counters so a new build's synthetic
	// names continue where the previous build left off instead of
	// restarting from zero and colliding with still-live names.
	LambdaCounter    int
	StringLitCounter int
	EnvClassCounter  int

	CompileArgs []string

	// Fingerprints is keyed by raw mangled name, the cache's primary
	// key across builds (spec.md I1).
	Fingerprints map[mangle.RawMangledName]hasher.DeclFingerprint

	// DependencyTable maps a raw mangled name to the raw mangled names
	// its value/function body depends on.
	DependencyTable map[mangle.RawMangledName][]mangle.RawMangledName

	// CHIROptEffects maps a source raw mangled name to the set of
	// declarations a CHIR optimisation pass recorded as affected by it.
	CHIROptEffects map[mangle.RawMangledName][]mangle.RawMangledName

	VirtualWrapperNames map[mangle.RawMangledName]mangle.RawMangledName
	VarInitNames        map[mangle.RawMangledName]mangle.RawMangledName
	ClosureConvertedOut []mangle.RawMangledName

	Semantic *SemanticInfo

	Files []FileEntry

	// BitcodeFiles lists the IR artefacts emitted by the previous
	// build, in emission order.
	BitcodeFiles []string
}

// NewCompilationCache returns an empty cache ready for a from-scratch
// build (IncreKind EMPTY_PKG at the caller).
func NewCompilationCache() *CompilationCache {
	return &CompilationCache{
		Fingerprints:        make(map[mangle.RawMangledName]hasher.DeclFingerprint),
		DependencyTable:     make(map[mangle.RawMangledName][]mangle.RawMangledName),
		CHIROptEffects:      make(map[mangle.RawMangledName][]mangle.RawMangledName),
		VirtualWrapperNames: make(map[mangle.RawMangledName]mangle.RawMangledName),
		VarInitNames:        make(map[mangle.RawMangledName]mangle.RawMangledName),
		Semantic:            NewSemanticInfo(),
	}
}

// envelope is the on-disk wire shape: magic + schema version guarding
// a gob-encoded CompilationCache payload.
type envelope struct {
	Magic   string
	Schema  string
	Payload []byte
}

// ErrIllegalCache is returned by Load when the magic/verify check
// fails: the file is present but not a cache blob this store wrote,
// or is from an incompatible schema version.
var ErrIllegalCache = fmt.Errorf("illegal bitcode cache")

// Load reads and decodes a cache blob from path. A missing file is
// reported distinctly from a corrupt one so the caller can tell
// "no previous build" (EMPTY_PKG) from "previous build's cache is
// unreadable" (ROLLBACK) apart, per spec.md §6's exit-code table.
func Load(path string) (*CompilationCache, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrIllegalCache, err)
	}

	var env envelope
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalCache, err)
	}
	if env.Magic != magic || env.Schema != SchemaVersion {
		return nil, ErrIllegalCache
	}

	var cc CompilationCache
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(&cc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalCache, err)
	}
	return &cc, nil
}

// Store serializes cc to path. Writes go to a temporary sibling file
// first and are renamed into place, so a process interrupted mid-write
// never leaves a half-written cache at the real path (spec.md §6,
// "validity relies on atomic file replace").
func Store(path string, cc *CompilationCache) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(cc); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	env := envelope{Magic: magic, Schema: SchemaVersion, Payload: payload.Bytes()}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encoding cache envelope: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp cache file into place: %w", err)
	}
	return nil
}

// dumpView is the textual debug shape for --dump-cache=yaml: a
// deterministic, sorted-key projection of CompilationCache that's
// stable to diff across builds.
type dumpView struct {
	SpecsHash    string   `yaml:"specs_hash"`
	CompileArgs  []string `yaml:"compile_args"`
	Decls        []string `yaml:"decls"`
	BitcodeFiles []string `yaml:"bitcode_files"`
}

// DumpYAML renders cc as a deterministic YAML document for the
// `--dump-cache=yaml` debug flag (SPEC_FULL.md §4's `internal/config`
// wiring of gopkg.in/yaml.v3).
func DumpYAML(cc *CompilationCache) ([]byte, error) {
	names := make([]string, 0, len(cc.Fingerprints))
	for n := range cc.Fingerprints {
		names = append(names, string(n))
	}
	sort.Strings(names)

	view := dumpView{
		SpecsHash:    cc.SpecsHash,
		CompileArgs:  cc.CompileArgs,
		Decls:        names,
		BitcodeFiles: append([]string(nil), cc.BitcodeFiles...),
	}
	return yaml.Marshal(view)
}

// RawMangled2DeclMap resolves a raw mangled name to its cached
// fingerprint, following a rename chain first so a renamed-but-
// identity-preserved declaration still resolves to its live entry
// (SPEC_FULL.md §6.10).
func RawMangled2DeclMap(cc *CompilationCache, rm *mangle.RenameMap, name mangle.RawMangledName) (hasher.DeclFingerprint, bool) {
	resolved := name
	if rm != nil {
		resolved = rm.Resolve(name)
	}
	fp, ok := cc.Fingerprints[resolved]
	return fp, ok
}

// DanglingDeletes filters a delete set down to the raw mangled names
// that the previous build cached and that are no longer present in the
// current fingerprint map: names still present in next, and names that
// were never cached, are not reported as deletions (spec.md I1/I5).
func DanglingDeletes(cc *CompilationCache, next map[mangle.RawMangledName]hasher.DeclFingerprint, deleteSet []mangle.RawMangledName) []mangle.RawMangledName {
	out := make([]mangle.RawMangledName, 0, len(deleteSet))
	for _, n := range deleteSet {
		if _, stillPresent := next[n]; stillPresent {
			continue
		}
		if _, wasCached := cc.Fingerprints[n]; !wasCached {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

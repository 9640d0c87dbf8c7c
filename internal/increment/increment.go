// Package increment is the top-level orchestrator matching the
// external entry contract of spec.md §6: given the current elaborated
// declaration tree and the previous build's cache, it decides the
// recompile set, the delete set, and produces the updated cache — the
// one call that wires hasher + mangler + cachestore + graph + astdiff
// + pollution together.
//
// Grounded on the teacher's internal/pipeline.Run: a single entry
// function taking a Config and a Source and returning a Result,
// dispatching internally to whichever sub-pipeline the mode calls
// for. IncreKind/Run here play the same role for this spec's mode
// (incremental vs. full) dispatch.
package increment

import (
	"github.com/sunholo/increc/internal/astdiff"
	"github.com/sunholo/increc/internal/cachestore"
	"github.com/sunholo/increc/internal/config"
	"github.com/sunholo/increc/internal/graph"
	"github.com/sunholo/increc/internal/ilog"
	"github.com/sunholo/increc/internal/mangle"
	"github.com/sunholo/increc/internal/pollution"
)

// IncreKind classifies the outcome of one analysis run (spec.md §3).
type IncreKind int

const (
	KindNoChange IncreKind = iota
	KindIncr
	KindRollback
	KindEmptyPkg
	KindInvalid
)

func (k IncreKind) String() string {
	switch k {
	case KindNoChange:
		return "NO_CHANGE"
	case KindIncr:
		return "INCR"
	case KindRollback:
		return "ROLLBACK"
	case KindEmptyPkg:
		return "EMPTY_PKG"
	default:
		return "INVALID"
	}
}

// Result carries IncreResult's fields from spec.md §6: kind,
// declsToRecompile, deleted, deletedCgMangles, cacheInfo and
// reBoxedTypes. It has no mangle2decl map.
type Result struct {
	Kind             IncreKind
	DeclsToRecompile []mangle.RawMangledName
	Deleted          []mangle.RawMangledName
	DeletedCgMangles []string
	CacheInfo        *cachestore.CompilationCache
	ReBoxedTypes     []mangle.RawMangledName
	FallbackReason   string
}

// Run is the analyser's entry point (spec.md §6's "Compiler entry
// contract"): given the previous cache (nil for a from-scratch
// build), the relation graph built from it plus fresh source edges,
// and the current tree's raw diff input, it returns the Result.
func Run(cfg config.Config, cached *cachestore.CompilationCache, g *graph.Graph, current []astdiff.CurrentDecl, importHash string) *Result {
	logger := ilog.Global()

	if cfg.Mode == config.ModeFull {
		logger.Info("increment", "full rebuild requested by config")
		return fullRebuild(current)
	}

	if cached == nil {
		logger.Info("increment", "no previous cache: empty-package build")
		return &Result{
			Kind:             KindEmptyPkg,
			DeclsToRecompile: allNames(current),
			CacheInfo:        cachestore.NewCompilationCache(),
		}
	}

	diff := astdiff.Diff(cached, current, importHash, cfg.CompileArgs)
	if diff.ForcesFallback() {
		logger.Warn("increment", "diff forces fallback: alias, import-hash or compile-arg change")
		return rollback(current, "diff forces fallback (alias/import-hash/compile-arg change)")
	}

	res := pollution.Analyse(cached, g, diff)
	if res.Fallback {
		logger.Warn("increment", res.FallbackReason)
		return rollback(current, res.FallbackReason)
	}

	if len(res.Recompile) == 0 && len(res.DeleteRawMangled) == 0 {
		logger.Info("increment", "no change detected")
		return &Result{Kind: KindNoChange, CacheInfo: cached}
	}

	names := make([]mangle.RawMangledName, 0, len(res.Recompile))
	for n := range res.Recompile {
		names = append(names, n)
	}
	logger.Info("increment", "incremental recompile set computed")

	return &Result{
		Kind:             KindIncr,
		DeclsToRecompile: names,
		Deleted:          res.DeleteRawMangled,
		DeletedCgMangles: res.DeleteCgMangled,
		CacheInfo:        cached,
	}
}

func fullRebuild(current []astdiff.CurrentDecl) *Result {
	return &Result{
		Kind:             KindIncr,
		DeclsToRecompile: allNames(current),
		CacheInfo:        cachestore.NewCompilationCache(),
	}
}

func rollback(current []astdiff.CurrentDecl, reason string) *Result {
	return &Result{
		Kind:             KindRollback,
		DeclsToRecompile: allNames(current),
		CacheInfo:        cachestore.NewCompilationCache(),
		FallbackReason:   reason,
	}
}

func allNames(current []astdiff.CurrentDecl) []mangle.RawMangledName {
	out := make([]mangle.RawMangledName, 0, len(current))
	for _, c := range current {
		out = append(out, c.RawName)
	}
	return out
}

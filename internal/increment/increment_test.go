package increment

import (
	"testing"

	"github.com/sunholo/increc/internal/ast"
	"github.com/sunholo/increc/internal/astdiff"
	"github.com/sunholo/increc/internal/cachestore"
	"github.com/sunholo/increc/internal/config"
	"github.com/sunholo/increc/internal/graph"
	"github.com/sunholo/increc/internal/hasher"
)

func TestRunEmptyPackageWithNoCache(t *testing.T) {
	fd := &ast.FuncDecl{Name: "add", ReturnType: &ast.SimpleType{Name: "Int"}}
	current := []astdiff.CurrentDecl{{RawName: "add", Decl: fd}}

	res := Run(config.Default(), nil, graph.New(), current, "")
	if res.Kind != KindEmptyPkg {
		t.Errorf("expected KindEmptyPkg, got %v", res.Kind)
	}
	if len(res.DeclsToRecompile) != 1 {
		t.Errorf("expected the single decl to need recompiling, got %v", res.DeclsToRecompile)
	}
}

func TestRunNoChangeWhenNothingDiffers(t *testing.T) {
	fd := &ast.FuncDecl{Name: "add", ReturnType: &ast.SimpleType{Name: "Int"}}
	cc := cachestore.NewCompilationCache()

	cc.Fingerprints["add"] = hasher.HashDecl(fd, 0, "")

	res := Run(config.Default(), cc, graph.New(), []astdiff.CurrentDecl{{RawName: "add", Decl: fd}}, "")
	if res.Kind != KindNoChange {
		t.Errorf("expected KindNoChange, got %v (recompile=%v)", res.Kind, res.DeclsToRecompile)
	}
}

func TestRunRollbackOnImportHashChange(t *testing.T) {
	cc := cachestore.NewCompilationCache()
	cc.SpecsHash = "old"
	res := Run(config.Default(), cc, graph.New(), nil, "new")
	if res.Kind != KindRollback {
		t.Errorf("expected KindRollback, got %v", res.Kind)
	}
}

func TestRunFullModeForcesFullRebuild(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeFull
	fd := &ast.FuncDecl{Name: "add"}
	res := Run(cfg, nil, graph.New(), []astdiff.CurrentDecl{{RawName: "add", Decl: fd}}, "")
	if res.Kind != KindIncr {
		t.Errorf("expected full rebuild reported as KindIncr (all decls), got %v", res.Kind)
	}
}

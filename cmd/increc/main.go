// Command increc drives the incremental rebuild core from the command
// line: load the previous cache, diff the current tree, run the
// pollution analyser, and report the recompile/delete sets (spec.md
// §6, "Compiler entry contract"; exit-code table).
//
// Grounded on the teacher's cmd/ailang/main.go: manual flag.Bool/flag.String
// parsing (no cobra, despite cobra riding along as liner's transitive
// dependency — the teacher itself never used cobra directly either),
// the same green/red/cyan/bold color.New(...).SprintFunc()
// palette, and -watch's interactive loop built on peterh/liner the way
// internal/repl.REPL.Start drives its prompt loop.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/sunholo/increc/internal/cachestore"
	"github.com/sunholo/increc/internal/config"
	"github.com/sunholo/increc/internal/graph"
	"github.com/sunholo/increc/internal/ilog"
	"github.com/sunholo/increc/internal/increment"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// Exit codes (spec.md §6): 0 success (incremental or full); non-zero
// signals unrecoverable fallback failure.
const (
	exitOK                = 0
	exitCacheUnreadable    = 1
	exitRequiredIncrFailed = 2
)

func main() {
	var (
		cachePath    = flag.String("cache", "", "path to the previous build's .cachedast cache file")
		dumpCacheYAML = flag.String("dump-cache", "", "dump the cache blob as YAML after the run (--dump-cache=yaml)")
		configPath   = flag.String("config", "", "path to an increc.yaml config file")
		fullFlag     = flag.Bool("full", false, "force a full rebuild, ignoring any cache")
		requireIncr  = flag.Bool("require-incremental", false, "fail instead of silently falling back to a full rebuild")
		watch        = flag.Bool("watch", false, "interactive watch mode: re-run on each Enter press")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: reading config: %v\n", red("Error"), err)
			os.Exit(exitCacheUnreadable)
		}
		cfg = loaded
	}
	if *fullFlag {
		cfg.Mode = config.ModeFull
	}
	cfg.RequireIncremental = cfg.RequireIncremental || *requireIncr
	cfg.DumpCacheYAML = cfg.DumpCacheYAML || *dumpCacheYAML == "yaml"

	logger := ilog.Global()
	logger.SetColorize(true)

	if *watch {
		runWatch(cfg, *cachePath)
		return
	}

	os.Exit(runOnce(cfg, *cachePath))
}

func runOnce(cfg config.Config, cachePath string) int {
	logger := ilog.Global()
	logger.Banner("INCREMENTAL REBUILD", 60)

	cached, err := loadCache(cachePath)
	if err != nil && err != errNoCachePath {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		return exitCacheUnreadable
	}

	res := increment.Run(cfg, cached, graph.New(), nil, "")

	if res.Kind == increment.KindRollback && cfg.RequireIncremental {
		fmt.Fprintf(os.Stderr, "%s: incremental build required but fell back: %s\n", red("Error"), res.FallbackReason)
		return exitRequiredIncrFailed
	}

	fmt.Printf("%s %s\n", bold("kind:"), kindColor(res.Kind))
	fmt.Printf("%s %d\n", bold("recompile:"), len(res.DeclsToRecompile))
	fmt.Printf("%s %d\n", bold("delete:"), len(res.Deleted))

	if cfg.DumpCacheYAML && res.CacheInfo != nil {
		out, err := cachestore.DumpYAML(res.CacheInfo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: dumping cache: %v\n", red("Error"), err)
			return exitCacheUnreadable
		}
		fmt.Println(string(out))
	}

	return exitOK
}

func kindColor(k increment.IncreKind) string {
	if k == increment.KindRollback {
		return red(k.String())
	}
	return green(k.String())
}

var errNoCachePath = fmt.Errorf("no cache path given")

func loadCache(path string) (*cachestore.CompilationCache, error) {
	if path == "" {
		return nil, errNoCachePath
	}
	cc, err := cachestore.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return cc, nil
}

// runWatch re-runs the analysis every time the user presses Enter,
// the same interactive-prompt shape as the teacher's REPL loop
// (internal/repl.REPL.Start), but driving the analyser instead of an
// evaluator.
func runWatch(cfg config.Config, cachePath string) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	fmt.Printf("%s %s\n", bold("increc"), cyan("watch mode"))
	fmt.Println("Press Enter to re-run, or type 'quit' to exit.")

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			return
		}
		if input == "quit" || input == "exit" {
			return
		}
		runOnce(cfg, cachePath)
	}
}

// Package pkg provides the libraries behind leakpath, which explains why
// leaked objects in a heap snapshot are still reachable.
//
// # Overview
//
// Given a heap snapshot and a set of suspected leaking instances, leakpath
// finds the shortest reference chain from a GC root to each of them. Chains
// through known-benign holders (weak references, finalizer queues, threads
// that are expected to die) are reported only when nothing else retains the
// instance, and they are flagged so they can be ranked lower.
//
// # Architecture
//
//	heap snapshot (JSON)
//	         ↓
//	    [heap/heapio] (read the snapshot into a [heap.Graph])
//	         ↓
//	    [pathfinder] (two-phase breadth-first search, [exclusion] rules)
//	         ↓
//	    [chain] (reference chains, anonymous class naming via [classpath])
//	         ↓
//	    text / JSON / DOT / SVG / PNG ([analysis], [render/nodelink])
//
// [analysis] ties the stages together, caches reports in [cache] and emits
// [observability] hooks.
//
// # Quick Start
//
//	s, _ := heapio.ImportJSON("heap.json")
//	finder := pathfinder.New(exclusion.Defaults())
//	results, _ := finder.FindShortestPaths(s, []heap.ObjID{0x2a})
//
//	b := chain.NewBuilder(s)
//	for _, r := range results {
//	    c, _ := b.Build(r)
//	    fmt.Print(c)
//	}
//
// Or run the whole analysis, with caching:
//
//	r := analysis.NewRunner(nil, nil, logger)
//	report, _ := r.Execute(ctx, analysis.Options{
//	    SnapshotPath: "heap.json",
//	    Classes:      []string{"com.example.MainActivity"},
//	})
//	analysis.WriteText(os.Stdout, report)
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/pathfinder   # Specific package
//	go test -run Example ./... # Examples only
//
// [heap/heapio]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/heap/heapio
// [heap.Graph]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/heap#Graph
// [pathfinder]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/pathfinder
// [exclusion]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/exclusion
// [chain]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/chain
// [classpath]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/classpath
// [analysis]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/analysis
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/leakpath/pkg/observability
package pkg

// Package analysis runs leak analyses end to end.
//
// A [Runner] loads a heap snapshot, resolves the suspected leaking
// instances, searches the shortest paths to GC roots and turns them into
// reference chains. Reports are cached by snapshot content, so re-running
// an analysis on the same snapshot with the same options is free.
//
// # Usage
//
//	runner := analysis.NewRunner(cache, nil, logger)
//	report, err := runner.Execute(ctx, analysis.Options{
//	    SnapshotPath: "heap.json",
//	    Classes:      []string{"com.example.MainActivity"},
//	})
//	if err != nil {
//	    return err
//	}
//	analysis.WriteText(os.Stdout, report)
//
// # Stages
//
//  1. Load: hash and parse the snapshot, build the exclusion ruleset
//  2. Search: one [pathfinder.Finder] pass over all targets
//  3. Chains: build one [chain.Chain] per found target, in parallel
//
// The search cannot be interrupted from inside. When ctx expires the runner
// returns immediately and discards the search result; there are no partial
// reports.
package analysis

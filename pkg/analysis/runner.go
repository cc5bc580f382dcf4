package analysis

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/leakpath/pkg/cache"
	"github.com/matzehuels/leakpath/pkg/chain"
	"github.com/matzehuels/leakpath/pkg/classpath"
	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/exclusion"
	"github.com/matzehuels/leakpath/pkg/heap"
	"github.com/matzehuels/leakpath/pkg/heap/heapio"
	"github.com/matzehuels/leakpath/pkg/observability"
	"github.com/matzehuels/leakpath/pkg/pathfinder"
)

const reportKeyType = "report"

// Runner executes analyses with caching.
//
// Multiple goroutines can use the same Runner. Concurrent calls that map to
// the same cache key share one analysis; each caller gets its own copy of
// the report, and the first caller's context governs the shared run.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	flights singleflight.Group
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs the analysis described by opts.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	rules, err := LoadRules(opts.ExclusionsFile, opts.NoDefaults)
	if err != nil {
		return nil, err
	}
	var rulesTOML bytes.Buffer
	if err := rules.WriteTOML(&rulesTOML); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}

	snapshotHash, err := cache.HashFile(opts.SnapshotPath)
	if err != nil {
		return nil, snapshotError(opts.SnapshotPath, err)
	}
	key := r.Keyer.ReportKey(snapshotHash, cache.ReportKeyOpts{
		Targets:    opts.Targets,
		Classes:    opts.Classes,
		RulesHash:  cache.Hash(rulesTOML.Bytes()),
		Classpath:  opts.Classpath,
		FieldDumps: opts.FieldDumps,
	})

	flight := key
	if opts.Refresh {
		flight = "refresh:" + key
	}
	val, err, shared := r.flights.Do(flight, func() (any, error) {
		return r.execute(ctx, opts, rules, key, snapshotHash)
	})
	if err != nil {
		return nil, err
	}
	report, ok := val.(*Report)
	if !ok {
		return nil, errors.Internal("unexpected analysis result type %T", val)
	}
	if shared {
		r.Logger.Debug("joined running analysis", "id", report.ID)
	}
	return report.clone(), nil
}

// execute serves one analysis from the cache or runs it and stores the
// result.
func (r *Runner) execute(ctx context.Context, opts Options, rules *exclusion.Ruleset, key, snapshotHash string) (*Report, error) {
	if !opts.Refresh {
		if report := r.cached(ctx, key); report != nil {
			r.Logger.Info("loaded report from cache", "id", report.ID, "leaks", len(report.Leaks))
			return report, nil
		}
	}

	report, err := r.run(ctx, opts, rules)
	if err != nil {
		return nil, err
	}
	report.SnapshotHash = snapshotHash

	if data, err := MarshalReport(report); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLReport); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, reportKeyType, len(data))
		}
	}
	return report, nil
}

func (r *Runner) cached(ctx context.Context, key string) *Report {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, reportKeyType)
		return nil
	}
	report, err := UnmarshalReport(data)
	if err != nil {
		// Stale format; recompute and overwrite.
		r.Logger.Debug("discarding cached report", "err", err)
		observability.Cache().OnCacheMiss(ctx, reportKeyType)
		return nil
	}
	observability.Cache().OnCacheHit(ctx, reportKeyType)
	report.Cached = true
	return report
}

func (r *Runner) run(ctx context.Context, opts Options, rules *exclusion.Ruleset) (*Report, error) {
	hooks := observability.Analysis()
	report := &Report{
		ID:        uuid.NewString(),
		Snapshot:  opts.SnapshotPath,
		CreatedAt: time.Now().UTC(),
		Rules:     rules.Len(),
	}

	// Stage 1: Load
	hooks.OnLoadStart(ctx, opts.SnapshotPath)
	start := time.Now()
	snap, err := heapio.ImportJSON(opts.SnapshotPath)
	report.Stats.LoadTime = time.Since(start)
	if err != nil {
		hooks.OnLoadComplete(ctx, opts.SnapshotPath, 0, report.Stats.LoadTime, err)
		return nil, snapshotError(opts.SnapshotPath, err)
	}
	report.Stats.Instances = snap.NumInstances()
	hooks.OnLoadComplete(ctx, opts.SnapshotPath, report.Stats.Instances, report.Stats.LoadTime, nil)
	r.Logger.Info("loaded snapshot",
		"instances", report.Stats.Instances,
		"roots", len(snap.Roots()),
		"duration", report.Stats.LoadTime)

	targets, err := r.resolveTargets(snap, opts)
	if err != nil {
		return nil, err
	}
	report.Stats.Targets = len(targets)

	// Stage 2: Search
	hooks.OnSearchStart(ctx, len(targets))
	start = time.Now()
	results, stats, err := search(ctx, snap, rules, targets)
	report.Stats.SearchTime = time.Since(start)
	ev := observability.SearchEvent{Targets: len(targets), Visited: stats.Visited, Duration: report.Stats.SearchTime}
	if err != nil {
		hooks.OnSearchComplete(ctx, ev, err)
		return nil, err
	}
	for _, res := range results {
		ev.Found++
		if res.UsedExclusion {
			ev.Excluded++
		}
	}
	hooks.OnSearchComplete(ctx, ev, nil)
	report.Stats.Found = ev.Found
	report.Stats.Excluded = ev.Excluded
	report.Stats.Roots = stats.Roots
	report.Stats.Visited = stats.Visited
	report.Stats.Duplicates = stats.Duplicates
	r.Logger.Info("searched paths",
		"targets", len(targets),
		"found", ev.Found,
		"visited", stats.Visited,
		"duration", report.Stats.SearchTime)

	// Stage 3: Chains
	start = time.Now()
	report.Leaks, err = r.buildChains(ctx, snap, opts, targets, results)
	report.Stats.ChainTime = time.Since(start)
	hooks.OnChainsComplete(ctx, len(results), report.Stats.ChainTime, err)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("built chains", "chains", len(results), "duration", report.Stats.ChainTime)

	return report, nil
}

// resolveTargets returns the sorted, deduplicated target IDs. Explicit IDs
// must name objects or arrays in the snapshot; classes without instances
// only produce a warning.
func (r *Runner) resolveTargets(snap *heap.Snapshot, opts Options) ([]heap.ObjID, error) {
	seen := make(map[heap.ObjID]bool)
	var targets []heap.ObjID
	add := func(id heap.ObjID) {
		if !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}

	for _, raw := range opts.Targets {
		id := heap.ObjID(raw)
		switch snap.Instance(id).(type) {
		case nil:
			return nil, errors.New(errors.ErrCodeTargetNotFound, "no instance with ID %d", id)
		case *heap.Object, *heap.Array:
			add(id)
		default:
			return nil, errors.New(errors.ErrCodeInvalidTarget, "instance %d is %s, not an object or array", id, heap.Describe(snap, id))
		}
	}
	for _, name := range opts.Classes {
		ids := snap.InstancesOf(name)
		if len(ids) == 0 {
			r.Logger.Warn("class has no instances", "class", name)
		}
		for _, id := range ids {
			add(id)
		}
	}

	if len(targets) == 0 {
		return nil, errors.New(errors.ErrCodeTargetNotFound, "no instances of %v", opts.Classes)
	}
	return sortedIDs(targets), nil
}

type searchOutcome struct {
	results map[heap.ObjID]*pathfinder.Result
	stats   pathfinder.Stats
	err     error
}

// search runs the finder on its own goroutine so ctx can bound it. On
// cancellation the finder keeps running until it returns and its result is
// dropped.
func search(ctx context.Context, g heap.Graph, rules *exclusion.Ruleset, targets []heap.ObjID) (map[heap.ObjID]*pathfinder.Result, pathfinder.Stats, error) {
	done := make(chan searchOutcome, 1)
	go func() {
		f := pathfinder.New(rules)
		results, err := f.FindShortestPaths(g, targets)
		done <- searchOutcome{results: results, stats: f.Stats(), err: err}
	}()

	select {
	case out := <-done:
		return out.results, out.stats, out.err
	case <-ctx.Done():
		err := ctx.Err()
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, pathfinder.Stats{}, errors.Wrap(errors.ErrCodeTimeout, err, "path search")
		}
		return nil, pathfinder.Stats{}, err
	}
}

func (r *Runner) buildChains(ctx context.Context, snap *heap.Snapshot, opts Options, targets []heap.ObjID, results map[heap.ObjID]*pathfinder.Result) ([]Leak, error) {
	chainOpts := []chain.Option{chain.WithLogger(r.Logger)}
	if len(opts.Classpath) > 0 {
		cp, err := classpath.New(opts.Classpath...)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open classpath")
		}
		defer cp.Close()
		chainOpts = append(chainOpts, chain.WithInterfaceResolver(cp))
	}
	builder := chain.NewBuilder(snap, chainOpts...)

	leaks := make([]Leak, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, id := range targets {
		leaks[i] = Leak{Target: id, ClassName: heap.ClassName(snap, snap.Instance(id))}
		res, ok := results[id]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := builder.Build(res)
			if err != nil {
				return fmt.Errorf("chain for %d: %w", id, err)
			}
			if !opts.FieldDumps {
				for j := range c.Elements {
					c.Elements[j].Fields = nil
				}
			}
			leaks[i].Chain = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return leaks, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// LoadRules builds the exclusion ruleset: the defaults unless noDefaults,
// with the rules of path (if set) on top.
func LoadRules(path string, noDefaults bool) (*exclusion.Ruleset, error) {
	b := exclusion.DefaultBuilder()
	if noDefaults {
		b = exclusion.NewBuilder()
	}
	if path != "" {
		rs, err := exclusion.LoadFile(path)
		if err != nil {
			return nil, err
		}
		b.Merge(rs)
	}
	return b.Build(), nil
}

func snapshotError(path string, err error) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "snapshot %s", path)
	}
	return errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "snapshot %s", path)
}

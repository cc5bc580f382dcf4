package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/leakpath/pkg/analysis"
	"github.com/matzehuels/leakpath/pkg/classpath"
	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/observability"
)

// analyzeFlags are the flags shared by analyze and browse.
type analyzeFlags struct {
	targets     []string
	classes     []string
	exclusions  string
	noDefaults  bool
	classpath   string
	detailed    bool
	refresh     bool
	timeout     time.Duration
	workers     int
	metricsFile string
	cache       cacheFlags
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.targets, "target", "t", nil, "instance IDs to explain, decimal or 0x-prefixed hex (comma-separated)")
	cmd.Flags().StringSliceVarP(&f.classes, "class", "c", nil, "explain every instance of these classes (comma-separated)")
	cmd.Flags().StringVarP(&f.exclusions, "exclusions", "e", "", "TOML exclusion rules applied on top of the defaults")
	cmd.Flags().BoolVar(&f.noDefaults, "no-defaults", false, "disable the built-in exclusion rules")
	cmd.Flags().StringVar(&f.classpath, "classpath", "", "class directories and jars used to name anonymous classes")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "include the field values of every holder")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached reports")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort the analysis after this long (0 for no limit)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "chain building concurrency (default GOMAXPROCS)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	cmd.Flags().BoolVar(&f.cache.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&f.cache.redis, "redis", "", "cache reports in redis at this address")
}

// options merges the flags with the config file defaults.
func (f *analyzeFlags) options(cfg *Config, snapshot string) (analysis.Options, error) {
	opts := analysis.Options{
		SnapshotPath:   snapshot,
		Classes:        f.classes,
		ExclusionsFile: f.exclusions,
		NoDefaults:     f.noDefaults || cfg.NoDefaults,
		FieldDumps:     f.detailed,
		Refresh:        f.refresh,
		Workers:        f.workers,
	}
	if opts.ExclusionsFile == "" {
		opts.ExclusionsFile = cfg.Exclusions
	}
	opts.Classpath = classpath.Split(f.classpath)
	if len(opts.Classpath) == 0 {
		opts.Classpath = cfg.Classpath
	}
	for _, t := range f.targets {
		id, err := parseID(t)
		if err != nil {
			return analysis.Options{}, err
		}
		opts.Targets = append(opts.Targets, id)
	}
	return opts, nil
}

// parseID accepts decimal and 0x-prefixed hexadecimal IDs.
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidTarget, "invalid instance ID %q", s)
	}
	return id, nil
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		flags      analyzeFlags
		formatsStr string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "analyze [snapshot.json]",
		Short: "Find the reference chains keeping instances alive",
		Long: `Find the shortest reference chain from a GC root to each target.

Targets are given by ID (--target) or by class (--class, every instance).
References matching an exclusion rule are only followed when no other path
exists; such chains are flagged as excluded.

Reports are cached by snapshot content. Text, JSON and DOT output go to
stdout unless --output is set; SVG and PNG are always written to files.`,
		Example: `  leakpath analyze heap.json --class com.example.MainActivity
  leakpath analyze heap.json -t 0x7f01a2 -f text,svg -o leaks
  leakpath analyze heap.json -c com.example.Cache -e rules.toml --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts, err := flags.options(c.Config, args[0])
			if err != nil {
				return err
			}
			report, err := c.runAnalysis(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			if err := c.writeOutputs(cmd.Context(), report, formats, args[0], output, flags.detailed); err != nil {
				return err
			}
			if report.Stats.Found > 0 && output != "" {
				printNextStep("Explore interactively", fmt.Sprintf("%s browse %s %s", appName, args[0], targetArgs(opts)))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): text (default), json, dot, svg, png (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")

	return cmd
}

// runAnalysis executes one analysis with the configured cache, metrics and
// timeout.
func (c *CLI) runAnalysis(ctx context.Context, opts analysis.Options, flags analyzeFlags) (*analysis.Report, error) {
	metricsFile := flags.metricsFile
	if metricsFile == "" {
		metricsFile = c.Config.MetricsFile
	}
	if metricsFile != "" {
		prom := observability.NewPrometheus()
		observability.SetAnalysisHooks(prom)
		observability.SetCacheHooks(prom)
		defer func() {
			if err := prom.WriteTextfile(metricsFile); err != nil {
				c.Logger.Warn("write metrics", "path", metricsFile, "err", err)
			}
			observability.Reset()
		}()
	}

	runner, err := c.newRunner(ctx, flags.cache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Analyzing "+opts.SnapshotPath+"...")
	if c.Logger.GetLevel() > LogDebug {
		spinner.Start()
	}

	report, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Analysis failed")
		return nil, err
	}
	spinner.Stop()
	prog.done("Analyzed snapshot", "targets", report.Stats.Targets, "cached", report.Cached)
	printSummary(report)
	return report, nil
}

// targetArgs renders the target selection of opts as command-line flags.
func targetArgs(opts analysis.Options) string {
	var parts []string
	for _, id := range opts.Targets {
		parts = append(parts, "-t "+strconv.FormatUint(id, 10))
	}
	for _, c := range opts.Classes {
		parts = append(parts, "-c "+c)
	}
	return strings.Join(parts, " ")
}

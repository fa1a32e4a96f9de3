// ABOUTME: Benchmark for the four output loop variants
// ABOUTME: Drives a null transport from a simulated player and prints tick statistics
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/motionsync/motionsync-go/pkg/axis"
	"github.com/motionsync/motionsync-go/pkg/clock"
	"github.com/motionsync/motionsync-go/pkg/media"
	"github.com/motionsync/motionsync-go/pkg/output"
	"github.com/motionsync/motionsync-go/pkg/output/transport"
	"github.com/motionsync/motionsync-go/pkg/provider"
	"github.com/motionsync/motionsync-go/pkg/timeline"
)

type benchOptions struct {
	duration time.Duration
	interval time.Duration
	spacing  time.Duration
	precise  bool
	verbose  bool
}

type result struct {
	cfg   output.Config
	stats output.Stats
	lines uint64
	err   error
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:           "loop-bench",
		Short:         "Compare fixed-rate and polled output loops on threads and tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running each loop for %s (interval %s, keyframe spacing %s)\n",
				opts.duration, opts.interval, opts.spacing)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var results []result
			for _, cfg := range variants(opts) {
				fmt.Fprintf(out, "  %s/%s...\n", cfg.Discipline, cfg.Execution)
				results = append(results, runVariant(ctx, cfg, opts, logger))
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}

			fmt.Fprintln(out, renderResults(results))
			return nil
		},
	}

	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 3*time.Second, "How long each variant runs")
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", output.DefaultInterval, "Fixed-rate tick interval")
	cmd.Flags().DurationVar(&opts.spacing, "spacing", 150*time.Millisecond, "Keyframe spacing of the generated script")
	cmd.Flags().BoolVar(&opts.precise, "precise", true, "Spin the end of each thread sleep")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log loop activity to stderr")
	return cmd
}

func variants(opts benchOptions) []output.Config {
	var configs []output.Config
	for _, d := range []output.Discipline{output.FixedRate, output.Polled} {
		for _, e := range []output.Execution{output.Thread, output.Task} {
			cfg := output.DefaultConfig()
			cfg.Discipline = d
			cfg.Execution = e
			cfg.Interval = opts.interval
			cfg.PreciseSleep = opts.precise
			configs = append(configs, cfg.Normalize())
		}
	}
	return configs
}

// sineScript builds a stroke pattern of length seconds with a keyframe every spacing
func sineScript(length float64, spacing time.Duration, phase float64) *timeline.Timeline {
	step := spacing.Seconds()
	if step <= 0 {
		step = 0.1
	}
	tl := timeline.New()
	for pos := 0.0; pos <= length; pos += step {
		tl.Insert(pos, 0.5+0.5*math.Sin(2*math.Pi*pos+phase))
	}
	return tl
}

func runVariant(parent context.Context, cfg output.Config, opts benchOptions, logger *slog.Logger) result {
	ctx, cancel := context.WithTimeout(parent, opts.duration+time.Second)
	defer cancel()

	length := opts.duration.Seconds() + 2
	axes := axis.NewTable(axis.L0, axis.R0)
	clk := clock.New(logger)
	p := provider.New(axes, clk, logger)
	p.SetAlgorithm(axis.L0, timeline.Pchip)
	p.SetTimeline(axis.L0, sineScript(length, opts.spacing, 0))
	p.SetTimeline(axis.R0, sineScript(length, opts.spacing, math.Pi/2))

	source := media.NewSimulated(length, true)
	null := &transport.Null{}
	target := output.NewTarget(output.TargetConfig{Name: cfg.Discipline.String() + "/" + cfg.Execution.String(), Loop: cfg}, p, null, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = source.Run(ctx, func(s media.State) { clk.Report(s.ClockState()) })
	}()
	go func() {
		defer wg.Done()
		_ = p.Run(ctx, provider.DefaultUpdateInterval)
	}()

	if err := target.Start(ctx); err != nil {
		return result{cfg: cfg, err: err}
	}

	timer := time.NewTimer(opts.duration + output.DefaultSettleDelay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	stats := target.Stats()
	target.Stop()
	cancel()
	wg.Wait()

	lines, _ := null.Counts()
	return result{cfg: cfg, stats: stats, lines: lines, err: target.Err()}
}

func renderResults(results []result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Loop", "Rate", "Jitter", "Update error", "Ticks", "Sent", "Error"})
	for _, r := range results {
		errText := "-"
		if r.err != nil {
			errText = r.err.Error()
		}
		rate := "-"
		if r.stats.Rate > 0 {
			rate = strconv.FormatFloat(r.stats.Rate, 'f', 1, 64) + " Hz"
		}
		tw.AppendRow(table.Row{
			r.cfg.Discipline.String() + "/" + r.cfg.Execution.String(),
			rate,
			formatDuration(r.stats.Jitter),
			formatDuration(r.stats.UpdateError),
			r.stats.Ticks,
			r.lines,
			errText,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

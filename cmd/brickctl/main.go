package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gobrick/adapters/excel"
	"gobrick/adapters/wire"
	"gobrick/app"
	"gobrick/internal"
	"gobrick/internal/energy"
	"gobrick/internal/profiling"
	"gobrick/internal/testkit"
	"gobrick/models"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "brickctl",
		Short: "Synthesize, evaluate and report on stress-energy bricks",
	}

	rootCmd.AddCommand(
		newSynthCmd(),
		newEvaluateCmd(),
		newReportCmd(),
		newInspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSynthCmd() *cobra.Command {
	cfg := testkit.DefaultBrickConfig()
	var dims, profile, format, output string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a deterministic synthetic brick",
		Long: `Generate a synthetic stress-energy brick and write it in the wire format.

Profiles: uniform, pure_flux, mixed, warp_shell

Example: brickctl synth --dims 32x32x32 --profile warp_shell --format binary -o shell.brick`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.ParseDims(dims)
			if err != nil {
				return err
			}
			f, err := wire.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg.Dims = d
			cfg.Profile = testkit.Profile(profile)
			return runSynth(cfg, f, output)
		},
	}

	cmd.Flags().StringVar(&dims, "dims", "16x16x16", "Grid extents as NxMxK")
	cmd.Flags().StringVar(&profile, "profile", string(cfg.Profile), "Synthetic field profile")
	cmd.Flags().Float64Var(&cfg.Density, "density", cfg.Density, "Peak |T00|")
	cmd.Flags().Float64Var(&cfg.FluxScale, "flux-scale", cfg.FluxScale, "Peak |S| relative to density")
	cmd.Flags().Float64Var(&cfg.NoiseLevel, "noise", cfg.NoiseLevel, "Gaussian density noise relative to density")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for deterministic noise")
	cmd.Flags().StringVar(&format, "format", "binary", "Wire format: binary or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var opts evalOptions
	var attach string

	cmd := &cobra.Command{
		Use:   "evaluate [brick-file]",
		Short: "Evaluate observer-robust energy conditions and print the diagnostics",
		Long: `Decode a brick, run the NEC/WEC/SEC/DEC evaluation and print the
observerRobust block as JSON.

Example: brickctl evaluate shell.brick --rapidity-cap 0.3 --attach evaluated.brick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), args[0], opts, attach)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&attach, "attach", "", "Also write the brick with the observerRobust block attached")

	return cmd
}

func newReportCmd() *cobra.Command {
	var opts evalOptions
	var xlsxPath string
	var markdown bool

	cmd := &cobra.Command{
		Use:   "report [brick-files...]",
		Short: "Evaluate bricks and write an xlsx workbook or markdown summaries",
		Long: `Evaluate every brick file and report the results.

With --xlsx the workbook holds a Summary sheet and a per-condition sheet.
With --markdown a markdown summary is printed per brick.

Example: brickctl report a.brick b.brick --xlsx evaluations.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if xlsxPath == "" && !markdown {
				return fmt.Errorf("choose --xlsx and/or --markdown")
			}
			return runReport(cmd.Context(), args, opts, xlsxPath, markdown)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an xlsx workbook to this path")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown summary per brick")

	return cmd
}

func newInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect [brick-file]",
		Short: "Print the header and channel distribution of a brick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Wire format (default: sniffed)")

	return cmd
}

// evalOptions are the evaluation flags shared by evaluate and report
type evalOptions struct {
	format         string
	pressureFactor float64
	rapidityCap    float64
	typeITolerance float64
	workers        int
}

func (o *evalOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "Wire format (default: sniffed)")
	cmd.Flags().Float64Var(&o.pressureFactor, "pressure-factor", energy.DefaultPressureFactor, "Isotropic pressure as a multiple of T00")
	cmd.Flags().Float64Var(&o.rapidityCap, "rapidity-cap", energy.DefaultRapidityCap, "Maximum observer rapidity, in (0,1)")
	cmd.Flags().Float64Var(&o.typeITolerance, "type-i-tolerance", energy.DefaultTypeITolerance, "Type I discriminant tolerance")
	cmd.Flags().IntVar(&o.workers, "workers", 4, "Evaluation workers")
}

func (o evalOptions) service() (*app.EvaluationService, error) {
	cfg := app.DefaultEvaluationServiceConfig()
	cfg.Params = energy.Params{
		PressureFactor: o.pressureFactor,
		RapidityCap:    o.rapidityCap,
		TypeITolerance: o.typeITolerance,
	}
	cfg.Workers = o.workers
	return app.NewEvaluationService(cfg, nil, internal.NewLogger(internal.LogLevelWarn))
}

func readBrickFile(path, format string) ([]byte, wire.Format, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if format == "" {
		return payload, wire.Sniff(payload), nil
	}
	f, err := wire.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	return payload, f, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func runSynth(cfg testkit.BrickGeneratorConfig, format wire.Format, output string) error {
	b, err := testkit.NewBrickGenerator(cfg).Generate()
	if err != nil {
		return err
	}
	payload, err := wire.Encode(b, format)
	if err != nil {
		return err
	}
	if err := writeOutput(output, payload); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "wrote %s %s brick (%d voxels, %d bytes) to %s\n", cfg.Profile, b.Dims, b.Voxels(), len(payload), output)
	}
	return nil
}

func runEvaluate(ctx context.Context, path string, opts evalOptions, attach string) error {
	svc, err := opts.service()
	if err != nil {
		return err
	}
	payload, format, err := readBrickFile(path, opts.format)
	if err != nil {
		return err
	}
	result, err := svc.EvaluatePayload(ctx, payload, format, nil)
	if err != nil {
		return err
	}
	if result.UpstreamIssue != "" {
		fmt.Fprintf(os.Stderr, "warning: %s carried an inconsistent observerRobust block: %s\n", path, result.UpstreamIssue)
	}

	out, err := json.MarshalIndent(result.Evaluation.Diagnostics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if attach == "" {
		return nil
	}
	b, err := svc.Brick(ctx, result.Evaluation.ID)
	if err != nil {
		return err
	}
	encoded, err := wire.Encode(b, format)
	if err != nil {
		return err
	}
	return os.WriteFile(attach, encoded, 0o644)
}

func runReport(ctx context.Context, paths []string, opts evalOptions, xlsxPath string, markdown bool) error {
	svc, err := opts.service()
	if err != nil {
		return err
	}

	records := make([]*models.Evaluation, 0, len(paths))
	for _, path := range paths {
		payload, format, err := readBrickFile(path, opts.format)
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := svc.EvaluatePayload(ctx, payload, format, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		result.Evaluation.Source = withSource(result.Evaluation.Source, path)
		fmt.Fprintf(os.Stderr, "evaluated %s (%s) in %s\n", path, result.Evaluation.Dims, time.Since(start).Round(time.Millisecond))
		records = append(records, result.Evaluation)

		if markdown {
			report, err := app.BuildReport(result.Evaluation)
			if err != nil {
				return err
			}
			fmt.Println(report.Markdown)
		}
	}

	if xlsxPath != "" {
		if err := excel.SaveEvaluations(xlsxPath, records); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d evaluations to %s\n", len(records), xlsxPath)
	}
	return nil
}

func runInspect(path, format string) error {
	payload, f, err := readBrickFile(path, format)
	if err != nil {
		return err
	}
	b, err := wire.Decode(payload, f)
	if err != nil {
		return err
	}

	fmt.Printf("Brick: %s (%d voxels, %s)\n", b.Dims, b.Voxels(), f)
	if b.Provenance.Source != "" {
		fmt.Printf("Source: %s (proxy: %t)\n", b.Provenance.Source, b.Provenance.Proxy)
	}
	if d := b.Stats.ObserverRobust; d != nil {
		fmt.Printf("observerRobust: rapidityCap=%g typeI=%.3f consistent=%t\n",
			d.RapidityCap, d.TypeI.Fraction, d.Consistency.RobustNotGreaterThanEulerian)
	}

	profiles, err := profiling.ProfileBrick(b)
	if err != nil {
		return err
	}
	fmt.Printf("\n%-6s %8s %6s %12s %12s %12s %12s %12s %8s\n", "chan", "count", "nan", "min", "q25", "median", "q75", "max", "outliers")
	for _, p := range profiles {
		fmt.Printf("%-6s %8d %6d %12.4g %12.4g %12.4g %12.4g %12.4g %8d\n",
			p.Name, p.Count, p.NonFinite, p.Min, p.Q25, p.Median, p.Q75, p.Max, p.Outliers)
	}
	return nil
}

func withSource(source, path string) string {
	if source == "" {
		return path
	}
	if strings.Contains(source, path) {
		return source
	}
	return source + " (" + path + ")"
}

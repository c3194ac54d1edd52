package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/traceanalyzer/pkg/analysis"
	"github.com/cuemby/traceanalyzer/pkg/analysis/analyses"
	"github.com/cuemby/traceanalyzer/pkg/bundle"
	"github.com/cuemby/traceanalyzer/pkg/config"
	"github.com/cuemby/traceanalyzer/pkg/log"
	"github.com/cuemby/traceanalyzer/pkg/tracesource"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "traceanalyzer",
	Short: "Offline trace analyzer for distributed robotics middleware",
	Long: `traceanalyzer ingests binary event traces produced by instrumented
middleware libraries across multiple hosts and reconstructs the runtime
object graph, per-message causal chains, and statistical analyses
rendered to JSON, DOT, and a binary bundle.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"traceanalyzer version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bundleCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run [trace directories...]",
	Short: "Run the analysis pipeline against one or more trace directories",
	Long: `Run discovers traces under the given directories (recursively, unless
--exact is set), reconstructs the runtime object graph in one pass, and
writes one artifact per enabled analysis.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exact, _ := cmd.Flags().GetBool("exact")
		configPath, _ := cmd.Flags().GetString("config")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		bundlePath, _ := cmd.Flags().GetString("bundle")
		enable, _ := cmd.Flags().GetStringSlice("enable")
		exclude, _ := cmd.Flags().GetStringSlice("exclude")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}
		if bundlePath != "" {
			cfg.BundlePath = bundlePath
		}
		cfg.EnabledAnalyses = append(cfg.EnabledAnalyses, enable...)
		cfg.Exclude = append(cfg.Exclude, exclude...)

		runID := uuid.NewString()
		logger := log.WithTrace(runID)
		logger.Info().Strs("dirs", args).Bool("exact", exact).Msg("opening traces")

		stream, err := tracesource.JSONLReader{}.Open(context.Background(), args, exact)
		if err != nil {
			return err
		}
		defer stream.Close()

		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", cfg.OutputDir, err)
		}

		driver := analysis.New(log.WithComponent("reconstruct"))

		var reporters []analyses.Reporter
		var sinks []*os.File
		for _, spec := range analyses.Selected(cfg) {
			path := filepath.Join(cfg.OutputDir, spec.Name+"."+spec.Ext)
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			sinks = append(sinks, f)
			r := spec.New(cfg, f)
			reporters = append(reporters, r)
			driver.Register(r)
		}

		counters, runErr := driver.Run(stream)
		for _, f := range sinks {
			if err := f.Close(); err != nil && runErr == nil {
				runErr = fmt.Errorf("close %s: %w", f.Name(), err)
			}
		}
		if runErr != nil {
			return runErr
		}

		logger.Info().
			Int("processed", counters.Processed).
			Int("failed", counters.Failed).
			Int("unsupported", counters.Unsupported).
			Int("non_core", counters.NonCore).
			Int("non_core_messages", counters.NonCoreMsg).
			Msg("run complete")

		if cfg.BundlePath != "" {
			if err := writeBundle(cfg.BundlePath, runID, reporters); err != nil {
				return err
			}
			logger.Info().Str("path", cfg.BundlePath).Msg("bundle written")
		}
		return nil
	},
}

func writeBundle(path, runID string, reporters []analyses.Reporter) error {
	store, err := bundle.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetMeta("run_id", runID); err != nil {
		return err
	}
	if err := store.SetMeta("version", Version); err != nil {
		return err
	}
	for _, r := range reporters {
		if err := store.Put(r.Name(), r.FileExt(), r.Result()); err != nil {
			return err
		}
	}
	return nil
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Inspect binary bundle files",
}

var bundleInspectCmd = &cobra.Command{
	Use:   "inspect [bundle file]",
	Short: "List the analyses stored in a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := bundle.Open(args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		if runID, err := store.Meta("run_id"); err == nil {
			fmt.Printf("Run ID: %s\n", runID)
		}
		entries, err := store.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-28s %-5s %8d bytes  %s\n", e.Name, e.Format, e.Size, e.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("exact", false, "Treat arguments as exact trace directories, no recursive discovery")
	runCmd.Flags().String("config", "", "Path to a YAML configuration file")
	runCmd.Flags().String("output-dir", "", "Directory analysis artifacts are written under")
	runCmd.Flags().String("bundle", "", "Also write every analysis result into this bundle file")
	runCmd.Flags().StringSlice("enable", nil, "Additional non-default analyses to run")
	runCmd.Flags().StringSlice("exclude", nil, "Analyses to skip")

	bundleCmd.AddCommand(bundleInspectCmd)
}

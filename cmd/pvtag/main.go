package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pvtag/pvtag/cmd"
	"github.com/pvtag/pvtag/internal/export"
	"github.com/pvtag/pvtag/internal/logger"
	"github.com/pvtag/pvtag/internal/pipeline"
	"github.com/pvtag/pvtag/internal/render"
	"github.com/pvtag/pvtag/internal/review"
	fz "github.com/pvtag/pvtag/pkg/fuzzymatch"
	"github.com/pvtag/pvtag/pkg/labelformat"
)

const (
	appName        = "pvtag"
	noConfig       = "NONE"
	suggestionsMax = 3
)

var (
	Version     = "0.1.0"
	CommitSha   = "unknown"
	FullVersion = Version + "-" + CommitSha
)

var appDir = filepath.Join(xdg.StateHome, appName)

// globalFlags holds the persistent flags. They override the config file only
// when set explicitly.
type globalFlags struct {
	configPath       string
	station          string
	advanced         bool
	radius           float64
	location         string
	yTolerance       float64
	minWidth         float64
	noMerge          bool
	gapTolerance     float64
	maxMergeDistance float64
	pattern          string
	outputPattern    string
	logLevel         string
	showVersion      bool
}

// outputFlags are shared by the commands that export results.
type outputFlags struct {
	output string
	svg    string
}

type app struct {
	flags   globalFlags
	config  *Config
	logPath string
	closer  io.Closer
}

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// loadConfig reads the config file named by --config, or the default one.
func (a *app) loadConfig() (*Config, error) {
	switch a.flags.configPath {
	case noConfig:
		return NewDefaultConfig(), nil
	case "":
		return LoadConfigFromFile(defaultConfigPath())
	}
	if _, err := os.Stat(a.flags.configPath); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	return LoadConfigFromFile(a.flags.configPath)
}

// applyFlags copies explicitly set flags over the config values.
func applyFlags(c *Config, f *globalFlags, changed func(string) bool) {
	if changed("station") {
		c.Assign.Station = f.station
	}
	if changed("advanced") {
		c.Assign.Advanced = f.advanced
	}
	if changed("radius") {
		c.Assign.SearchRadius = f.radius
	}
	if changed("location") {
		c.Assign.Location = f.location
	}
	if changed("y-tolerance") {
		c.Extract.YTolerance = f.yTolerance
	}
	if changed("min-width") {
		c.Extract.MinimumWidth = f.minWidth
	}
	if changed("no-merge") {
		c.Extract.Merge = !f.noMerge
	}
	if changed("gap-tolerance") {
		c.Extract.GapTolerance = f.gapTolerance
	}
	if changed("max-merge-distance") {
		c.Extract.MaxMergeDistance = f.maxMergeDistance
	}
	if changed("pattern") {
		c.Format.InputPattern = f.pattern
	}
	if changed("output-pattern") {
		c.Format.OutputPattern = f.outputPattern
	}
	if changed("log-level") {
		c.Log.Level = f.logLevel
	}
}

// setup loads and validates the configuration, then starts logging.
func (a *app) setup(c *cobra.Command) error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}
	applyFlags(config, &a.flags, c.Flags().Changed)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.config = config

	if a.logPath != "" {
		closer, err := logger.InitLogger(a.logPath, config.Log.Level)
		if err != nil {
			return err
		}
		a.closer = closer
	}
	slog.Info("starting", "version", FullVersion, "command", c.Name())
	return nil
}

func (a *app) teardown() {
	if a.closer != nil {
		a.closer.Close() // nolint: errcheck
		a.closer = nil
	}
}

// session runs the pipeline over the drawing at path.
func (a *app) session(ctx context.Context, path string) (*pipeline.Session, error) {
	params, err := a.config.Params()
	if err != nil {
		return nil, err
	}
	params.Manager.Suggest = func(query string, candidates []string) []string {
		return fz.NewFuzzyMatcher(false).Suggest(query, candidates, suggestionsMax)
	}

	parser, err := labelformat.Compile(a.config.Format.InputPattern)
	if err != nil {
		return nil, err
	}

	s, err := pipeline.Run(ctx, pipeline.FileReader, path, parser, params)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

// svgColor maps a configured terminal color onto an SVG paint value.
func svgColor(name string) string {
	if strings.EqualFold(name, "default") {
		return "black"
	}
	return strings.ToLower(name)
}

// write stores the export and the diagram where the flags ask for them.
func (a *app) write(w io.Writer, s *pipeline.Session, out outputFlags) error {
	if out.output != "" {
		doc := export.Build(s.Manager, export.Meta{Drawing: s.Name, Station: s.Station},
			export.Options{OutputPattern: a.config.Format.OutputPattern})
		if out.output == "-" {
			if err := export.Write(os.Stdout, doc); err != nil {
				return err
			}
		} else {
			if err := export.WriteFile(out.output, doc); err != nil {
				return err
			}
			okStyle.Fprintf(w, "wrote %s\n", out.output)
		}
	}

	if out.svg != "" {
		opts := render.DefaultOptions()
		opts.Title = s.Name
		opts.Assigned = svgColor(a.config.Colors.Assigned)
		opts.Unassigned = svgColor(a.config.Colors.Unassigned)
		opts.LabelColor = svgColor(a.config.Colors.Selected)

		f, err := os.Create(out.svg)
		if err != nil {
			return fmt.Errorf("failed to create diagram: %w", err)
		}
		if err := render.SVG(f, s.Manager, opts); err != nil {
			f.Close() // nolint: errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write diagram: %w", err)
		}
		okStyle.Fprintf(w, "wrote %s\n", out.svg)
	}
	return nil
}

// summaryWriter keeps the summary off stdout when stdout carries the export.
func summaryWriter(c *cobra.Command, out outputFlags) io.Writer {
	if out.output == "-" {
		return c.ErrOrStderr()
	}
	return c.OutOrStdout()
}

func (a *app) runMatch(c *cobra.Command, path string, out outputFlags) error {
	s, err := a.session(c.Context(), path)
	if err != nil {
		return err
	}
	w := summaryWriter(c, out)
	printSummary(w, s)
	return a.write(w, s, out)
}

func (a *app) runApply(c *cobra.Command, path, editsPath string, out outputFlags) error {
	edits, err := ReadEdits(editsPath)
	if err != nil {
		return err
	}
	s, err := a.session(c.Context(), path)
	if err != nil {
		return err
	}

	w := summaryWriter(c, out)
	if failed := applyEdits(w, s.Manager, edits); failed > 0 {
		warnStyle.Fprintf(w, "%d of %d edits failed\n", failed, len(edits))
	}
	if err := s.Manager.Validate(); err != nil {
		return fmt.Errorf("assignment state is inconsistent: %w", err)
	}
	printSummary(w, s)
	return a.write(w, s, out)
}

// defaultExportPath names the review export after the drawing.
func defaultExportPath(drawingPath string) string {
	return strings.TrimSuffix(drawingPath, filepath.Ext(drawingPath)) + ".pvtag.json"
}

func (a *app) runReview(c *cobra.Command, path string, out outputFlags) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("review needs an interactive terminal")
	}
	s, err := a.session(c.Context(), path)
	if err != nil {
		return err
	}
	if out.output == "" {
		out.output = defaultExportPath(path)
	}

	view := review.NewView(s.Manager, a.config.ViewColors())
	event, err := view.Present()
	if err != nil {
		return err
	}

	w := c.OutOrStdout()
	if event != review.WriteEvent {
		warnStyle.Fprintln(w, "quit without writing")
		return nil
	}
	printSummary(w, s)
	return a.write(w, s, out)
}

func addOutputFlags(c *cobra.Command, out *outputFlags) {
	c.Flags().StringVarP(&out.output, "output", "o", "", "Write the JSON export to this path (- for stdout)")
	c.Flags().StringVar(&out.svg, "svg", "", "Render the numbered diagram to this SVG file")
}

func newRootCommand(a *app) *cobra.Command {
	f := &a.flags
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Match string labels to wire segments in solar drawings",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Match string labels to the wire segments they describe. %s",
			color.New(color.FgBlue).Sprintf("(%s)", FullVersion),
		),
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			if f.showVersion {
				return nil
			}
			return a.setup(c)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
		RunE: func(c *cobra.Command, _ []string) error {
			if f.showVersion {
				fmt.Fprintf(c.OutOrStdout(), "%s version: %s\n", appName, FullVersion)
				return nil
			}
			return c.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Config file (NONE to skip loading)")
	pf.StringVar(&f.station, "station", "", "Only auto-assign labels of this station")
	pf.BoolVar(&f.advanced, "advanced", false, "Offer every label to automatic assignment")
	pf.Float64Var(&f.radius, "radius", 0, "Search radius around each label")
	pf.StringVar(&f.location, "location", "", "Where a label sits relative to its wire (above, below, any)")
	pf.Float64Var(&f.yTolerance, "y-tolerance", 0, "Maximum vertical drift of a horizontal segment")
	pf.Float64Var(&f.minWidth, "min-width", 0, "Minimum width of a horizontal segment")
	pf.BoolVar(&f.noMerge, "no-merge", false, "Keep fragmented segments apart")
	pf.Float64Var(&f.gapTolerance, "gap-tolerance", 0, "Maximum vertical offset between merged segments")
	pf.Float64Var(&f.maxMergeDistance, "max-merge-distance", 0, "Maximum horizontal gap between merged segments")
	pf.StringVar(&f.pattern, "pattern", "", "Label pattern, e.g. "+labelformat.DefaultPattern)
	pf.StringVar(&f.outputPattern, "output-pattern", "", "Display name pattern for the export")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&f.showVersion, "version", "v", false, "Print version and exit")

	var matchOut outputFlags
	matchCmd := &cobra.Command{
		Use:   "match DRAWING",
		Short: "Run automatic assignment and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return a.runMatch(c, args[0], matchOut)
		},
	}
	addOutputFlags(matchCmd, &matchOut)

	var (
		applyOut  outputFlags
		editsPath string
	)
	applyCmd := &cobra.Command{
		Use:   "apply DRAWING --edits FILE",
		Short: "Run automatic assignment, then apply an edit script",
		Example: `  pvtag apply block.yaml --edits fixes.yaml -o block.json

  # fixes.yaml
  - {op: assign, text: S1-01-1-03, segment: 12}
  - {op: swap, text: S1-01-1-04, with: S1-01-1-05}
  - {op: skip, text: SPARE}`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return a.runApply(c, args[0], editsPath, applyOut)
		},
	}
	addOutputFlags(applyCmd, &applyOut)
	applyCmd.Flags().StringVar(&editsPath, "edits", "", "YAML edit script")
	_ = applyCmd.MarkFlagRequired("edits")

	var reviewOut outputFlags
	reviewCmd := &cobra.Command{
		Use:   "review DRAWING",
		Short: "Correct the assignment interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return a.runReview(c, args[0], reviewOut)
		},
	}
	addOutputFlags(reviewCmd, &reviewOut)

	rootCmd.AddCommand(matchCmd, applyCmd, reviewCmd)

	rootCmd.SetHelpTemplate(cmd.HelpTemplate)
	rootCmd.SetUsageFunc(func(c *cobra.Command) error {
		return cmd.ColorUsageFunc(c.OutOrStderr(), c)
	})
	return rootCmd
}

func main() {
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating state directory: %v\n", err)
		os.Exit(1)
	}
	if f, err := os.Create(filepath.Join(appDir, "crash")); err == nil {
		_ = debug.SetCrashOutput(f, debug.CrashOptions{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{logPath: filepath.Join(appDir, appName+".log")}
	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		slog.Error("Error executing command", "error", err)
		a.teardown()
		stop()
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/marginalia/internal/audit"
	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/simulate"
	"github.com/ensigniasec/marginalia/internal/storage"
	"github.com/ensigniasec/marginalia/internal/territory"
	"github.com/ensigniasec/marginalia/internal/tui"
	"github.com/ensigniasec/marginalia/internal/validate"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	verbose     bool
	configFile  string
	profileName string
	eventsFile  string
	bookmarks   string
	fresh       bool
	jsonOutput  bool
	format      string
	width       int
	height      float64

	rootCmd = &cobra.Command{
		Use:   "marginalia",
		Short: "Read long documents with their footnotes, images and annotations kept in step.",
		Long:  `Marginalia keeps a reading position in sync with the reference markers embedded in a document. As you scroll, the marker nearest the eye-line takes focus; jumping to a marker animates there and holds focus until it lands or you take over.`,
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to keep stdout for event and report output.
	logrus.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional: YAML file overriding engine tuning")
	rootCmd.PersistentFlags().
		StringVar(&profileName, "profile", "terminal", "Built-in tuning profile the config file overrides (terminal or pixel)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}

	readCmd.Flags().StringVar(&eventsFile, "events", "", "Optional: append engine events to this file as JSON lines")
	readCmd.Flags().StringVar(&bookmarks, "bookmarks", storage.DefaultPath, "File where reading positions and annotations are kept")
	readCmd.Flags().BoolVar(&fresh, "fresh", false, "Start at the top and do not save a bookmark")

	territoriesCmd.Flags().IntVar(&width, "width", defaultWidth, "Wrap width in columns")
	territoriesCmd.Flags().Float64Var(&height, "height", defaultHeight, "Viewport height in rows")
	territoriesCmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")

	auditCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format instead of rich text")
	auditCmd.Flags().Float64Var(&height, "height", defaultHeight, "Viewport height in rows")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(territoriesCmd)
	rootCmd.AddCommand(auditCmd)

	// Built-in version flag: set version string and a custom template.
	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func main() {
	Execute()
}

// loadConfig resolves --profile and overlays --config.
func loadConfig() config.Config {
	base, err := config.Profile(profileName)
	if err != nil {
		logrus.Fatal(err)
	}
	cfg, err := config.Load(configFile, base)
	if err != nil {
		logrus.Fatalf("Unable to load config: %v", err)
	}
	return cfg
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var readCmd = &cobra.Command{
	Use:   "read FILE",
	Short: "Open a Markdown document in the interactive reader",
	Long:  "Open a Markdown document full screen. Footnotes, images and annotations are tracked in the gutter as you scroll.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		opts := tui.Options{Path: args[0], Config: cfg}

		if !fresh {
			st, err := storage.NewOrExistingStorage(bookmarks)
			if err != nil {
				logrus.Fatalf("Unable to open or create storage: %v", err)
			}
			opts.Store = st
		}

		if eventsFile != "" {
			f, err := os.OpenFile(eventsFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				logrus.Fatalf("Unable to open events file: %v", err)
			}
			defer f.Close()
			opts.Events = reporter.NewJSONLines(f)
		}

		if err := tui.Run(cmd.Context(), opts); err != nil {
			logrus.Fatalf("Reader failed: %v", err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var simulateCmd = &cobra.Command{
	Use:   "simulate SCRIPT",
	Short: "Replay a scripted reading session and print its events",
	Long:  "Replay a YAML script of timed scrolls and commands against a document on a simulated clock. Every event is printed to stdout as one JSON line; a summary is logged at the end.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		script, err := simulate.Load(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		sum, err := simulate.Run(cmd.Context(), script, cfg, reporter.NewJSONLines(os.Stdout))
		if err != nil {
			logrus.Fatal(err)
		}
		logrus.WithFields(logrus.Fields{
			"frames":   sum.Frames,
			"elapsed":  sum.Elapsed,
			"rejected": sum.Rejected,
			"focused":  sum.Focused,
			"offset":   sum.Offset,
		}).Info("Simulation finished")
	},
}

// territoryReport is the output of the territories command.
type territoryReport struct {
	Document    string            `json:"document" yaml:"document"`
	Width       int               `json:"width" yaml:"width"`
	Height      float64           `json:"height" yaml:"height"`
	ScrollMax   float64           `json:"scrollMax" yaml:"scroll_max"`
	Spacing     float64           `json:"spacing" yaml:"spacing"`
	Compressed  bool              `json:"compressed" yaml:"compressed"`
	Territories []territory.Entry `json:"territories" yaml:"territories"`
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var territoriesCmd = &cobra.Command{
	Use:   "territories FILE",
	Short: "Print the territory map of a document",
	Long:  "Lay out a Markdown document at the given size and print each marker's ideal stop and the scroll range it owns.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := validate.Var(format, "oneof=json yaml"); err != nil {
			logrus.Fatalf("Unsupported --format %q", format)
		}
		if err := validate.Var(width, "gt=0"); err != nil {
			logrus.Fatalf("--width must be positive, got %d", width)
		}
		cfg := loadConfig()

		src, err := document.ReadFile(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		doc := document.New(src, width, cfg.Layout.Gap)
		doc.Resize(width, height)
		markers := doc.Markers()
		m := territory.Build(markers, doc.Viewport(), cfg.Territory)

		report := territoryReport{
			Document:    filepath.Base(args[0]),
			Width:       width,
			Height:      height,
			ScrollMax:   m.ScrollMax,
			Spacing:     m.Spacing,
			Compressed:  m.Compressed,
			Territories: territory.Table(m, markers),
		}

		var out []byte
		if format == "yaml" {
			out, err = yaml.Marshal(report)
		} else {
			out, err = json.MarshalIndent(report, "", "  ")
			out = append(out, '\n')
		}
		if err != nil {
			logrus.Fatal(err)
		}
		if _, err := os.Stdout.Write(out); err != nil {
			logrus.Fatal(err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var auditCmd = &cobra.Command{
	Use:   "audit DIR",
	Short: "Check every Markdown document under a directory for crowded markers",
	Long:  "Walk a directory tree, lay out each Markdown document and report marker counts and whether territory spacing had to be compressed.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput && !verbose {
			logrus.SetLevel(logrus.WarnLevel)
		}
		cfg := loadConfig()

		a := audit.New(cfg, height).WithProgress(func(r audit.FileReport) {
			logrus.WithField("markers", r.Markers).Debug("Audited ", r.Path)
		})
		res, err := a.Run(cmd.Context(), args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		if err := audit.Print(os.Stdout, res, jsonOutput); err != nil {
			logrus.Fatal(err)
		}
	},
}

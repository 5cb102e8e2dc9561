package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/metcalfc/purr/internal/config"
	"github.com/metcalfc/purr/internal/reader"
	"github.com/metcalfc/purr/internal/speech"
	"github.com/metcalfc/purr/internal/state"
)

// Set with -ldflags "-X main.version=..." at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AFFF"))

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flags are the settings that can be given on the command line. Only the
// ones actually set override the configuration.
type flags struct {
	config   string
	engine   string
	voice    string
	rate     float64
	pitch    float64
	logFile  string
	logLevel string
	ocrLang  string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "purr [file]",
		Short: "Read documents aloud",
		Long: `purr reads text aloud one sentence at a time.

Give it a file or pipe text on stdin. With neither, it starts empty and
you can type or open something.

Formats:
  ` + strings.Join(reader.SupportedFormats(), "\n  ") + `

Controls:
  space      play / pause
  s          stop and rewind
  ← →        previous / next sentence
  ↑ ↓ enter  select a sentence and read from it
  [ ]        previous / next section
  + - , .    rate and pitch
  v          next voice
  e o r      edit text, open a file, resume bookmark
  q          quit`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			store, err := state.NewStore()
			if err != nil {
				// Reading still works, it just isn't remembered.
				store = nil
			}
			cfg, err := f.load(cmd, store)
			if err != nil {
				return err
			}

			logger, closeLog, err := fileLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			a, err := newApp(cfg, logger, store)
			if err != nil {
				return err
			}
			defer a.Close()

			return runReader(cmd.Context(), a, in)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("purr %s (commit: %s, built: %s)\n", version, commit, date))

	f.register(root.PersistentFlags())

	root.AddCommand(
		newChunksCmd(f),
		newVoicesCmd(f),
		newFormatsCmd(),
		newVersionCmd(),
	)
	return root
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	fs.StringVar(&f.engine, "engine", "", "speech engine: auto, espeak, say or openai")
	fs.StringVar(&f.voice, "voice", "", "voice ID, see purr voices")
	fs.Float64VarP(&f.rate, "rate", "r", 1.0, "speaking rate (0.5-2.0)")
	fs.Float64Var(&f.pitch, "pitch", 1.0, "speaking pitch (0-2.0)")
	fs.StringVar(&f.logFile, "log-file", "", "write logs to this file")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.ocrLang, "ocr-lang", "", "tesseract language for images, e.g. eng or deu")
}

// load layers configuration, saved preferences and explicitly set flags.
// store may be nil.
func (f *flags) load(cmd *cobra.Command, store *state.Store) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if p := store.Preferences(); p.Saved() {
			cfg.Voice, cfg.Rate, cfg.Pitch = p.Voice, p.Rate, p.Pitch
		}
	}

	fs := cmd.Flags()
	if fs.Changed("engine") {
		cfg.Engine = f.engine
	}
	if fs.Changed("voice") {
		cfg.Voice = f.voice
	}
	if fs.Changed("rate") {
		cfg.Rate = f.rate
	}
	if fs.Changed("pitch") {
		cfg.Pitch = f.pitch
	}
	if fs.Changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("ocr-lang") {
		cfg.OCRLanguage = f.ocrLang
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newChunksCmd(f *flags) *cobra.Command {
	var sections bool

	cmd := &cobra.Command{
		Use:   "chunks [file]",
		Short: "Print the sentences a document is read as",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd, nil)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			in, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			var doc *reader.Document
			switch {
			case in.path != "":
				ctx := cmd.Context()
				reader.ProbeAll(ctx)
				stderr := cmd.ErrOrStderr()
				content, err := reader.ExtractFile(ctx, in.path, reader.Options{
					Language:    cfg.OCRLanguage,
					MaxFileSize: cfg.MaxFileSize,
					Progress: func(done, total int) {
						fmt.Fprintf(stderr, "\rpage %d of %d", done, total)
						if done == total {
							fmt.Fprintln(stderr)
						}
					},
				})
				if err != nil {
					return err
				}
				doc = reader.NewDocument(content.Text, content.Sections)
			case in.text != "":
				doc = reader.NewDocument(in.text, nil)
			default:
				return errors.New("no input provided, give a file or pipe text to stdin")
			}
			logger.Debug("segmented document", "chunks", len(doc.Chunks), "sections", len(doc.Sections))

			out := cmd.OutOrStdout()
			if sections {
				for _, s := range doc.Sections {
					fmt.Fprintf(out, "%s%s (chunk %d)\n", strings.Repeat("  ", s.Level), s.Title, s.Chunk+1)
				}
				return nil
			}
			for i, chunk := range doc.Chunks {
				fmt.Fprintf(out, "%d\t%s\n", i+1, strings.Join(strings.Fields(chunk), " "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sections, "sections", false, "print the table of contents instead")
	return cmd
}

func newVoicesCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices of the selected engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd, nil)
			if err != nil {
				return err
			}
			engine, err := speech.New(speechConfig(cfg), newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer engine.Close()

			voices, err := engine.Voices(cmd.Context())
			if err != nil {
				return err
			}
			if len(voices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No voices reported by the engine.")
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("ID", "NAME", "LANGUAGE").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return lipgloss.NewStyle()
				})
			for _, v := range voices {
				t.Row(v.ID, v.Name, v.Language)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported document formats and whether they are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader.ProbeAll(cmd.Context())

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("FORMAT", "EXTENSIONS", "STATUS").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return lipgloss.NewStyle()
				})
			for _, f := range reader.Formats() {
				status := reader.Ready
				if p, ok := f.(reader.Prober); ok {
					status = p.Readiness()
				}
				t.Row(f.Name(), strings.Join(f.Extensions(), " "), status.String())
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "purr %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

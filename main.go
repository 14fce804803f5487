package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mickamy/qprof/internal/config"
	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/parser"
	"github.com/mickamy/qprof/internal/render/html"
	"github.com/mickamy/qprof/internal/render/text"
	"github.com/mickamy/qprof/internal/runner"
	"github.com/mickamy/qprof/internal/warehouse"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qprof",
		Short:         "Snowflake single-query profiler",
		Long:          "qprof looks a query up in the Snowflake query history, merges its explain plan and explains why it performed the way it did.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newProfileCmd(), newReportCmd(), newExplainCmd(), newVersionCmd())
	return root
}

type outputOptions struct {
	format   string
	out      string
	color    bool
	showPlan bool
	title    string
	css      bool
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "text", "Output format: text, json or html")
	cmd.Flags().StringVar(&o.out, "out", "", "Output path (stdout if omitted)")
	cmd.Flags().BoolVar(&o.color, "color", false, "Enable ANSI colors for text output (default: on for terminals)")
	cmd.Flags().BoolVar(&o.showPlan, "plan", false, "Include the explain plan text")
	cmd.Flags().StringVar(&o.title, "title", "qprof report", "Report title (HTML)")
	cmd.Flags().BoolVar(&o.css, "css", true, "Include inline styles (HTML)")
}

func newProfileCmd() *cobra.Command {
	var (
		queryID     string
		inlineSQL   string
		sqlPath     string
		profileName string
		configPath  string
		logLevel    string
		timeout     time.Duration
		output      outputOptions
	)

	cmd := &cobra.Command{
		Use:   "profile (--id <query id> | --sql <statement> | --file <path>)",
		Short: "Profile one query and report findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Apply(config.Path(configPath)); err != nil {
				return err
			}
			cfg := config.Active()
			if logLevel == "" {
				logLevel = cfg.LogLevel
			}
			logger, err := config.NewLogger(logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			profile, err := cfg.ActiveProfile(profileName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = profile.Timeout
			}

			id, err := identityFromFlags(queryID, inlineSQL, sqlPath)
			if err != nil {
				return err
			}
			logger.Info("profiling", zap.Stringer("query", id))

			ctx := cmd.Context()
			session, err := warehouse.Open(ctx, profile, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := session.Close(ctx); err != nil {
					logger.Warn("close session", zap.Error(err))
				}
			}()

			report, err := runner.Run(ctx, session, id, runner.Options{Timeout: timeout, Logger: logger})
			if err != nil {
				return err
			}
			return writeReport(cmd, report, output)
		},
	}

	cmd.Flags().StringVar(&queryID, "id", "", "Query ID from the Snowflake query history")
	cmd.Flags().StringVar(&inlineSQL, "sql", "", "Inline SQL statement, matched verbatim")
	cmd.Flags().StringVar(&sqlPath, "file", "", "Path to a file holding the SQL statement")
	cmd.MarkFlagsMutuallyExclusive("id", "sql", "file")
	cmd.MarkFlagsOneRequired("id", "sql", "file")

	cmd.Flags().StringVar(&profileName, "profile", "", "Connection profile (defaults to current-profile)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the profiles file (YAML). Falls back to $QPROF_CONFIG, then ./profiles.yaml")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Optional timeout for the whole run, e.g. 2m")
	output.bind(cmd)

	return cmd
}

func identityFromFlags(queryID, inlineSQL, sqlPath string) (model.Identity, error) {
	var id model.Identity
	switch {
	case queryID != "":
		id = model.ByID(strings.TrimSpace(queryID))
	case inlineSQL != "":
		id = model.ByText(inlineSQL)
	case sqlPath != "":
		data, err := os.ReadFile(sqlPath)
		if err != nil {
			return model.Identity{}, fmt.Errorf("read sql file: %w", err)
		}
		id = model.ByText(string(data))
	default:
		return model.Identity{}, errors.New("one of --id, --sql or --file is required")
	}
	if err := id.Validate(); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

func newReportCmd() *cobra.Command {
	var (
		input  string
		output outputOptions
	)

	cmd := &cobra.Command{
		Use:   "report --input report.json",
		Short: "Render a saved JSON report (text or HTML)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			var report model.Report
			if err := json.Unmarshal(data, &report); err != nil {
				return fmt.Errorf("parse report: %w", err)
			}
			return writeReport(cmd, &report, output)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Path to a JSON report written by `qprof profile --format json` (- for stdin)")
	_ = cmd.MarkFlagRequired("input")
	output.bind(cmd)
	return cmd
}

func newExplainCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "explain --input plan.txt",
		Short: "Extract scan statistics from an EXPLAIN USING TEXT plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			stats, err := parser.ParseExplainText(string(data))
			if err != nil {
				return err
			}
			payload, err := json.Marshal(stats)
			if err != nil {
				return fmt.Errorf("encode stats: %w", err)
			}
			formatted, err := indentJSON(payload)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(formatted)
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Path to the plan text (- for stdin)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show CLI version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, meta := resolveVersion()
			w := cmd.OutOrStdout()
			if short {
				_, _ = fmt.Fprintln(w, v)
				return nil
			}
			if meta != "" {
				_, _ = fmt.Fprintf(w, "qprof %s (%s)\n", v, meta)
			} else {
				_, _ = fmt.Fprintf(w, "qprof %s\n", v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

func resolveVersion() (string, string) {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}

	var commit, buildTime string
	var dirty bool
	if info, ok := debug.ReadBuildInfo(); ok {
		if (v == "dev" || v == "(devel)") &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" &&
			!strings.HasPrefix(info.Main.Version, "v0.0.0-") {
			v = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			case "vcs.modified":
				dirty = setting.Value == "true"
			}
		}
	}

	var details []string
	if commit != "" {
		short := commit
		if len(short) > 12 {
			short = short[:12]
		}
		if dirty {
			short += "*"
			dirty = false
		}
		details = append(details, fmt.Sprintf("commit %s", short))
	}
	if buildTime != "" {
		details = append(details, fmt.Sprintf("built %s", buildTime))
	}
	if dirty {
		details = append(details, "modified workspace")
	}

	return v, strings.Join(details, ", ")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return data, nil
}

var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func writeReport(cmd *cobra.Command, report *model.Report, opts outputOptions) (err error) {
	if opts.out == "" {
		return renderReport(cmd, cmd.OutOrStdout(), report, opts)
	}
	file, err := createOutput(opts.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return renderReport(cmd, file, report, opts)
}

func renderReport(cmd *cobra.Command, target io.Writer, report *model.Report, opts outputOptions) error {
	switch opts.format {
	case "text":
		color := opts.color
		if !cmd.Flags().Changed("color") {
			color = opts.out == "" && stdoutIsTerminal()
		}
		return text.Render(target, report, text.Options{
			EnableColor: color,
			ShowPlan:    opts.showPlan,
		})
	case "html":
		return html.Render(target, report, html.Options{
			Title:         opts.title,
			IncludeStyles: opts.css,
			ShowPlan:      opts.showPlan,
		})
	case "json":
		payload, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		formatted, err := indentJSON(payload)
		if err != nil {
			return err
		}
		_, err = target.Write(formatted)
		return err
	default:
		return fmt.Errorf("unknown format %q (expected text, json or html)", opts.format)
	}
}

func stdoutIsTerminal() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func indentJSON(data []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

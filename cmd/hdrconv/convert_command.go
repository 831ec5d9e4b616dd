package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hdrconv/internal/config"
	"hdrconv/internal/conversion"
	"hdrconv/internal/deps"
	"hdrconv/internal/fileutil"
	"hdrconv/internal/history"
	"hdrconv/internal/logging"
	"hdrconv/internal/notifications"
	"hdrconv/internal/textutil"
)

type convertOptions struct {
	output    string
	outputDir string
	noWait    bool
	reveal    bool
}

func bindConvertFlags(cmd *cobra.Command, opts *convertOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (single input only)")
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory for converted files (default: paths.output_dir or next to each input)")
	flags.BoolVar(&opts.noWait, "no-wait", false, "Exit right after printing usage when no files are given")
	flags.BoolVar(&opts.reveal, "reveal", false, "Open the output folder after each successful conversion")
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert one or more videos to HDR (HLG)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(ctx, cmd, args, &opts)
		},
	}
	bindConvertFlags(cmd, &opts)
	return cmd
}

func runConvert(ctx *commandContext, cmd *cobra.Command, args []string, opts *convertOptions) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		printUsage(out)
		if !opts.noWait {
			fmt.Fprint(out, "Press Enter to exit...")
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		}
		return nil
	}
	if strings.TrimSpace(opts.output) != "" && len(args) > 1 {
		return errors.New("--output can only be used with a single input file")
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	req, err := requestTemplate(cfg, opts)
	if err != nil {
		return err
	}
	tools, err := deps.ResolveTools(deps.NewLocator(cfg.Tools.BundledDirs), cfg.Tools.Encoder, cfg.Tools.Prober)
	if err != nil {
		return err
	}
	if tools.Prober == "" {
		logging.WarnWithContext(logger, "ffprobe not found; progress will be indeterminate", "prober_missing",
			logging.String("prober", cfg.Tools.Prober))
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notifications.NewService(cfg)
	recorder := openHistory(cfg, logger)
	defer closeHistory(recorder, logger)
	colorize := shouldColorize(out)
	interactive := colorize

	started := time.Now()
	outcomes := make([]conversion.Outcome, 0, len(args))
	for i, arg := range args {
		if runCtx.Err() != nil {
			break
		}
		input, err := config.ExpandPath(arg)
		if err != nil {
			input = arg
		}
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(args), filepath.Base(input))

		reporter := newProgressReporter(out, filepath.Base(input), interactive)
		converter := conversion.New(tools,
			conversion.WithProgress(reporter.relay),
			conversion.WithLogger(logger),
			conversion.WithProbeTimeout(time.Duration(cfg.Tools.ProbeTimeoutSeconds)*time.Second),
			conversion.WithTerminateGrace(time.Duration(cfg.Tools.TerminateGraceSeconds)*time.Second),
		)
		fileReq := req
		fileReq.InputPath = input
		outcome := converter.Convert(runCtx, fileReq)
		reporter.finish(outcome, colorize)
		outcomes = append(outcomes, outcome)

		recordOutcome(runCtx, recorder, outcome, logger)
		notifyOutcome(runCtx, notifier, outcome, logger)
		if opts.reveal && outcome.Status == conversion.StatusCompleted {
			if err := openInDesktop(filepath.Dir(outcome.OutputPath)); err != nil {
				logger.Warn("reveal output failed", logging.Error(err))
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderOutcomeTable(outcomes))

	completed, failed, cancelled := tally(outcomes)
	if len(args) > 1 {
		if err := notifier.NotifyBatchCompleted(context.WithoutCancel(runCtx), completed, failed, time.Since(started)); err != nil {
			logger.Warn("batch notification failed", logging.Error(err))
		}
	}

	switch {
	case runCtx.Err() != nil || cancelled > 0:
		return context.Canceled
	case failed > 0:
		return fmt.Errorf("%d of %d conversions failed", failed, len(args))
	}
	return nil
}

// requestTemplate resolves --output/--output-dir against config defaults.
func requestTemplate(cfg *config.Config, opts *convertOptions) (conversion.Request, error) {
	var req conversion.Request
	if value := strings.TrimSpace(opts.output); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return req, fmt.Errorf("resolve --output: %w", err)
		}
		req.OutputPath = expanded
	}
	req.OutputDir = cfg.Paths.OutputDir
	if value := strings.TrimSpace(opts.outputDir); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return req, fmt.Errorf("resolve --output-dir: %w", err)
		}
		req.OutputDir = expanded
	}
	return req, nil
}

func printUsage(out io.Writer) {
	exts := conversion.SupportedExtensions()
	upper := make([]string, len(exts))
	for i, ext := range exts {
		upper[i] = strings.ToUpper(strings.TrimPrefix(ext, "."))
	}
	fmt.Fprintln(out, "HDR Video Converter")
	fmt.Fprintln(out, "  Usage: hdrconv <file>... (or drop video files onto the executable)")
	fmt.Fprintln(out, "         hdrconv serve      start the browser front end")
	fmt.Fprintf(out, "  Supported: %s\n", strings.Join(upper, ", "))
}

func notifyOutcome(ctx context.Context, notifier notifications.Service, outcome conversion.Outcome, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	var err error
	switch outcome.Status {
	case conversion.StatusCompleted:
		err = notifier.NotifyConversionCompleted(ctx, outcome.OutputPath, fileutil.FileSize(outcome.OutputPath), outcome.Elapsed)
	case conversion.StatusFailed:
		err = notifier.NotifyConversionFailed(ctx, outcome.InputPath, string(outcome.Kind), outcome.Detail)
	}
	if err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}
}

// openHistory returns nil when the database cannot be opened; conversions
// still run without it.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "conversion history disabled", "history_unavailable", logging.Error(err))
		return nil
	}
	return store
}

func closeHistory(store *history.Store, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Warn("failed to close history", logging.Error(err))
	}
}

func recordOutcome(ctx context.Context, store *history.Store, outcome conversion.Outcome, logger *slog.Logger) {
	if store == nil {
		return
	}
	if _, err := store.Record(context.WithoutCancel(ctx), history.FromOutcome(history.OriginCLI, outcome)); err != nil {
		logger.Warn("failed to record history", logging.Error(err))
	}
}

func tally(outcomes []conversion.Outcome) (completed, failed, cancelled int) {
	for _, outcome := range outcomes {
		switch outcome.Status {
		case conversion.StatusCompleted:
			completed++
		case conversion.StatusCancelled:
			cancelled++
		default:
			failed++
		}
	}
	return completed, failed, cancelled
}

func outcomeLabel(outcome conversion.Outcome) string {
	if outcome.Kind == conversion.KindNone {
		return textutil.Label(string(outcome.Status))
	}
	return textutil.Label(string(outcome.Kind))
}

func renderOutcomeTable(outcomes []conversion.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		output := "-"
		size := "-"
		if outcome.Status == conversion.StatusCompleted {
			output = outcome.OutputPath
			size = humanize.Bytes(uint64(fileutil.FileSize(outcome.OutputPath)))
		}
		rows = append(rows, []string{
			filepath.Base(outcome.InputPath),
			outcomeLabel(outcome),
			output,
			size,
			outcome.Elapsed.Round(time.Second).String(),
		})
	}
	return renderTable([]column{
		col("File"), col("Result"), col("Output"), num("Size"), num("Time"),
	}, rows)
}

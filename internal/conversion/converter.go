package conversion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"hdrconv/internal/deps"
	"hdrconv/internal/fileutil"
	"hdrconv/internal/logging"
	"hdrconv/internal/media/ffprobe"
)

// DefaultTerminateGrace is how long a cancelled encoder may take to exit
// before it is killed.
const DefaultTerminateGrace = 5 * time.Second

var commandContext = exec.CommandContext

// probeDuration is the duration prober used when no WithProbe option is set.
var probeDuration = ffprobe.ProbeDuration

// Outcome is the single result of a Convert call.
type Outcome struct {
	Status     Status        `json:"status"`
	InputPath  string        `json:"input_path"`
	OutputPath string        `json:"output_path,omitempty"`
	Kind       Kind          `json:"kind,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	ExitCode   int           `json:"exit_code,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	// SourceSeconds is the probed input duration, 0 when unknown.
	SourceSeconds float64 `json:"source_seconds,omitempty"`
}

// Err returns nil for a completed conversion and otherwise an error matching
// the Kind's sentinel with errors.Is.
func (o Outcome) Err() error {
	if o.Status == StatusCompleted {
		return nil
	}
	marker := o.Kind.Marker()
	if marker == nil {
		marker = ErrEncoder
	}
	if o.Detail == "" {
		return marker
	}
	return fmt.Errorf("%w: %s", marker, o.Detail)
}

// Option configures a Converter.
type Option func(*Converter)

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Converter) {
		c.progress = fn
	}
}

// WithLogger sets the logger used for conversion events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProbe overrides the duration prober.
func WithProbe(fn func(ctx context.Context, binary, path string, timeout time.Duration) (float64, bool)) Option {
	return func(c *Converter) {
		if fn != nil {
			c.probe = fn
		}
	}
}

// WithProbeTimeout bounds the duration probe.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(c *Converter) {
		if timeout > 0 {
			c.probeTimeout = timeout
		}
	}
}

// WithTerminateGrace sets how long a cancelled encoder may run before it is killed.
func WithTerminateGrace(grace time.Duration) Option {
	return func(c *Converter) {
		if grace > 0 {
			c.grace = grace
		}
	}
}

// Converter runs one conversion at a time. Callers serialize Convert calls
// or use one Converter per job; Cancel is safe from any goroutine.
type Converter struct {
	tools        deps.Tools
	progress     ProgressFunc
	logger       *slog.Logger
	probe        func(ctx context.Context, binary, path string, timeout time.Duration) (float64, bool)
	probeTimeout time.Duration
	grace        time.Duration

	cancelled atomic.Bool
	mu        sync.Mutex
	job       *encoderJob
}

// encoderJob is the live state of the conversion in flight. Cancelling it
// terminates the encoder through its command context.
type encoderJob struct {
	cancel context.CancelFunc
}

// New constructs a Converter for the resolved tools.
func New(tools deps.Tools, opts ...Option) *Converter {
	c := &Converter{
		tools:        tools,
		logger:       logging.NewNop(),
		probeTimeout: ffprobe.DefaultProbeTimeout,
		grace:        DefaultTerminateGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.probe == nil {
		c.probe = probeDuration
	}
	return c
}

// Cancel stops the conversion in flight. It is idempotent and does nothing
// when no conversion is running.
func (c *Converter) Cancel() {
	c.cancelled.Store(true)
	c.mu.Lock()
	job := c.job
	c.mu.Unlock()
	if job != nil {
		job.cancel()
	}
}

// Convert runs the conversion described by req and blocks until it reaches a
// terminal state. Cancelling ctx has the same effect as Cancel.
func (c *Converter) Convert(ctx context.Context, req Request) Outcome {
	c.cancelled.Store(false)
	started := time.Now()
	ctx = logging.WithInput(ctx, req.InputPath)
	logger := logging.WithContext(ctx, c.logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.setJob(&encoderJob{cancel: cancel})
	defer c.setJob(nil)

	outcome := c.run(runCtx, logger, req)
	outcome.InputPath = req.InputPath
	outcome.Elapsed = time.Since(started)
	c.logOutcome(logger, outcome)
	return outcome
}

func (c *Converter) run(ctx context.Context, logger *slog.Logger, req Request) Outcome {
	if strings.TrimSpace(c.tools.Encoder) == "" {
		return failure(KindToolNotFound, fmt.Sprintf("ffmpeg not found\n%s", deps.InstallGuidance), 0)
	}
	if err := Validate(req.InputPath); err != nil {
		return failure(KindInvalidInput, detailOf(err), 0)
	}
	outputPath, err := ResolveOutputPath(req)
	if err != nil {
		return failure(KindInvalidInput, detailOf(err), 0)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return failure(KindInvalidInput, fmt.Sprintf("create output directory: %v", err), 0)
	}

	var duration float64
	if c.tools.Prober != "" {
		if seconds, ok := c.probe(ctx, c.tools.Prober, req.InputPath, c.probeTimeout); ok {
			duration = seconds
		}
	}
	if c.isCancelled(ctx) {
		return Outcome{Status: StatusCancelled, Kind: KindCancelled, Detail: "Conversion cancelled"}
	}

	args := BuildArgs(req.InputPath, outputPath)
	logger.Info("conversion started",
		logging.String("output", outputPath),
		logging.Float64("source_seconds", duration),
		logging.String("command", c.tools.Encoder+" "+strings.Join(args, " ")),
	)
	c.report(0, MessageStarting)

	outcome := c.supervise(ctx, logger, args, outputPath, duration)
	outcome.SourceSeconds = duration
	return outcome
}

func (c *Converter) supervise(ctx context.Context, logger *slog.Logger, args []string, outputPath string, duration float64) Outcome {
	cmd := commandContext(ctx, c.tools.Encoder, args...) //nolint:gosec
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = c.grace
	stderr := newTailBuffer(stderrTailLimit)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failure(KindEncoderError, fmt.Sprintf("stdout pipe: %v", err), -1)
	}
	if err := cmd.Start(); err != nil {
		if c.isCancelled(ctx) {
			return Outcome{Status: StatusCancelled, Kind: KindCancelled, Detail: "Conversion cancelled"}
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return failure(KindToolNotFound, fmt.Sprintf("ffmpeg not found at %s\n%s", c.tools.Encoder, deps.InstallGuidance), 0)
		}
		return failure(KindEncoderError, fmt.Sprintf("start ffmpeg: %v", err), -1)
	}

	parser := progressParser{duration: duration}
	sampler := logging.NewProgressSampler(5)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if c.isCancelled(ctx) {
			// Drain until the encoder exits.
			continue
		}
		update, ok := parser.parse(scanner.Text())
		if !ok {
			continue
		}
		c.report(update.Percent, update.Message)
		if shouldLogProgress(sampler, update, duration > 0) {
			logger.Debug("conversion progress",
				logging.Float64("percent", update.Percent),
				logging.Float64("media_seconds", update.seconds),
				logging.String("message", update.Message),
			)
		}
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	if c.isCancelled(ctx) {
		if err := fileutil.RemoveIfExists(outputPath); err != nil {
			logging.WarnWithContext(logger, "failed to remove partial output", "cleanup_failed",
				logging.String("output", outputPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the partial file manually"),
			)
		}
		return Outcome{Status: StatusCancelled, Kind: KindCancelled, Detail: "Conversion cancelled"}
	}

	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		detail := fmt.Sprintf("ffmpeg exited with code %d", exitCode)
		if tail := stderr.String(); tail != "" {
			detail += ":\n" + tail
		} else {
			detail += ": " + waitErr.Error()
		}
		return failure(KindEncoderError, detail, exitCode)
	}
	if scanErr != nil {
		return failure(KindEncoderError, fmt.Sprintf("read ffmpeg progress: %v", scanErr), 0)
	}

	if fileutil.FileSize(outputPath) <= 0 {
		return failure(KindOutputMissing, "conversion failed: output file not created", 0)
	}

	c.report(100, MessageDone)
	return Outcome{Status: StatusCompleted, OutputPath: outputPath}
}

func (c *Converter) report(percent float64, message string) {
	if c.progress != nil {
		c.progress(clampPercent(percent), message)
	}
}

func shouldLogProgress(sampler *logging.ProgressSampler, update progressUpdate, determinate bool) bool {
	if determinate || update.seconds < 0 {
		return sampler.ShouldLog(update.Percent, update.phase)
	}
	return sampler.ShouldLogElapsed(update.seconds, update.phase)
}

func (c *Converter) logOutcome(logger *slog.Logger, outcome Outcome) {
	attrs := []logging.Attr{
		logging.String("status", string(outcome.Status)),
		logging.Duration("elapsed", outcome.Elapsed),
	}
	switch outcome.Status {
	case StatusCompleted:
		logger.Info("conversion completed", logging.Args(append(attrs, logging.String("output", outcome.OutputPath))...)...)
	case StatusCancelled:
		logger.Info("conversion cancelled", logging.Args(attrs...)...)
	default:
		attrs = append(attrs,
			logging.String("kind", string(outcome.Kind)),
			logging.String("detail", outcome.Detail),
		)
		if outcome.Kind == KindEncoderError {
			attrs = append(attrs, logging.Int("exit_code", outcome.ExitCode))
		}
		logging.ErrorWithContext(logger, "conversion failed", string(outcome.Kind), attrs...)
	}
}

func (c *Converter) isCancelled(ctx context.Context) bool {
	return c.cancelled.Load() || ctx.Err() != nil
}

func (c *Converter) setJob(job *encoderJob) {
	c.mu.Lock()
	c.job = job
	c.mu.Unlock()
}

func failure(kind Kind, detail string, exitCode int) Outcome {
	return Outcome{Status: StatusFailed, Kind: kind, Detail: detail, ExitCode: exitCode}
}

// detailOf strips the sentinel prefix from errors built by wrap.
func detailOf(err error) string {
	text := err.Error()
	if marker := KindOf(err).Marker(); marker != nil {
		text = strings.TrimPrefix(text, marker.Error()+": ")
	}
	return text
}

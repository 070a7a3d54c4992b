package dualmode

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/cognitive/internal/logger"
	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/provider"
)

// Logger is the logging surface the dispatcher uses.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogResult(result *models.ProcessResult)
}

// Recorder persists a summary of every envelope the dispatcher returns.
type Recorder interface {
	Record(ctx context.Context, rec models.RunRecord) error
}

// Dispatcher selects a mode and runs its pipeline against a processor.
// It is safe for concurrent Process calls as long as they do not share an
// output directory with conflicting expectations; IDE writes are serialized
// by a directory lock.
type Dispatcher struct {
	name      string
	processor interface{}
	caps      Capabilities
	cfg       Config
	env       Environment
	registry  *provider.Registry
	logger    Logger
	out       io.Writer
	recorder  Recorder
	clock     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEnvironment sets the environment snapshot used for mode detection and
// provider key lookup. Without it the dispatcher sees an empty environment.
func WithEnvironment(env Environment) Option {
	return func(d *Dispatcher) {
		d.env = env
	}
}

// WithRegistry replaces the default provider registry.
func WithRegistry(r *provider.Registry) Option {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithOutput sets the writer that receives the CI summary line (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(d *Dispatcher) {
		d.out = w
	}
}

// WithRecorder sets the run recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

// New creates a Dispatcher. A non-empty name overrides cfg.ToolName.
// The processor's capabilities are captured once here.
func New(name string, processor interface{}, cfg Config, opts ...Option) *Dispatcher {
	if name != "" {
		cfg.ToolName = name
	}
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		name:      cfg.ToolName,
		processor: processor,
		caps:      CapabilitiesOf(processor),
		cfg:       cfg,
		env:       Environment{},
		registry:  provider.DefaultRegistry(),
		logger:    logger.NewNoOpLogger(),
		out:       os.Stdout,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.env == nil {
		d.env = Environment{}
	}
	if d.logger == nil {
		d.logger = logger.NewNoOpLogger()
	}
	return d
}

// Name returns the tool name.
func (d *Dispatcher) Name() string {
	return d.name
}

// Config returns a copy of the dispatcher configuration.
func (d *Dispatcher) Config() Config {
	return d.cfg.withDefaults()
}

// Mode returns the mode Process would run in.
func (d *Dispatcher) Mode() (models.Mode, error) {
	return DetectMode(d.cfg, d.env)
}

// Process runs the pipeline for the detected mode.
//
// Fatal conditions (no processor, unknown mode, missing capability, missing
// API key, invalid IDE output, write failures) are returned as errors with a
// nil envelope. Recoverable API failures return an envelope with
// Status == error and a nil error, so callers must check Status.
func (d *Dispatcher) Process(ctx context.Context, data interface{}) (*models.ProcessResult, error) {
	if d.processor == nil {
		return nil, ErrNoProcessor
	}

	mode, err := d.Mode()
	if err != nil {
		return nil, err
	}
	if err := d.caps.Validate(mode); err != nil {
		return nil, err
	}

	d.logger.LogDebug(fmt.Sprintf("%s: running in %s mode", d.name, mode))

	start := d.clock()
	var result *models.ProcessResult
	switch mode {
	case models.ModeIDE:
		h := &ideHandler{cfg: d.cfg, clock: d.clock}
		result, err = h.run(ctx, d.caps.IDE, data)
	case models.ModeAPI:
		h := &apiHandler{cfg: d.cfg, env: d.env, registry: d.registry, logger: d.logger, clock: d.clock}
		result, err = h.run(ctx, d.caps.Prepare, d.caps.Respond, data)
	case models.ModeCI:
		h := &ciHandler{cfg: d.cfg, out: d.out, clock: d.clock}
		result, err = h.run(ctx, d.caps.CI, d.caps.IDE, data)
	}
	if err != nil {
		return nil, err
	}

	d.logger.LogResult(result)
	d.record(ctx, result, d.clock().Sub(start))

	return result, nil
}

func (d *Dispatcher) record(ctx context.Context, result *models.ProcessResult, elapsed time.Duration) {
	if d.recorder == nil {
		return
	}

	rec := models.RunRecord{
		Tool:      d.name,
		Mode:      result.Mode,
		Status:    result.Status,
		Error:     result.Error,
		Duration:  elapsed,
		Timestamp: d.clock(),
	}
	if id, ok := result.Metadata["runId"].(string); ok && id != "" {
		rec.RunID = id
	} else {
		rec.RunID = uuid.New().String()
	}
	if result.Mode == models.ModeAPI {
		rec.Provider = d.cfg.Provider
		if name, ok := result.Metadata["provider"].(string); ok && name != "" {
			rec.Provider = name
		}
	}

	if err := d.recorder.Record(ctx, rec); err != nil {
		d.logger.LogWarn(fmt.Sprintf("failed to record run: %v", err))
	}
}

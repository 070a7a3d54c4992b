package dualmode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/cognitive/internal/logger"
	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/provider"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func validIDE() *ideOnly {
	return &ideOnly{analysis: &IDEAnalysis{
		Context:  map[string]interface{}{"summary": "3 tests run, 1 failure", "coverage": 81.5},
		Analysis: "# Test Results\n\n- Failed: 1\n",
		Prompts:  "- \"Fix the failing test\"",
		Metadata: map[string]interface{}{"source": "unit"},
	}}
}

func TestProcessNoProcessor(t *testing.T) {
	d := New("Tool", nil, DefaultConfig())
	_, err := d.Process(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoProcessor))
}

func TestMissingCapability(t *testing.T) {
	tests := []struct {
		name      string
		mode      models.Mode
		processor interface{}
		method    string
	}{
		{name: "ide needs AnalyzeForIDE", mode: models.ModeIDE, processor: &ciOnly{}, method: "AnalyzeForIDE"},
		{name: "api needs PrepareForAPI", mode: models.ModeAPI, processor: validIDE(), method: "PrepareForAPI"},
		{name: "api needs ProcessAIResponse", mode: models.ModeAPI, processor: prepareOnly{}, method: "ProcessAIResponse"},
		{name: "ci needs CI or IDE", mode: models.ModeCI, processor: &apiOnly{}, method: "AnalyzeForCI or AnalyzeForIDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			f := &fakeProvider{}
			cfg := DefaultConfig()
			cfg.Mode = tt.mode
			cfg.OutputDir = dir
			cfg.Provider = "fake"
			cfg.APIKey = "k"

			d := New("Tool", tt.processor, cfg, WithRegistry(fakeRegistry(f, true)), WithOutput(&bytes.Buffer{}))
			result, err := d.Process(context.Background(), "data")

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrMissingCapability))
			assert.Contains(t, err.Error(), tt.method)

			var capErr *MissingCapabilityError
			require.True(t, errors.As(err, &capErr))
			assert.Equal(t, tt.mode, capErr.Mode)

			assert.NoDirExists(t, dir, "no side effects before validation")
			assert.Zero(t, f.callCount())
		})
	}
}

func TestIDEMode(t *testing.T) {
	t.Run("writes context file set", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), ".ai")
		cfg := DefaultConfig()
		cfg.Mode = models.ModeIDE
		cfg.OutputDir = dir

		d := New("Test Analyzer", validIDE(), cfg, WithClock(fixedClock))
		result, err := d.Process(context.Background(), []string{"a"})
		require.NoError(t, err)

		assert.Equal(t, models.ModeIDE, result.Mode)
		assert.Equal(t, models.StatusSuccess, result.Status)

		out, ok := result.Result.(models.IDEOutput)
		require.True(t, ok)
		assert.Equal(t, []string{
			filepath.Join(dir, ContextFile),
			filepath.Join(dir, AnalysisFile),
			filepath.Join(dir, PromptsFile),
			filepath.Join(dir, CopilotInstructionsFile),
			filepath.Join(dir, CursorRulesFile),
		}, out.Files)
		assert.Contains(t, out.Instructions, "AI Context Files Generated Successfully")
		for _, f := range out.Files {
			assert.FileExists(t, f)
		}

		prompts, err := os.ReadFile(filepath.Join(dir, PromptsFile))
		require.NoError(t, err)
		assert.Contains(t, string(prompts), "# AI Assistant Prompts")
		assert.Contains(t, string(prompts), "Fix the failing test")

		analysis, err := os.ReadFile(filepath.Join(dir, AnalysisFile))
		require.NoError(t, err)
		assert.Equal(t, "# Test Results\n\n- Failed: 1\n", string(analysis))
	})

	t.Run("context.json round trips", func(t *testing.T) {
		dir := t.TempDir()
		cfg := DefaultConfig()
		cfg.Mode = models.ModeIDE
		cfg.OutputDir = dir

		_, err := New("Round Trip", validIDE(), cfg).Process(context.Background(), nil)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, ContextFile))
		require.NoError(t, err)

		var doc struct {
			Tool      string                 `json:"tool"`
			Version   string                 `json:"version"`
			Timestamp string                 `json:"timestamp"`
			Context   map[string]interface{} `json:"context"`
			Metadata  map[string]interface{} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))

		assert.Equal(t, "Round Trip", doc.Tool)
		assert.Equal(t, "1.0.0", doc.Version)
		assert.Equal(t, validIDE().analysis.Context, doc.Context)
		assert.Equal(t, "unit", doc.Metadata["source"])
		_, err = time.Parse(time.RFC3339, doc.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("without IDE-specific files", func(t *testing.T) {
		dir := t.TempDir()
		cfg := DefaultConfig()
		cfg.Mode = models.ModeIDE
		cfg.OutputDir = dir
		cfg.IncludeIDESpecific = false

		result, err := New("Tool", validIDE(), cfg).Process(context.Background(), nil)
		require.NoError(t, err)
		assert.Len(t, result.Result.(models.IDEOutput).Files, 3)
		assert.NoFileExists(t, filepath.Join(dir, CursorRulesFile))
	})

	t.Run("invalid output is fatal", func(t *testing.T) {
		tests := []struct {
			name     string
			analysis *IDEAnalysis
			message  string
		}{
			{name: "nil result", analysis: nil, message: "processor must return a context object"},
			{name: "nil context", analysis: &IDEAnalysis{Analysis: "x"}, message: "processor must return a context object"},
			{name: "empty analysis", analysis: &IDEAnalysis{Context: map[string]interface{}{}, Analysis: "  "}, message: "processor must return an analysis string"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dir := filepath.Join(t.TempDir(), "out")
				cfg := DefaultConfig()
				cfg.Mode = models.ModeIDE
				cfg.OutputDir = dir

				_, err := New("Tool", &ideOnly{analysis: tt.analysis}, cfg).Process(context.Background(), nil)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidOutput))
				assert.Contains(t, err.Error(), tt.message)
				assert.NoDirExists(t, dir)
			})
		}
	})

	t.Run("analyzer error is returned", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = models.ModeIDE
		cfg.OutputDir = t.TempDir()

		_, err := New("Tool", &ideOnly{err: errBoom}, cfg).Process(context.Background(), nil)
		assert.True(t, errors.Is(err, errBoom))
	})

	t.Run("concurrent runs share a directory", func(t *testing.T) {
		dir := t.TempDir()
		cfg := DefaultConfig()
		cfg.Mode = models.ModeIDE
		cfg.OutputDir = dir
		d := New("Tool", validIDE(), cfg)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := d.Process(context.Background(), nil)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		data, err := os.ReadFile(filepath.Join(dir, ContextFile))
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})
}

func apiConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = models.ModeAPI
	cfg.Provider = "fake"
	return cfg
}

func messages() *provider.Request {
	return &provider.Request{Messages: []provider.Message{
		{Role: provider.RoleSystem, Content: "You are a test automation expert."},
		{Role: provider.RoleUser, Content: "Analyze"},
	}}
}

func TestAPIMode(t *testing.T) {
	t.Run("missing key fails before any call", func(t *testing.T) {
		f := &fakeProvider{content: "never"}
		p := &apiOnly{request: messages()}

		d := New("Tool", p, apiConfig(), WithRegistry(fakeRegistry(f, true)))
		result, err := d.Process(context.Background(), nil)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.Contains(t, err.Error(), "API key required")
		assert.Zero(t, f.callCount())
	})

	t.Run("key from environment", func(t *testing.T) {
		f := &fakeProvider{content: `{"tests":[]}`}
		p := &apiOnly{request: messages()}

		d := New("Tool", p, apiConfig(),
			WithRegistry(fakeRegistry(f, true)),
			WithEnvironment(Environment{"FAKE_API_KEY": "secret"}),
		)
		result, err := d.Process(context.Background(), "input")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccess, result.Status)
		assert.Equal(t, 1, f.callCount())
	})

	t.Run("success envelope", func(t *testing.T) {
		f := &fakeProvider{content: "answer"}
		p := &apiOnly{request: messages()}
		cfg := apiConfig()
		cfg.APIKey = "k"
		cfg.Model = "fake-large"
		cfg.APIOptions = map[string]interface{}{"seed": 7}

		d := New("Tool", p, cfg, WithRegistry(fakeRegistry(f, true)), WithClock(fixedClock))
		result, err := d.Process(context.Background(), "input")
		require.NoError(t, err)

		assert.Equal(t, models.ModeAPI, result.Mode)
		assert.Equal(t, models.StatusSuccess, result.Status)
		assert.Equal(t, map[string]interface{}{"answer": "answer", "input": "input"}, result.Result)
		assert.Equal(t, "fake", result.Metadata["provider"])
		assert.Equal(t, "fake-large", result.Metadata["model"])
		assert.Equal(t, int64(0), result.Metadata["durationMs"])
		assert.Equal(t, "2024-01-02T03:04:05Z", result.Metadata["timestamp"])
		assert.NotEmpty(t, result.Metadata["runId"])

		require.Len(t, f.requests, 1)
		assert.Equal(t, 7, f.requests[0].Options["seed"])
		assert.Equal(t, "answer", p.seen.Content)
	})

	t.Run("soft failures", func(t *testing.T) {
		tests := []struct {
			name      string
			processor *apiOnly
			provider  *fakeProvider
			provName  string
			message   string
			calls     int
		}{
			{
				name:      "nil request",
				processor: &apiOnly{},
				provider:  &fakeProvider{},
				message:   "PrepareForAPI must return a request with a messages array",
			},
			{
				name:      "empty messages",
				processor: &apiOnly{request: &provider.Request{}},
				provider:  &fakeProvider{},
				message:   "messages array cannot be empty",
			},
			{
				name:      "prepare error",
				processor: &apiOnly{prepareErr: errBoom},
				provider:  &fakeProvider{},
				message:   "PrepareForAPI failed: boom",
			},
			{
				name:      "provider error",
				processor: &apiOnly{request: messages()},
				provider:  &fakeProvider{err: errors.New("rate limited")},
				message:   "provider failure: rate limited",
				calls:     1,
			},
			{
				name:      "unknown provider",
				processor: &apiOnly{request: messages()},
				provider:  &fakeProvider{},
				provName:  "nonexistent",
				message:   "unknown provider",
			},
			{
				name:      "response processing error",
				processor: &apiOnly{request: messages(), respondErr: errBoom},
				provider:  &fakeProvider{content: "not json"},
				message:   "ProcessAIResponse failed: boom",
				calls:     1,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := apiConfig()
				cfg.APIKey = "k"
				if tt.provName != "" {
					cfg.Provider = tt.provName
				}

				d := New("Tool", tt.processor, cfg, WithRegistry(fakeRegistry(tt.provider, true)))
				result, err := d.Process(context.Background(), nil)

				require.NoError(t, err, "soft failures never propagate")
				require.NotNil(t, result)
				assert.Equal(t, models.StatusError, result.Status)
				assert.Equal(t, models.ModeAPI, result.Mode)
				assert.Contains(t, result.Error, tt.message)
				assert.Nil(t, result.Result)
				assert.NotEmpty(t, result.Metadata["runId"])
				assert.Equal(t, tt.calls, tt.provider.callCount())
			})
		}
	})

	t.Run("falls back to the provider whose key is set", func(t *testing.T) {
		alpha := &fakeProvider{content: "alpha"}
		beta := &fakeProvider{content: "beta"}
		r := provider.NewRegistry()
		for name, f := range map[string]*fakeProvider{"alpha": alpha, "beta": beta} {
			f := f
			r.Register(name, provider.Spec{
				Factory:     func(ctx context.Context, s provider.Settings) (provider.Provider, error) { return f, nil },
				EnvKeys:     []string{strings.ToUpper(name) + "_API_KEY"},
				RequiresKey: true,
			})
		}
		rec := &memRecorder{}
		cfg := apiConfig()
		cfg.Provider = "alpha"
		cfg.Model = "alpha-large"

		d := New("Tool", &apiOnly{request: messages()}, cfg,
			WithRegistry(r),
			WithRecorder(rec),
			WithEnvironment(Environment{"BETA_API_KEY": "k"}),
		)
		result, err := d.Process(context.Background(), nil)
		require.NoError(t, err)

		assert.True(t, result.OK())
		assert.Equal(t, "beta", result.Metadata["provider"])
		assert.Zero(t, alpha.callCount())
		require.Equal(t, 1, beta.callCount())
		assert.Empty(t, beta.requests[0].Model)
		require.Len(t, rec.records, 1)
		assert.Equal(t, "beta", rec.records[0].Provider)
	})

	t.Run("default registry resolves a gemini-only environment", func(t *testing.T) {
		env := Environment{"GEMINI_API_KEY": "k"}
		mode, err := DetectMode(DefaultConfig(), env)
		require.NoError(t, err)
		require.Equal(t, models.ModeAPI, mode)

		h := &apiHandler{cfg: DefaultConfig(), env: env, registry: provider.DefaultRegistry(), logger: logger.NewNoOpLogger(), clock: fixedClock}
		key, err := h.checkKey()
		require.NoError(t, err)
		assert.Equal(t, "k", key)
		assert.Equal(t, "gemini", h.cfg.Provider)
	})

	t.Run("provider without key requirement", func(t *testing.T) {
		f := &fakeProvider{content: "ok"}
		d := New("Tool", &apiOnly{request: messages()}, apiConfig(), WithRegistry(fakeRegistry(f, false)))

		result, err := d.Process(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, result.OK())
	})
}

func TestCIMode(t *testing.T) {
	ciConfig := func() Config {
		cfg := DefaultConfig()
		cfg.Mode = models.ModeCI
		return cfg
	}

	t.Run("pass and fail by severity", func(t *testing.T) {
		tests := []struct {
			name   string
			issues []interface{}
			passed bool
		}{
			{name: "warning passes", issues: []interface{}{map[string]interface{}{"severity": "warning", "message": "slow"}}, passed: true},
			{name: "critical fails", issues: []interface{}{map[string]interface{}{"severity": "critical", "message": "broken"}}, passed: false},
			{name: "error fails", issues: []interface{}{map[string]interface{}{"severity": "ERROR", "message": "x"}}, passed: false},
			{name: "no issues passes", issues: nil, passed: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ctxMap := map[string]interface{}{"summary": "checked"}
				if tt.issues != nil {
					ctxMap["issues"] = tt.issues
				}
				p := &ideOnly{analysis: &IDEAnalysis{Context: ctxMap, Analysis: "analysis"}}
				out := &bytes.Buffer{}

				result, err := New("Checker", p, ciConfig(), WithOutput(out)).Process(context.Background(), nil)
				require.NoError(t, err)

				report, ok := result.Result.(*models.CIReport)
				require.True(t, ok)
				assert.Equal(t, tt.passed, report.Passed)
				assert.Equal(t, "Checker", report.Tool)
				assert.Equal(t, models.ModeCI, report.Mode)
				assert.Equal(t, "checked", report.Summary)
				assert.Len(t, report.Issues, len(tt.issues))

				if tt.passed {
					assert.Contains(t, out.String(), "CI PASSED")
				} else {
					assert.Contains(t, out.String(), "CI FAILED")
				}
				assert.Contains(t, out.String(), "[Checker]")
				assert.Contains(t, out.String(), "checked (")
			})
		}
	})

	t.Run("prefers AnalyzeForCI", func(t *testing.T) {
		p := struct {
			*ideOnly
			*ciOnly
		}{
			ideOnly: &ideOnly{err: errBoom},
			ciOnly: &ciOnly{analysis: &CIAnalysis{
				Summary: "direct",
				Issues:  []models.Issue{{Severity: "info", Message: "fyi"}},
				Metrics: map[string]interface{}{"total": 3},
			}},
		}

		result, err := New("Tool", p, ciConfig(), WithOutput(&bytes.Buffer{})).Process(context.Background(), nil)
		require.NoError(t, err)

		report := result.Result.(*models.CIReport)
		assert.Equal(t, "direct", report.Summary)
		assert.True(t, report.Passed)
		assert.Equal(t, 3, report.Metrics["total"])
	})

	t.Run("summary falls back to first analysis line", func(t *testing.T) {
		p := &ideOnly{analysis: &IDEAnalysis{
			Context:  map[string]interface{}{"metrics": map[string]int{"total": 2}},
			Analysis: "\n\n# Coverage Report\nbody",
		}}

		result, err := New("Tool", p, ciConfig(), WithOutput(&bytes.Buffer{})).Process(context.Background(), nil)
		require.NoError(t, err)

		report := result.Result.(*models.CIReport)
		assert.Equal(t, "Coverage Report", report.Summary)
		assert.Equal(t, float64(2), report.Metrics["total"])
		assert.NotNil(t, report.Issues)
	})

	t.Run("custom fail severities", func(t *testing.T) {
		cfg := ciConfig()
		cfg.FailOnSeverities = []string{"warning"}
		p := &ciOnly{analysis: &CIAnalysis{Issues: []models.Issue{{Severity: "warning"}}}}

		result, err := New("Tool", p, cfg, WithOutput(&bytes.Buffer{})).Process(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, result.Result.(*models.CIReport).Passed)
	})

	t.Run("saves report", func(t *testing.T) {
		cfg := ciConfig()
		cfg.SaveToFile = true
		cfg.OutputFile = filepath.Join(t.TempDir(), "reports", "ci.json")
		p := &ciOnly{analysis: &CIAnalysis{Summary: "s", Issues: []models.Issue{{Severity: "critical", Message: "m"}}}}

		result, err := New("Tool", p, cfg, WithOutput(&bytes.Buffer{})).Process(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, cfg.OutputFile, result.Metadata["outputFile"])

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)

		var saved map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &saved))
		for _, key := range []string{"mode", "status", "tool", "summary", "issues", "metrics", "passed"} {
			assert.Contains(t, saved, key)
		}
		assert.Equal(t, false, saved["passed"])
		assert.Equal(t, "ci", saved["mode"])
	})

	t.Run("invalid fallback output", func(t *testing.T) {
		_, err := New("Tool", &ideOnly{analysis: &IDEAnalysis{}}, ciConfig(), WithOutput(&bytes.Buffer{})).Process(context.Background(), nil)
		assert.True(t, errors.Is(err, ErrInvalidOutput))
	})

	t.Run("malformed issue does not hide a critical one", func(t *testing.T) {
		p := &ideOnly{analysis: &IDEAnalysis{
			Context: map[string]interface{}{
				"summary": "s",
				"issues": []interface{}{
					map[string]interface{}{"severity": "critical", "message": "bad", "line": 12},
					map[string]interface{}{"severity": "warning", "file": 3},
					"not an object",
				},
			},
			Analysis: "analysis",
		}}
		out := &bytes.Buffer{}

		result, err := New("t", p, ciConfig(), WithOutput(out)).Process(context.Background(), nil)
		require.NoError(t, err)

		report := result.Result.(*models.CIReport)
		assert.False(t, report.Passed)
		require.Len(t, report.Issues, 2)
		assert.Equal(t, models.Issue{Severity: "critical", Message: "bad"}, report.Issues[0])
		assert.Equal(t, models.Issue{Severity: "warning", File: "3"}, report.Issues[1])
		assert.Equal(t, "[t] CI FAILED: s (2 issues)\n", out.String())
	})

	t.Run("typed issue maps", func(t *testing.T) {
		p := &ideOnly{analysis: &IDEAnalysis{
			Context: map[string]interface{}{
				"issues": []map[string]interface{}{{"severity": "error", "message": "m", "test": "TestX"}},
			},
			Analysis: "analysis",
		}}

		result, err := New("t", p, ciConfig(), WithOutput(&bytes.Buffer{})).Process(context.Background(), nil)
		require.NoError(t, err)

		report := result.Result.(*models.CIReport)
		assert.False(t, report.Passed)
		assert.Equal(t, []models.Issue{{Severity: "error", Message: "m", Test: "TestX"}}, report.Issues)
	})

	t.Run("no color codes for non-terminal output", func(t *testing.T) {
		prev := color.NoColor
		color.NoColor = false
		defer func() { color.NoColor = prev }()

		p := &ciOnly{analysis: &CIAnalysis{Summary: "s"}}
		out := &bytes.Buffer{}
		_, err := New("t", p, ciConfig(), WithOutput(out)).Process(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, "[t] CI PASSED: s (0 issues)\n", out.String())
		assert.NotContains(t, out.String(), "\x1b[")
	})
}

func TestCapabilitiesValue(t *testing.T) {
	caps := Capabilities{IDE: validIDE()}
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Mode = models.ModeIDE
	cfg.OutputDir = dir

	result, err := New("Tool", caps, cfg).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.OK())

	assert.Error(t, caps.Validate(models.ModeAPI))
	assert.NoError(t, caps.Validate(models.ModeCI))
}

func TestRecorder(t *testing.T) {
	t.Run("records each envelope", func(t *testing.T) {
		rec := &memRecorder{}
		f := &fakeProvider{err: errBoom}
		cfg := apiConfig()
		cfg.APIKey = "k"

		d := New("Tool", &apiOnly{request: messages()}, cfg, WithRegistry(fakeRegistry(f, true)), WithRecorder(rec))
		result, err := d.Process(context.Background(), nil)
		require.NoError(t, err)

		require.Len(t, rec.records, 1)
		got := rec.records[0]
		assert.Equal(t, "Tool", got.Tool)
		assert.Equal(t, models.ModeAPI, got.Mode)
		assert.Equal(t, models.StatusError, got.Status)
		assert.Equal(t, "fake", got.Provider)
		assert.Equal(t, result.Metadata["runId"], got.RunID)
		assert.Equal(t, result.Error, got.Error)
	})

	t.Run("recorder failure is not returned", func(t *testing.T) {
		rec := &memRecorder{err: errBoom}
		cfg := DefaultConfig()
		cfg.Mode = models.ModeIDE
		cfg.OutputDir = t.TempDir()

		result, err := New("Tool", validIDE(), cfg, WithRecorder(rec)).Process(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, result.OK())
		require.Len(t, rec.records, 1)
		assert.NotEmpty(t, rec.records[0].RunID)
	})

	t.Run("fatal errors are not recorded", func(t *testing.T) {
		rec := &memRecorder{}
		cfg := DefaultConfig()
		cfg.Mode = models.ModeAPI

		_, err := New("Tool", validIDE(), cfg, WithRecorder(rec)).Process(context.Background(), nil)
		require.Error(t, err)
		assert.Empty(t, rec.records)
	})
}

func TestConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = models.ModeIDE
	cfg.OutputDir = t.TempDir()
	cfg.FailOnSeverities = []string{"critical"}

	d := New("Tool", validIDE(), cfg)
	cfg.Mode = models.ModeAPI
	cfg.FailOnSeverities[0] = "info"

	mode, err := d.Mode()
	require.NoError(t, err)
	assert.Equal(t, models.ModeIDE, mode)
	assert.Equal(t, []string{"critical"}, d.Config().FailOnSeverities)
}

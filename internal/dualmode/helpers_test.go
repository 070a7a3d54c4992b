package dualmode

import (
	"context"
	"errors"
	"sync"

	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/provider"
)

// ideOnly implements AnalyzeForIDE.
type ideOnly struct {
	analysis *IDEAnalysis
	err      error
}

func (p *ideOnly) AnalyzeForIDE(ctx context.Context, data interface{}) (*IDEAnalysis, error) {
	return p.analysis, p.err
}

// apiOnly implements PrepareForAPI and ProcessAIResponse.
type apiOnly struct {
	request    *provider.Request
	prepareErr error
	respondErr error
	seen       *provider.Response
}

func (p *apiOnly) PrepareForAPI(ctx context.Context, data interface{}) (*provider.Request, error) {
	return p.request, p.prepareErr
}

func (p *apiOnly) ProcessAIResponse(ctx context.Context, resp *provider.Response, data interface{}) (interface{}, error) {
	p.seen = resp
	if p.respondErr != nil {
		return nil, p.respondErr
	}
	return map[string]interface{}{"answer": resp.Content, "input": data}, nil
}

// prepareOnly lacks ProcessAIResponse.
type prepareOnly struct{}

func (prepareOnly) PrepareForAPI(ctx context.Context, data interface{}) (*provider.Request, error) {
	return &provider.Request{}, nil
}

// ciOnly implements AnalyzeForCI.
type ciOnly struct {
	analysis *CIAnalysis
}

func (p *ciOnly) AnalyzeForCI(ctx context.Context, data interface{}) (*CIAnalysis, error) {
	return p.analysis, nil
}

// fakeProvider counts calls and returns a canned response.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	requests []provider.Request
	content  string
	err      error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content, Model: req.Model, Provider: "fake"}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRegistry registers fake under "fake", requiring a key read from FAKE_API_KEY.
func fakeRegistry(f *fakeProvider, requiresKey bool) *provider.Registry {
	r := provider.NewRegistry()
	r.Register("fake", provider.Spec{
		Factory: func(ctx context.Context, s provider.Settings) (provider.Provider, error) {
			return f, nil
		},
		DefaultModel: "fake-1",
		EnvKeys:      []string{"AI_API_KEY", "FAKE_API_KEY"},
		RequiresKey:  requiresKey,
	})
	return r
}

type memRecorder struct {
	records []models.RunRecord
	err     error
}

func (m *memRecorder) Record(ctx context.Context, rec models.RunRecord) error {
	m.records = append(m.records, rec)
	return m.err
}

var errBoom = errors.New("boom")

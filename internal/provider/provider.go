// Package provider adapts remote model backends to a single chat-style
// request/response shape used by the API pipeline.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnknownProvider is returned when a provider name is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrMissingAPIKey is returned by factories whose backend needs a key.
var ErrMissingAPIKey = errors.New("api key required")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	Messages       []Message              `json:"messages"`
	Model          string                 `json:"model,omitempty"`
	Temperature    *float64               `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat string                 `json:"response_format,omitempty"` // "json_object" or empty
	Options        map[string]interface{} `json:"options,omitempty"`
}

// Usage reports token accounting when the backend returns it.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is the normalized completion result.
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// Provider performs completion calls against one backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Settings configure a provider instance.
type Settings struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Options  map[string]interface{}
}

// Factory builds a provider from settings.
type Factory func(ctx context.Context, s Settings) (Provider, error)

// Spec describes a registered provider.
type Spec struct {
	Factory      Factory
	DefaultModel string
	EnvKeys      []string // Environment variables consulted for the API key, in order
	RequiresKey  bool
}

// Registry maps lower-case provider names to their specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// DefaultRegistry returns a registry with openai, gemini and claude registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("openai", Spec{
		Factory:      newOpenAIProvider,
		DefaultModel: DefaultOpenAIModel,
		EnvKeys:      []string{"AI_API_KEY", "OPENAI_API_KEY"},
		RequiresKey:  true,
	})
	r.Register("gemini", Spec{
		Factory:      newGeminiProvider,
		DefaultModel: DefaultGeminiModel,
		EnvKeys:      []string{"AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		RequiresKey:  true,
	})
	r.Register("claude", Spec{
		Factory: newClaudeProvider,
	})
	return r
}

// Register adds or replaces a provider spec.
func (r *Registry) Register(name string, spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[strings.ToLower(name)] = spec
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[strings.ToLower(name)]
	return spec, ok
}

// Available returns the registered provider names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named provider. An empty model falls back to the registered default.
func (r *Registry) New(ctx context.Context, name string, s Settings) (Provider, error) {
	spec, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownProvider, name, strings.Join(r.Available(), ", "))
	}
	if s.Model == "" {
		s.Model = spec.DefaultModel
	}
	if spec.RequiresKey && s.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}
	return spec.Factory(ctx, s)
}

// ResolveAPIKey returns explicit when set, else the first non-empty value of
// EnvKeys in env.
func (s Spec) ResolveAPIKey(explicit string, env map[string]string) string {
	if explicit != "" {
		return explicit
	}
	for _, key := range s.EnvKeys {
		if v := strings.TrimSpace(env[key]); v != "" {
			return v
		}
	}
	return ""
}

// splitSystem separates system messages from the conversation turns.
func splitSystem(messages []Message) (system string, turns []Message) {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(parts, "\n\n"), turns
}

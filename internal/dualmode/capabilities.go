package dualmode

import (
	"context"

	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/provider"
)

// IDEAnalysis is the result of AnalyzeForIDE.
type IDEAnalysis struct {
	Context  map[string]interface{} // Serialized into context.json; must be non-nil
	Analysis string                 // Written to analysis.md; must be non-empty
	Prompts  string                 // Written under the prompts.md heading
	Metadata map[string]interface{} // Optional, serialized into context.json
}

// CIAnalysis is the result of AnalyzeForCI.
type CIAnalysis struct {
	Summary string
	Issues  []models.Issue
	Metrics map[string]interface{}
}

// IDEAnalyzer produces context for IDE-integrated assistants.
type IDEAnalyzer interface {
	AnalyzeForIDE(ctx context.Context, data interface{}) (*IDEAnalysis, error)
}

// APIPreparer builds the provider request.
type APIPreparer interface {
	PrepareForAPI(ctx context.Context, data interface{}) (*provider.Request, error)
}

// ResponseProcessor turns the provider response into the envelope result.
type ResponseProcessor interface {
	ProcessAIResponse(ctx context.Context, resp *provider.Response, data interface{}) (interface{}, error)
}

// CIAnalyzer produces a CI report directly.
type CIAnalyzer interface {
	AnalyzeForCI(ctx context.Context, data interface{}) (*CIAnalysis, error)
}

// Capabilities holds one optional slot per processor method. A Capabilities
// value may itself be passed to New as the processor.
type Capabilities struct {
	IDE     IDEAnalyzer
	Prepare APIPreparer
	Respond ResponseProcessor
	CI      CIAnalyzer
}

// CapabilitiesOf collects the capability interfaces p implements.
func CapabilitiesOf(p interface{}) Capabilities {
	switch c := p.(type) {
	case Capabilities:
		return c
	case *Capabilities:
		if c == nil {
			return Capabilities{}
		}
		return *c
	}

	var caps Capabilities
	if v, ok := p.(IDEAnalyzer); ok {
		caps.IDE = v
	}
	if v, ok := p.(APIPreparer); ok {
		caps.Prepare = v
	}
	if v, ok := p.(ResponseProcessor); ok {
		caps.Respond = v
	}
	if v, ok := p.(CIAnalyzer); ok {
		caps.CI = v
	}
	return caps
}

// Validate checks the methods mode requires, in order.
func (c Capabilities) Validate(mode models.Mode) error {
	switch mode {
	case models.ModeIDE:
		if c.IDE == nil {
			return &MissingCapabilityError{Mode: mode, Method: "AnalyzeForIDE"}
		}
	case models.ModeAPI:
		if c.Prepare == nil {
			return &MissingCapabilityError{Mode: mode, Method: "PrepareForAPI"}
		}
		if c.Respond == nil {
			return &MissingCapabilityError{Mode: mode, Method: "ProcessAIResponse"}
		}
	case models.ModeCI:
		if c.CI == nil && c.IDE == nil {
			return &MissingCapabilityError{Mode: mode, Method: "AnalyzeForCI or AnalyzeForIDE"}
		}
	default:
		return &ConfigurationError{Message: "unknown mode: " + string(mode)}
	}
	return nil
}

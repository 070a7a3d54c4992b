package dualmode

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/cognitive/internal/models"
	"github.com/harrison/cognitive/internal/provider"
)

type apiHandler struct {
	cfg      Config
	env      Environment
	registry *provider.Registry
	logger   Logger
	clock    func() time.Time
}

// checkKey fails when the configured provider needs a key and none is
// available. It runs before the processor or provider is touched. When only
// another provider's key is present (GEMINI_API_KEY with the openai default),
// that provider is used instead.
func (h *apiHandler) checkKey() (string, error) {
	spec, ok := h.registry.Lookup(h.cfg.Provider)
	if !ok {
		// Unknown providers surface as a soft failure from run.
		return h.cfg.APIKey, nil
	}
	key := spec.ResolveAPIKey(h.cfg.APIKey, h.env)
	if !spec.RequiresKey || key != "" {
		return key, nil
	}

	if name, key, ok := h.providerWithKey(); ok {
		h.logger.LogWarn(fmt.Sprintf("no API key for provider %s, using %s", h.cfg.Provider, name))
		h.cfg.Provider = name
		h.cfg.Model = ""
		return key, nil
	}
	return "", &ConfigurationError{
		Message: fmt.Sprintf("API key required for API mode (provider %s)", h.cfg.Provider),
	}
}

// providerWithKey returns the first registered provider, by name, that
// requires a key and finds one in the environment.
func (h *apiHandler) providerWithKey() (string, string, bool) {
	for _, name := range h.registry.Available() {
		spec, _ := h.registry.Lookup(name)
		if !spec.RequiresKey {
			continue
		}
		if key := spec.ResolveAPIKey("", h.env); key != "" {
			return name, key, true
		}
	}
	return "", "", false
}

// run prepares a request, calls the provider and post-processes the answer.
// Only a missing key is returned as an error; every other failure becomes an
// error envelope.
func (h *apiHandler) run(ctx context.Context, prep APIPreparer, respond ResponseProcessor, data interface{}) (*models.ProcessResult, error) {
	apiKey, err := h.checkKey()
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	meta := map[string]interface{}{
		"provider": h.cfg.Provider,
		"runId":    runID,
	}

	req, err := prep.PrepareForAPI(ctx, data)
	if err != nil {
		return apiError(fmt.Sprintf("PrepareForAPI failed: %v", err), meta), nil
	}
	if req == nil {
		return apiError("PrepareForAPI must return a request with a messages array", meta), nil
	}
	if len(req.Messages) == 0 {
		return apiError("messages array cannot be empty", meta), nil
	}

	call := *req
	if call.Model == "" {
		call.Model = h.cfg.Model
	}
	if len(h.cfg.APIOptions) > 0 {
		merged := make(map[string]interface{}, len(h.cfg.APIOptions)+len(call.Options))
		for k, v := range h.cfg.APIOptions {
			merged[k] = v
		}
		for k, v := range call.Options {
			merged[k] = v
		}
		call.Options = merged
	}

	p, err := h.registry.New(ctx, h.cfg.Provider, provider.Settings{
		APIKey:   apiKey,
		Model:    h.cfg.Model,
		Endpoint: h.cfg.APIEndpoint,
		Timeout:  h.cfg.Timeout,
	})
	if err != nil {
		return apiError(fmt.Sprintf("%v: %v", ErrProviderFailure, err), meta), nil
	}

	callCtx := ctx
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	start := h.clock()
	resp, err := p.Complete(callCtx, call)
	elapsed := h.clock().Sub(start)
	if err != nil {
		meta["durationMs"] = elapsed.Milliseconds()
		return apiError(fmt.Sprintf("%v: %v", ErrProviderFailure, err), meta), nil
	}
	if resp == nil {
		resp = &provider.Response{Provider: p.Name(), Model: call.Model}
	}

	out, err := respond.ProcessAIResponse(ctx, resp, data)
	if err != nil {
		meta["durationMs"] = elapsed.Milliseconds()
		return apiError(fmt.Sprintf("ProcessAIResponse failed: %v", err), meta), nil
	}

	model := resp.Model
	if model == "" {
		model = call.Model
	}
	meta["model"] = model
	meta["durationMs"] = elapsed.Milliseconds()
	meta["timestamp"] = h.clock().UTC().Format(time.RFC3339)
	if resp.Usage.TotalTokens > 0 {
		meta["usage"] = resp.Usage
	}

	return &models.ProcessResult{
		Mode:     models.ModeAPI,
		Status:   models.StatusSuccess,
		Result:   out,
		Metadata: meta,
	}, nil
}

func apiError(message string, meta map[string]interface{}) *models.ProcessResult {
	return &models.ProcessResult{
		Mode:     models.ModeAPI,
		Status:   models.StatusError,
		Error:    message,
		Metadata: meta,
	}
}

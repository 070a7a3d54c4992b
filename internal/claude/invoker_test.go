package claude

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name          string
		rawOutput     []byte
		wantContent   string
		wantSessionID string
		wantErr       bool
	}{
		{
			name:          "valid JSON with content field",
			rawOutput:     []byte(`{"content":"Hello World","error":"","session_id":"abc-123"}`),
			wantContent:   "Hello World",
			wantSessionID: "abc-123",
			wantErr:       false,
		},
		{
			name:          "valid JSON without session_id",
			rawOutput:     []byte(`{"content":"Task completed","error":""}`),
			wantContent:   "Task completed",
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "structured_output from --json-schema",
			rawOutput:     []byte(`{"type":"result","session_id":"test-123","structured_output":{"status":"success","summary":"Done"}}`),
			wantContent:   `{"status":"success","summary":"Done"}`,
			wantSessionID: "test-123",
			wantErr:       false,
		},
		{
			name:          "code-fenced JSON output - fallback extraction",
			rawOutput:     []byte("Here is the result:\n```json\n{\"status\":\"success\"}\n```\n"),
			wantContent:   `{"status":"success"}`,
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "mixed output with error prefix before JSON",
			rawOutput:     []byte("Error: some warning\n" + `{"content":"Result","session_id":"mixed-456"}`),
			wantContent:   "Result",
			wantSessionID: "mixed-456",
			wantErr:       false,
		},
		{
			name:          "plain text output without JSON",
			rawOutput:     []byte("Plain text output without JSON"),
			wantContent:   "",
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "empty output",
			rawOutput:     []byte(""),
			wantContent:   "",
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "raw JSON without wrapper - fallback extraction",
			rawOutput:     []byte(`{"status":"success","summary":"Task done","output":"Created file"}`),
			wantContent:   `{"status":"success","summary":"Task done","output":"Created file"}`,
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "JSON with prose before - fallback extraction",
			rawOutput:     []byte("Some prose before the JSON response\n{\"status\":\"success\"}"),
			wantContent:   `{"status":"success"}`,
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "structured_output null - falls through to content",
			rawOutput:     []byte(`{"type":"result","content":"Via content field","session_id":"test-789","structured_output":null}`),
			wantContent:   "Via content field",
			wantSessionID: "test-789",
			wantErr:       false,
		},
		{
			name:          "structured_output empty object - falls through to content",
			rawOutput:     []byte(`{"type":"result","content":"Via content field","session_id":"test-abc","structured_output":{}}`),
			wantContent:   "Via content field",
			wantSessionID: "test-abc",
			wantErr:       false,
		},
		{
			name:          "result field used by some agents",
			rawOutput:     []byte(`{"type":"result","result":"Agent response text","session_id":"result-123"}`),
			wantContent:   "Agent response text",
			wantSessionID: "result-123",
			wantErr:       false,
		},
		{
			name:          "malformed JSON without closing brace - returns empty",
			rawOutput:     []byte(`{"status":"success`),
			wantContent:   "",
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "only opening brace - no valid JSON",
			rawOutput:     []byte(`{`),
			wantContent:   "",
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "only closing brace - no valid JSON",
			rawOutput:     []byte(`}`),
			wantContent:   "",
			wantSessionID: "",
			wantErr:       false,
		},
		{
			name:          "nested JSON in content",
			rawOutput:     []byte(`{"content":"{\"nested\":\"value\"}","session_id":"nested-123"}`),
			wantContent:   `{"nested":"value"}`,
			wantSessionID: "nested-123",
			wantErr:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, sessionID, err := ParseResponse(tt.rawOutput)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, content)
			assert.Equal(t, tt.wantSessionID, sessionID)
		})
	}
}

func TestNewInvoker(t *testing.T) {
	inv := NewInvoker()
	require.NotNil(t, inv)
	assert.Equal(t, "claude", inv.ClaudePath)
	assert.Equal(t, DefaultSystemPrompt, inv.SystemPrompt)
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		inv     *Invoker
		req     Request
		want    []string
		wantErr bool
	}{
		{
			name:    "prompt required",
			inv:     NewInvoker(),
			req:     Request{},
			wantErr: true,
		},
		{
			name: "defaults",
			inv:  &Invoker{},
			req:  Request{Prompt: "hi"},
			want: []string{"--system-prompt", DefaultSystemPrompt, "-p", "hi", "--output-format", "json", "--settings", `{"disableAllHooks": true}`},
		},
		{
			name: "request overrides invoker",
			inv:  &Invoker{SystemPrompt: "inv", Model: "inv-model"},
			req:  Request{Prompt: "hi", SystemPrompt: "req", Model: "req-model", Schema: `{"type":"object"}`},
			want: []string{"--system-prompt", "req", "-p", "hi", "--model", "req-model", "--json-schema", `{"type":"object"}`, "--output-format", "json", "--settings", `{"disableAllHooks": true}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := tt.inv.buildArgs(tt.req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, args)
		})
	}
}

func writeFakeCLI(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
	return path
}

func TestInvoke(t *testing.T) {
	t.Run("returns raw output and session id", func(t *testing.T) {
		inv := &Invoker{ClaudePath: writeFakeCLI(t, `echo '{"result":"looks good","session_id":"s-1"}'`)}

		resp, err := inv.Invoke(context.Background(), Request{Prompt: "review"})
		require.NoError(t, err)
		assert.Equal(t, "s-1", resp.SessionID)

		content, _, err := ParseResponse(resp.RawOutput)
		require.NoError(t, err)
		assert.Equal(t, "looks good", content)
	})

	t.Run("uses clean TMPDIR", func(t *testing.T) {
		inv := &Invoker{ClaudePath: writeFakeCLI(t, `printf '{"result":"%s"}' "$TMPDIR"`)}

		resp, err := inv.Invoke(context.Background(), Request{Prompt: "x"})
		require.NoError(t, err)
		content, _, _ := ParseResponse(resp.RawOutput)
		assert.Equal(t, GetCleanTmpDir(), content)
	})

	t.Run("non-zero exit is an error with output", func(t *testing.T) {
		inv := &Invoker{ClaudePath: writeFakeCLI(t, "echo 'auth required'; exit 3")}

		_, err := inv.Invoke(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth required")
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		inv := &Invoker{ClaudePath: writeFakeCLI(t, "exec sleep 5"), Timeout: 100 * time.Millisecond}

		start := time.Now()
		_, err := inv.Invoke(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("prefix {\"a\":1} suffix"))
	assert.Equal(t, "", ExtractJSON("no json"))
	assert.Equal(t, "", ExtractJSON("} {"))
}

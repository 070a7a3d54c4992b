package claude

import (
	"bytes"
	"encoding/json"
	"strings"
)

// cliEnvelope is the --output-format json document printed by the CLI.
type cliEnvelope struct {
	Content          string          `json:"content"`
	Result           string          `json:"result"`
	StructuredOutput json.RawMessage `json:"structured_output"`
	SessionID        string          `json:"session_id"`
	IsError          bool            `json:"is_error"`
}

// ParseResponse extracts the model content and session id from CLI output.
//
// Lookup order: structured_output (when non-empty), content, result. Output
// that is JSON but not a CLI envelope is returned as-is. Prose or code fences
// around the JSON are stripped. Output without any JSON object yields "".
func ParseResponse(raw []byte) (content string, sessionID string, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", "", nil
	}

	candidate := trimmed
	var env cliEnvelope
	if json.Unmarshal([]byte(candidate), &env) != nil {
		candidate = ExtractJSON(trimmed)
		if candidate == "" {
			return "", "", nil
		}
		env = cliEnvelope{}
		if json.Unmarshal([]byte(candidate), &env) != nil {
			return "", "", nil
		}
	}

	if so := bytes.TrimSpace(env.StructuredOutput); len(so) > 0 && !bytes.Equal(so, []byte("null")) && !bytes.Equal(so, []byte("{}")) {
		var compact bytes.Buffer
		if json.Compact(&compact, so) == nil {
			return compact.String(), env.SessionID, nil
		}
		return string(so), env.SessionID, nil
	}
	if env.Content != "" {
		return env.Content, env.SessionID, nil
	}
	if env.Result != "" {
		return env.Result, env.SessionID, nil
	}

	return candidate, env.SessionID, nil
}

// ExtractJSON attempts to extract a JSON object from mixed content.
// It finds the first '{' and last '}' to extract the JSON substring.
// Returns empty string if no valid JSON boundaries found.
func ExtractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}

// truncate returns s truncated to maxLen characters with "..." suffix if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

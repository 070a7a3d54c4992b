package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessResultOK(t *testing.T) {
	var nilResult *ProcessResult
	assert.False(t, nilResult.OK())
	assert.False(t, (&ProcessResult{Status: StatusError}).OK())
	assert.True(t, (&ProcessResult{Status: StatusSuccess}).OK())
}

func TestProcessResultJSON(t *testing.T) {
	result := &ProcessResult{
		Mode:   ModeCI,
		Status: StatusSuccess,
		Result: &CIReport{
			Mode:    ModeCI,
			Status:  StatusSuccess,
			Tool:    "cognitive",
			Summary: "3 tests run, 1 failures",
			Issues:  []Issue{{Severity: "error", Message: "Test TestB failed", Test: "TestB"}},
			Metrics: map[string]interface{}{"total": 3},
		},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ci", decoded["mode"])
	assert.NotContains(t, decoded, "error")
	assert.NotContains(t, decoded, "metadata")

	report := decoded["result"].(map[string]interface{})
	assert.Equal(t, false, report["passed"])
	issue := report["issues"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "TestB", issue["test"])
	assert.NotContains(t, issue, "file")
}

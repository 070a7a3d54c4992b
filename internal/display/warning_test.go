package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarningDisplay(t *testing.T) {
	tests := []struct {
		name    string
		warning Warning
		want    string
	}{
		{
			name:    "title only",
			warning: Warning{Title: "Nothing to audit"},
			want:    "⚠️  Warning: Nothing to audit\n",
		},
		{
			name: "single item",
			warning: Warning{
				Title:   "Invalid requirement",
				Message: "Missing metadata field: owner",
				Files:   []string{"requirements/story.md"},
			},
			want: "⚠️  Warning: Invalid requirement\n" +
				"    Missing metadata field: owner\n" +
				"    Affected item:\n" +
				"      1. requirements/story.md\n",
		},
		{
			name:    "items with suggestion",
			warning: WarnItems("Requirements without tests", []string{"ST-4", "TASK-2"}, "Run 'cognitive audit --generate-tests'"),
			want: "⚠️  Warning: Requirements without tests\n" +
				"    Affected items:\n" +
				"      1. ST-4\n" +
				"      2. TASK-2\n" +
				"    Suggestion:\n" +
				"    Run 'cognitive audit --generate-tests'\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.warning.Display(&buf)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, "Processed requirement %s", "VIS-1")
	Failure(&buf, "%d failed", 2)
	assert.Equal(t, "✓ Processed requirement VIS-1\n✗ 2 failed\n", buf.String())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
	assert.False(t, IsTerminal(nil))
}

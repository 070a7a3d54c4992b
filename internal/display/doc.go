// Package display renders user-facing warning blocks for the cognitive CLI.
//
// A Warning has a title plus an optional message, a numbered list of
// related items and a suggestion:
//
//	w := display.Warning{
//	    Title:      "Requirements without tests",
//	    Files:      []string{"ST-4: Export report"},
//	    Suggestion: "Run 'cognitive audit --generate-tests' to create stubs",
//	}
//	w.Display(os.Stderr)
//
// Output is colored with fatih/color only when the writer is a terminal,
// so buffers and pipes receive plain text.
package display

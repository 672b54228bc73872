package evolution

import "strings"

// ClassifySuccess decides whether a finished trace counts as a success.
// exitCode takes priority when the trace came from a real process (ok
// is true); otherwise it falls back to a substring match over output,
// per the Open Question resolution in DESIGN.md (exit-code-first,
// substring fallback only for non-process tool calls).
func ClassifySuccess(exitCode int, ok bool, output string) bool {
	if ok {
		return exitCode == 0
	}
	lower := strings.ToLower(output)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		return false
	}
	return strings.Contains(lower, "passed") || strings.Contains(lower, "success") || strings.Contains(lower, "ok")
}

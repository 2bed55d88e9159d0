package encoder

import (
	"fmt"
	"strings"
)

// classKind orders the recognized failure substrings by priority (spec.md
// §4.B): the first match wins even if a later pattern also appears in the
// captured diagnostic output.
var classKind = []struct {
	substr string
	kind   string
}{
	{"no such file or directory", "input_not_found"},
	{"permission denied", "permission_denied"},
	{"invalid data found", "invalid_input"},
	{"no space left on device", "disk_full"},
	{"unknown encoder", "codec_unavailable"},
}

// classify turns the captured diagnostic output and exit code into the
// classified error text spec.md §4.B specifies.
func classify(exitCode int, diagnostics string) string {
	lower := strings.ToLower(diagnostics)
	for _, c := range classKind {
		if strings.Contains(lower, c.substr) {
			return c.kind
		}
	}
	return fmt.Sprintf("encoder_exit_%d", exitCode)
}

package usecase

import (
	"fmt"
	"strings"
)

// FormatSummary renders a pass summary as a plain text notification.
func FormatSummary(s *Summary) string {
	var b strings.Builder

	status := "OK"
	if s.Failed() {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Backup pass %s\n", status)
	fmt.Fprintf(&b, "Evaluated: %d, skipped: %d, triggered: %d, failed: %d\n",
		s.Evaluated, s.Skipped, len(s.Triggered), len(s.Errors))

	if len(s.Triggered) > 0 {
		fmt.Fprintf(&b, "Completed: %s\n", strings.Join(s.Triggered, ", "))
	}
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "- %s: %s\n", e.TenantID, e.Error)
	}

	return strings.TrimRight(b.String(), "\n")
}

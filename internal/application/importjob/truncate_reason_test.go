package importjob

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateReasonKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// 999 ASCII bytes put the 2-byte "é" across the 1000-byte limit.
	reason := strings.Repeat("a", 999) + strings.Repeat("é", 10)

	got := truncateReason(reason)

	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8, got %q", got[len(got)-4:])
	}
	if len(got) != 999 {
		t.Fatalf("expected 999 bytes, got %d", len(got))
	}
}

func TestTruncateReasonShortPassesThrough(t *testing.T) {
	t.Parallel()

	if got := truncateReason("  disk full  "); got != "disk full" {
		t.Fatalf("expected trimmed reason, got %q", got)
	}
}

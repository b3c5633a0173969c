package utils

import (
	"strings"
	"testing"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short policy clause", 100, 10)
	if len(chunks) != 1 || chunks[0] != "short policy clause" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplitTextPreservesAllContent(t *testing.T) {
	text := strings.Repeat("lending policy section content ", 100)
	chunks := SplitText(text, 200, 40)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 200 {
			t.Errorf("chunk %d exceeds size: %d", i, len(chunk))
		}
	}
	// The final chunk must end where the text ends.
	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("last chunk does not terminate the input")
	}
}

func TestSplitTextSnapsToWhitespace(t *testing.T) {
	text := strings.Repeat("word ", 200)
	for _, chunk := range SplitText(text, 100, 20) {
		trimmed := strings.TrimSpace(chunk)
		if strings.HasSuffix(trimmed, "wor") || strings.HasSuffix(trimmed, "wo") {
			t.Fatalf("chunk cut mid-word: %q", chunk)
		}
	}
}

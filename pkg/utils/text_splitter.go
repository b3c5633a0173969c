package utils

import "unicode"

// SplitText splits a long string into chunks of approximately chunkSize
// characters with an overlap to preserve context at boundaries. Chunk
// ends snap back to the nearest whitespace when one is close, so words
// are not cut in half.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[i:]))
			break
		}

		// Snap to a whitespace boundary if one exists in the last tenth
		// of the chunk. A chunk with no whitespace there is cut as-is.
		snapped := end
		for j := end; j > end-chunkSize/10 && j > i; j-- {
			if unicode.IsSpace(runes[j-1]) {
				snapped = j
				break
			}
		}
		chunks = append(chunks, string(runes[i:snapped]))
	}

	return chunks
}

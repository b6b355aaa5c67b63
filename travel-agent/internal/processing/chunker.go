package processing

import (
	"strings"
)

// maxSemanticRunes caps description text used when a record has no semantic_text.
const maxSemanticRunes = 1000

// SemanticText picks the text to embed for a record: its semantic_text, or the
// first maxSemanticRunes of its description. Empty means the record is skipped.
func SemanticText(n Node) string {
	if t := strings.TrimSpace(n.SemanticText); t != "" {
		return t
	}
	desc := []rune(n.Description)
	if len(desc) > maxSemanticRunes {
		desc = desc[:maxSemanticRunes]
	}
	return strings.TrimSpace(string(desc))
}

// Batches splits items into consecutive slices of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

package pipeline

// Assemble deduplicates chunks by exact text equality, keeping the first
// occurrence and preserving order. Running it on its own output is a no-op.
func Assemble(chunks []ScoredChunk) []ScoredChunk {
	seen := make(map[string]struct{}, len(chunks))
	unique := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.Text]; ok {
			continue
		}
		seen[chunk.Text] = struct{}{}
		unique = append(unique, chunk)
	}
	return unique
}

package pipeline

import "strings"

// SourceMetadataKey is the chunk metadata key naming the source document.
const SourceMetadataKey = "source"

// Sources returns the distinct source document names contributing to the
// chunks, in first-seen order.
func Sources(chunks []ScoredChunk) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, chunk := range chunks {
		source := chunk.Metadata[SourceMetadataKey]
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources
}

// Enhance prepends a one-line provenance summary naming the source documents
// the context was drawn from. Without sources the context is returned
// unchanged.
func Enhance(context string, chunks []ScoredChunk) string {
	sources := Sources(chunks)
	if len(sources) == 0 {
		return context
	}
	return "The following information is derived from these documents: " +
		strings.Join(sources, ", ") + ".\n\n" + context
}

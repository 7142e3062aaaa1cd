package rag

import (
	"regexp"
	"strings"
)

// TextChunk is a bounded slice of a document's text, indexed in output
// order starting at 0.
type TextChunk struct {
	Text  string
	Index int
}

// Splitter breaks extracted document text into overlapping chunks.
// Paragraphs are the primary split boundary; they are greedily packed
// into windows close to targetSize characters, with the tail of each
// window carried into the next so retrieval context is not cut off at a
// paragraph edge.
type Splitter struct {
	targetSize     int
	overlap        int
	minChunkSize   int
	paragraphRegex *regexp.Regexp
	sentenceRegex  *regexp.Regexp
}

func NewSplitter(targetSize, overlap, minChunkSize int) *Splitter {
	return &Splitter{
		targetSize:     targetSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		paragraphRegex: regexp.MustCompile(`\n\n+`),
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
	}
}

// Split returns the ordered chunk sequence for text. Empty or
// whitespace-only input yields an empty slice, not an error.
func (s *Splitter) Split(text string) []TextChunk {
	paragraphs := filterEmpty(s.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return []TextChunk{}
	}

	var chunks []TextChunk
	current := new(strings.Builder)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, TextChunk{
			Text:  current.String(),
			Index: len(chunks),
		})
		carried := s.overlapTail(current.String())
		current = new(strings.Builder)
		current.WriteString(carried)
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph) > s.targetSize &&
			current.Len() >= s.minChunkSize {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, TextChunk{
			Text:  current.String(),
			Index: len(chunks),
		})
	}

	return chunks
}

// overlapTail returns up to s.overlap trailing characters of text,
// preferring a sentence boundary so the carried context reads cleanly.
func (s *Splitter) overlapTail(text string) string {
	if s.overlap <= 0 {
		return ""
	}
	if len(text) <= s.overlap {
		return text
	}

	tail := text[len(text)-s.overlap:]
	if loc := s.sentenceRegex.FindStringIndex(tail); loc != nil {
		trimmed := tail[loc[1]:]
		if trimmed != "" {
			return trimmed
		}
	}

	// No sentence boundary in range; avoid starting mid-word.
	if i := strings.IndexAny(tail, " \t\n"); i >= 0 && i+1 < len(tail) {
		return tail[i+1:]
	}
	return tail
}

func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if strings.TrimSpace(s) != "" {
			result = append(result, s)
		}
	}
	return result
}

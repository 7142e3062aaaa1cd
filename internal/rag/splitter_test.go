package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(1000, 200, 100)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n  \t "))
}

func TestSplitSingleParagraph(t *testing.T) {
	s := NewSplitter(1000, 200, 100)

	chunks := s.Split("A short standalone paragraph.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "A short standalone paragraph.", chunks[0].Text)
}

func TestSplitIndicesAreContiguous(t *testing.T) {
	s := NewSplitter(120, 30, 40)

	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("This paragraph describes the vacation policy in a fair amount of detail. ")
		b.WriteString("Employees accrue days monthly.\n\n")
	}

	chunks := s.Split(b.String())
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}

func TestSplitPacksParagraphsUpToTargetSize(t *testing.T) {
	s := NewSplitter(100, 0, 10)

	text := "First block of text here.\n\nSecond block of text here.\n\n" +
		strings.Repeat("x", 90) + "\n\nFinal block."

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	// The two small leading paragraphs fit one window together.
	assert.Contains(t, chunks[0].Text, "First block")
	assert.Contains(t, chunks[0].Text, "Second block")
}

func TestSplitCarriesOverlapIntoNextChunk(t *testing.T) {
	s := NewSplitter(80, 40, 10)

	text := "Alpha beta gamma delta epsilon zeta eta theta iota kappa.\n\n" +
		"Lambda mu nu xi omicron pi rho sigma tau upsilon phi chi."

	chunks := s.Split(text)
	require.Len(t, chunks, 2)

	// The second chunk opens with trailing context from the first.
	head := chunks[1].Text[:strings.Index(chunks[1].Text, "\n\n")]
	assert.Contains(t, chunks[0].Text, strings.TrimSpace(head))
}

func TestSplitNoOverlapWhenDisabled(t *testing.T) {
	s := NewSplitter(60, 0, 10)

	text := "First paragraph with enough words to fill the window nicely.\n\nSecond paragraph follows."

	chunks := s.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Second paragraph follows.", chunks[1].Text)
}

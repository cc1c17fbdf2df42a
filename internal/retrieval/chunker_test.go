package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestChunker_ShortDocumentIsOnePiece(t *testing.T) {
	c := NewChunker()
	pieces := c.Split(Document{ID: "dental", Title: "Dental", Content: "Dental coverage\nfor gold tier."})
	require.Len(t, pieces, 1)
	require.Equal(t, "Dental coverage for gold tier.", pieces[0].Text)
	require.Equal(t, Source{DocumentID: "dental", Heading: "Dental", Offset: 0}, pieces[0].Source)
}

func TestChunker_MarkdownHeadingsStartSections(t *testing.T) {
	md := "# Dental\n\nCleaning twice a year.\n\n## Orthodontics\n\n- braces\n- aligners\n"
	pieces := NewChunker().Split(Document{ID: "dental", Content: md})
	require.Len(t, pieces, 2)
	require.Equal(t, "Dental", pieces[0].Source.Heading)
	require.Equal(t, "Dental Cleaning twice a year.", pieces[0].Text)
	require.Equal(t, "Orthodontics", pieces[1].Source.Heading)
	require.Equal(t, "Orthodontics braces aligners", pieces[1].Text)
}

func TestChunker_WindowsOverlapAndRespectSize(t *testing.T) {
	words := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		words = append(words, "word")
	}
	body := strings.Join(words, " ")
	c := NewChunker(WithChunkSize(50), WithOverlap(10))
	pieces := c.Split(Document{ID: "doc", Content: body})
	require.Greater(t, len(pieces), 5)

	for i, p := range pieces {
		require.LessOrEqual(t, utf8.RuneCountInString(p.Text), 50)
		require.NotEmpty(t, p.Text)
		if i == 0 {
			continue
		}
		prev := pieces[i-1]
		require.Greater(t, p.Source.Offset, prev.Source.Offset)
		// consecutive windows share text
		require.Less(t, p.Source.Offset, prev.Source.Offset+utf8.RuneCountInString(prev.Text))
	}
	last := pieces[len(pieces)-1]
	require.True(t, strings.HasSuffix(body, last.Text))
}

func TestChunker_DropsBlankDocuments(t *testing.T) {
	require.Empty(t, NewChunker().Split(Document{ID: "empty", Content: "  \n\t\n  "}))
}

func TestChunker_HebrewCountsRunes(t *testing.T) {
	text := strings.Repeat("טיפולי שיניים לחברי מסלול זהב ", 10)
	pieces := NewChunker(WithChunkSize(40), WithOverlap(5)).Split(Document{ID: "he", Content: text})
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		require.True(t, utf8.ValidString(p.Text))
		require.LessOrEqual(t, utf8.RuneCountInString(p.Text), 40)
	}
}

func TestNewChunker_InvalidOverlapIsClamped(t *testing.T) {
	c := NewChunker(WithChunkSize(100), WithOverlap(100))
	require.Equal(t, 100, c.Size())
	require.Equal(t, 20, c.Overlap())
}

package retrieval

import (
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Document is one source text of the corpus, plain or markdown.
type Document struct {
	ID      string
	Title   string
	Content string
}

// Source locates a chunk inside its document: the section heading and the
// rune offset of the chunk within that section.
type Source struct {
	DocumentID string `json:"document_id"`
	Heading    string `json:"heading,omitempty"`
	Offset     int    `json:"offset"`
}

func (s Source) String() string {
	var sb strings.Builder
	sb.WriteString(s.DocumentID)
	if s.Heading != "" {
		sb.WriteString(" / ")
		sb.WriteString(s.Heading)
	}
	return sb.String()
}

// Piece is a chunk of text before it is embedded.
type Piece struct {
	Text   string
	Source Source
}

type Chunker struct {
	size    int
	overlap int
}

type ChunkOption func(*Chunker)

func WithChunkSize(size int) ChunkOption {
	return func(c *Chunker) {
		c.size = size
	}
}

func WithOverlap(overlap int) ChunkOption {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

func NewChunker(opts ...ChunkOption) *Chunker {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 {
		c.size = DefaultChunkSize
	}
	if c.overlap < 0 || c.overlap >= c.size {
		c.overlap = c.size / 5
	}
	return c
}

func (c *Chunker) Size() int {
	return c.size
}

func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split cuts a document into overlapping windows of at most Size runes.
// Sections come from markdown headings; windows never cross a section.
func (c *Chunker) Split(doc Document) []Piece {
	var pieces []Piece
	for _, sec := range splitSections(doc) {
		body := normalizeWhitespace(sec.text)
		if body == "" {
			continue
		}
		for _, w := range c.windows([]rune(body)) {
			pieces = append(pieces, Piece{
				Text:   w.text,
				Source: Source{DocumentID: doc.ID, Heading: sec.heading, Offset: w.offset},
			})
		}
	}
	return pieces
}

type window struct {
	text   string
	offset int
}

func (c *Chunker) windows(runes []rune) []window {
	var out []window
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// prefer a word break inside the last tenth of the window
			floor := end - c.size/10
			for i := end; i > floor && i > start+1; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, window{text: piece, offset: start})
		}
		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

type section struct {
	heading string
	text    string
}

func splitSections(doc Document) []section {
	source := []byte(doc.Content)
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	current := section{heading: strings.TrimSpace(doc.Title)}
	var parts []string
	var out []section
	flush := func() {
		if len(parts) > 0 {
			current.text = strings.Join(parts, "\n")
			out = append(out, current)
		}
		parts = nil
	}
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok {
			flush()
			heading := extractText(h, source)
			current = section{heading: heading}
			if heading != "" {
				parts = append(parts, heading)
			}
			continue
		}
		if txt := extractText(node, source); txt != "" {
			parts = append(parts, txt)
		}
	}
	flush()
	return out
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		default:
			if node.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

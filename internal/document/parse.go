package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

const (
	maxDocumentSize = 16 * 1024 * 1024 // refuse anything larger than 16MB
)

// BlockKind is the structural role of a content block.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	ListItem
	Quote
	Code
	Note
	Table
)

func (k BlockKind) String() string {
	switch k {
	case Paragraph:
		return "paragraph"
	case Heading:
		return "heading"
	case ListItem:
		return "list-item"
	case Quote:
		return "quote"
	case Code:
		return "code"
	case Note:
		return "note"
	case Table:
		return "table"
	default:
		return "unknown"
	}
}

// Anchor places a marker at a rune offset inside a block's text.
type Anchor struct {
	ID   string
	Kind geometry.Kind
	Rune int
}

// SourceBlock is one content block before layout.
type SourceBlock struct {
	Kind    BlockKind
	Level   int
	Text    string
	Anchors []Anchor
}

// Source is a parsed document.
type Source struct {
	Blocks []SourceBlock
}

// ReadFile loads and parses a Markdown file with a size limit.
func ReadFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), maxDocumentSize)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, err
	}
	return Parse(data), nil
}

// Parse converts Markdown into content blocks. Footnote references become
// footnote markers and images become image markers.
func Parse(src []byte) *Source {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote))
	root := md.Parser().Parse(text.NewReader(src))

	w := &walker{src: src, ids: make(map[string]int)}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		return w.block(n), nil
	})
	return &Source{Blocks: w.blocks}
}

type walker struct {
	src    []byte
	blocks []SourceBlock
	ids    map[string]int
	images int

	buf     strings.Builder
	anchors []Anchor
}

func (w *walker) block(n ast.Node) ast.WalkStatus {
	switch x := n.(type) {
	case *ast.Heading:
		w.leaf(x, Heading, x.Level)
	case *ast.Paragraph, *ast.TextBlock:
		kind, prefix := classify(n)
		w.buf.WriteString(prefix)
		w.leaf(n, kind, 0)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.lines(n)
		w.flush(Code, 0)
	case *east.Table:
		w.table(x)
		w.flush(Table, 0)
	case *ast.HTMLBlock, *ast.ThematicBreak:
	default:
		return ast.WalkContinue
	}
	return ast.WalkSkipChildren
}

func (w *walker) leaf(n ast.Node, kind BlockKind, level int) {
	w.inline(n)
	w.flush(kind, level)
}

func (w *walker) flush(kind BlockKind, level int) {
	txt := strings.TrimRight(w.buf.String(), " \n")
	anchors := w.anchors
	w.buf.Reset()
	w.anchors = nil
	if strings.TrimSpace(txt) == "" && len(anchors) == 0 {
		return
	}
	w.blocks = append(w.blocks, SourceBlock{Kind: kind, Level: level, Text: txt, Anchors: anchors})
}

func (w *walker) inline(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch x := c.(type) {
		case *ast.Text:
			w.buf.Write(x.Segment.Value(w.src))
			switch {
			case x.HardLineBreak():
				w.buf.WriteByte('\n')
			case x.SoftLineBreak():
				w.buf.WriteByte(' ')
			}
		case *ast.String:
			w.buf.Write(x.Value)
		case *ast.AutoLink:
			w.buf.Write(x.Label(w.src))
		case *ast.RawHTML:
		case *ast.Image:
			w.images++
			w.anchor(geometry.Image, fmt.Sprintf("img-%d", w.images))
			alt := w.plain(x)
			if alt == "" {
				alt = string(x.Destination)
			}
			w.buf.WriteString("[image: " + alt + "]")
		case *east.FootnoteLink:
			w.anchor(geometry.Footnote, fmt.Sprintf("fn-%d", x.Index))
			fmt.Fprintf(&w.buf, "[%d]", x.Index)
		default:
			w.inline(c)
		}
	}
}

// plain renders the text content of n without recording anchors.
func (w *walker) plain(n ast.Node) string {
	var b bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch x := c.(type) {
		case *ast.Text:
			b.Write(x.Segment.Value(w.src))
		case *ast.String:
			b.Write(x.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func (w *walker) lines(n ast.Node) {
	lines := n.Lines()
	for i, cnt := 0, lines.Len(); i < cnt; i++ {
		seg := lines.At(i)
		w.buf.Write(bytes.TrimRight(seg.Value(w.src), "\n"))
		w.buf.WriteByte('\n')
	}
}

func (w *walker) table(t *east.Table) {
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		first := true
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if !first {
				w.buf.WriteString(" | ")
			}
			first = false
			w.inline(cell)
		}
		w.buf.WriteByte('\n')
	}
}

func (w *walker) anchor(kind geometry.Kind, id string) {
	w.ids[id]++
	if c := w.ids[id]; c > 1 {
		id = fmt.Sprintf("%s-%d", id, c)
	}
	w.anchors = append(w.anchors, Anchor{ID: id, Kind: kind, Rune: utf8.RuneCountInString(w.buf.String())})
}

// classify classifies a paragraph by its ancestors and returns the prefix
// its first line carries (list bullet, footnote number).
func classify(n ast.Node) (BlockKind, string) {
	parent := n.Parent()
	first := parent != nil && parent.FirstChild() == n
	switch p := parent.(type) {
	case *ast.ListItem:
		if !first {
			return ListItem, ""
		}
		if list, ok := p.Parent().(*ast.List); ok && list.IsOrdered() {
			idx := 0
			for c := list.FirstChild(); c != nil && c != ast.Node(p); c = c.NextSibling() {
				idx++
			}
			return ListItem, fmt.Sprintf("%d. ", list.Start+idx)
		}
		return ListItem, "• "
	case *east.Footnote:
		if first {
			return Note, fmt.Sprintf("[%d] ", p.Index)
		}
		return Note, ""
	}
	for a := parent; a != nil; a = a.Parent() {
		if _, ok := a.(*ast.Blockquote); ok {
			return Quote, ""
		}
	}
	return Paragraph, ""
}

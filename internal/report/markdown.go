package report

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// span is a run of inline text in one weight.
type span struct {
	Text string
	Bold bool
}

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockListItem
	blockRule
)

// block is one printable unit of a narrative. List items carry their marker.
type block struct {
	Kind   blockKind
	Spans  []span
	Marker string
	Depth  int
}

var md = goldmark.New()

// parseNarrative flattens a markdown narrative into printable blocks. Only the
// subset the narratives use is kept: paragraphs, headings, lists and bold.
func parseNarrative(src string) []block {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var out []block
	var walkBlocks func(n ast.Node, depth int)
	walkBlocks = func(n ast.Node, depth int) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Heading:
				out = appendBlock(out, block{Kind: blockHeading, Spans: inlineSpans(node, source, true)})
			case *ast.Paragraph, *ast.TextBlock:
				out = appendBlock(out, block{Kind: blockParagraph, Spans: inlineSpans(node, source, false), Depth: depth})
			case *ast.List:
				num := node.Start
				for item := node.FirstChild(); item != nil; item = item.NextSibling() {
					marker := "•"
					if node.IsOrdered() {
						marker = strconv.Itoa(num) + "."
						num++
					}
					first := len(out)
					walkBlocks(item, depth+1)
					if first < len(out) && out[first].Kind == blockParagraph {
						out[first].Kind = blockListItem
						out[first].Marker = marker
					}
				}
			case *ast.ThematicBreak:
				out = append(out, block{Kind: blockRule})
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				var b strings.Builder
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				out = appendBlock(out, block{Kind: blockParagraph, Spans: []span{{Text: strings.TrimSpace(b.String())}}, Depth: depth})
			default:
				walkBlocks(c, depth)
			}
		}
	}
	walkBlocks(doc, 0)
	return out
}

func appendBlock(out []block, b block) []block {
	if len(b.Spans) == 0 {
		return out
	}
	return append(out, b)
}

// inlineSpans collects the text under n, merging neighbours of equal weight.
func inlineSpans(n ast.Node, source []byte, bold bool) []span {
	var spans []span
	add := func(s string, b bool) {
		if s == "" {
			return
		}
		if k := len(spans); k > 0 && spans[k-1].Bold == b {
			spans[k-1].Text += s
			return
		}
		spans = append(spans, span{Text: s, Bold: b})
	}

	var walk func(n ast.Node, bold bool)
	walk = func(n ast.Node, bold bool) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				add(string(node.Segment.Value(source)), bold)
				if node.SoftLineBreak() || node.HardLineBreak() {
					add(" ", bold)
				}
			case *ast.String:
				add(string(node.Value), bold)
			case *ast.Emphasis:
				walk(node, bold || node.Level >= 2)
			case *ast.CodeSpan:
				walk(node, bold)
			case *ast.AutoLink:
				add(string(node.URL(source)), bold)
			default:
				walk(c, bold)
			}
		}
	}
	walk(n, bold)

	if k := len(spans); k > 0 {
		spans[0].Text = strings.TrimLeft(spans[0].Text, " ")
		spans[k-1].Text = strings.TrimRight(spans[k-1].Text, " ")
	}
	return spans
}

// plainText joins the spans of a block.
func plainText(spans []span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

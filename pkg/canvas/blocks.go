package canvas

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
	BlockQuote     BlockType = "quote"
	BlockRule      BlockType = "rule"
	BlockTable     BlockType = "table"
)

// Block is one top-level element of a rendered compliance report.
type Block struct {
	Type     BlockType  `json:"type"`
	Level    int        `json:"level,omitempty"`
	Text     string     `json:"text,omitempty"`
	Language string     `json:"language,omitempty"`
	Ordered  bool       `json:"ordered,omitempty"`
	Items    []ListItem `json:"items,omitempty"`
	Rows     [][]string `json:"rows,omitempty"`
}

type ListItem struct {
	Text     string     `json:"text"`
	Children []ListItem `json:"children,omitempty"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// ParseBlocks renders markdown into structured blocks. Raw HTML is dropped.
func ParseBlocks(content string) []Block {
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))

	blocks := make([]Block, 0)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := toBlock(n, source); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func toBlock(n ast.Node, source []byte) (Block, bool) {
	switch node := n.(type) {
	case *ast.Heading:
		return Block{Type: BlockHeading, Level: node.Level, Text: inlineText(node, source)}, true
	case *ast.Paragraph:
		return Block{Type: BlockParagraph, Text: inlineText(node, source)}, true
	case *ast.List:
		return Block{Type: BlockList, Ordered: node.IsOrdered(), Items: listItems(node, source)}, true
	case *ast.FencedCodeBlock:
		return Block{Type: BlockCode, Language: string(node.Language(source)), Text: lines(node, source)}, true
	case *ast.CodeBlock:
		return Block{Type: BlockCode, Text: lines(node, source)}, true
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t := inlineText(c, source); t != "" {
				parts = append(parts, t)
			}
		}
		return Block{Type: BlockQuote, Text: strings.Join(parts, "\n")}, true
	case *ast.ThematicBreak:
		return Block{Type: BlockRule}, true
	case *extast.Table:
		return Block{Type: BlockTable, Rows: tableRows(node, source)}, true
	}
	return Block{}, false
}

func listItems(list *ast.List, source []byte) []ListItem {
	var items []ListItem
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		var (
			parts []string
			item  ListItem
		)
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				item.Children = append(item.Children, listItems(nested, source)...)
				continue
			}
			if t := inlineText(c, source); t != "" {
				parts = append(parts, t)
			}
		}
		item.Text = strings.Join(parts, " ")
		items = append(items, item)
	}
	return items
}

func tableRows(table *extast.Table, source []byte) [][]string {
	var rows [][]string
	for r := table.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*extast.TableCell); ok {
				row = append(row, inlineText(cell, source))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func lines(n ast.Node, source []byte) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}

// inlineText flattens the inline content under n, turning line breaks into spaces.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.URL(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

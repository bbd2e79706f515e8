// Package markdown converts markdown content to plain text suitable for
// embedding. Markup carries no semantic weight for similarity, so headings,
// emphasis, links, and code fences are flattened to their textual content.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ToPlainText strips markdown syntax and returns the readable text.
// Invalid or plain input is returned as-is.
func ToPlainText(content string) string {
	source := []byte(content)
	reader := text.NewReader(source)
	doc := goldmark.DefaultParser().Parse(reader)

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.AutoLink:
			buf.Write(node.URL(source))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			block := n.Lines()
			for i := 0; i < block.Len(); i++ {
				segment := block.At(i)
				buf.Write(segment.Value(source))
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	return string(bytes.TrimSpace(buf.Bytes()))
}

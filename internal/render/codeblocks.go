package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is one fenced code block found in a message.
type CodeBlock struct {
	Language string
	Code     string
}

var blockParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// CodeBlocks returns the fenced code blocks of raw markdown in document order.
func CodeBlocks(raw string) []CodeBlock {
	source := []byte(raw)
	doc := blockParser.Parse(text.NewReader(source))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var body strings.Builder
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			body.Write(segment.Value(source))
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fenced.Language(source)),
			Code:     body.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

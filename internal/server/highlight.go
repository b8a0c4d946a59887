package server

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlight writes text as a standalone highlighted HTML page.
func highlight(w io.Writer, text, kind, style string) error {
	lexer := lexers.Get(kind)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := chromahtml.New(
		chromahtml.Standalone(true),
		chromahtml.WithLineNumbers(true),
		chromahtml.TabWidth(2),
	)

	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return err
	}

	return formatter.Format(w, styles.Get(style), iterator)
}

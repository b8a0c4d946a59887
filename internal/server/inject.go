package server

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// reloadScript reloads a standalone /rendered page. Inside the page shell's
// iframe the shell handles reloads itself.
const reloadScript = `(function () {
  if (window.top !== window) { return; }
  var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(scheme + location.host + '/ws');
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === 'reload') { location.reload(); }
  };
})();`

// injectReloadScript parses doc as HTML and appends the reload script to
// its body. Fragments are completed into a full document by the parser.
func injectReloadScript(doc string) ([]byte, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	body := findElement(root, atom.Body)
	if body == nil {
		// html.Parse always synthesizes a body; guard against a frameset.
		body = findElement(root, atom.Html)
		if body == nil {
			body = root
		}
	}

	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "data-slimview", Val: "reload"}},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: reloadScript})
	body.AppendChild(script)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// wrapPlainText renders text as an escaped preformatted document.
func wrapPlainText(text string) string {
	return `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body><pre>` +
		html.EscapeString(text) + `</pre></body></html>`
}

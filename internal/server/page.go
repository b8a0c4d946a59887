package server

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type pageData struct {
	Title    string
	URI      string
	Kind     string
	ReadOnly bool
	Error    string
	Version  string
}

const pageStyle = `
body { margin: 0; font-family: system-ui, sans-serif; display: flex; flex-direction: column; height: 100vh; }
header { display: flex; align-items: center; gap: .75rem; padding: .5rem 1rem; border-bottom: 1px solid #ddd; background: #fafafa; }
header .uri { font-family: monospace; color: #555; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; flex: 1; }
header nav a { margin-left: .5rem; }
.badge { font-size: .75rem; padding: .1rem .4rem; border-radius: .25rem; background: #eee; }
.badge.readonly { background: #fde68a; }
#error { display: none; padding: .5rem 1rem; background: #fee2e2; color: #991b1b; font-family: monospace; white-space: pre-wrap; }
#error.visible { display: block; }
iframe { flex: 1; border: 0; width: 100%; }
`

const pageScript = `
(function () {
  var frame = document.getElementById('preview');
  var banner = document.getElementById('error');
  var uri = document.getElementById('uri');
  var delay = 1000;

  function connect() {
    var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(scheme + location.host + '/ws');
    ws.onopen = function () { delay = 1000; };
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === 'reload') {
        banner.classList.remove('visible');
        if (msg.target) { uri.textContent = msg.target; }
        frame.src = '/rendered?t=' + Date.now();
      } else if (msg.type === 'error') {
        banner.textContent = msg.content;
        banner.classList.add('visible');
      } else if (msg.type === 'focus') {
        window.focus();
      }
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 30000);
    };
  }

  connect();
})();
`

// previewPage renders the page shell around the preview iframe.
func previewPage(data pageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + templ.EscapeString(data.Title) + `</title>`)
		b.WriteString(`<style>` + pageStyle + `</style></head><body>`)

		b.WriteString(`<header><strong>` + templ.EscapeString(data.Title) + `</strong>`)
		if data.Kind != "" {
			b.WriteString(`<span class="badge">` + templ.EscapeString(data.Kind) + `</span>`)
		}
		if data.ReadOnly {
			b.WriteString(`<span class="badge readonly">read-only</span>`)
		}
		b.WriteString(`<span id="uri" class="uri">` + templ.EscapeString(data.URI) + `</span>`)
		b.WriteString(`<nav><a href="/rendered" target="_blank">rendered</a><a href="/source" target="_blank">source</a><a href="/content" target="_blank">raw</a></nav>`)
		if data.Version != "" {
			b.WriteString(`<span class="badge">` + templ.EscapeString(data.Version) + `</span>`)
		}
		b.WriteString(`</header>`)

		b.WriteString(`<div id="error"`)
		if data.Error != "" {
			b.WriteString(` class="visible"`)
		}
		b.WriteString(`>` + templ.EscapeString(data.Error) + `</div>`)

		b.WriteString(`<iframe id="preview" src="/rendered" title="preview"></iframe>`)
		b.WriteString(`<script>` + pageScript + `</script>`)
		b.WriteString(`</body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/preview"
	"github.com/conneroisu/slimview/internal/version"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	preview.Status
	ReadOnly bool   `json:"read_only"`
	Clients  int    `json:"clients"`
	Error    string `json:"error,omitempty"`
}

// PreviewResponse is the body of POST /api/preview.
type PreviewResponse struct {
	URI    string `json:"uri,omitempty"`
	Column int    `json:"column,omitempty"`
	Error  string `json:"error,omitempty"`
}

// contentKind reports the kind of the converted content addressed by uri.
func contentKind(uri string) string {
	if uri == "" {
		return preview.KindHTML
	}
	parsed, err := preview.ParseURI(uri)
	if err != nil {
		return preview.KindHTML
	}
	lower := strings.ToLower(parsed.Path)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		return preview.KindHTML
	}
	return preview.KindSlim
}

func contentType(kind string) string {
	if kind == preview.KindHTML {
		return "text/html; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uri := s.CurrentURI()
	data := pageData{
		Title:    "slimview",
		URI:      uri,
		Kind:     preview.DisplayName(contentKind(uri)),
		ReadOnly: s.ReadOnly(),
		Error:    s.LastError(),
		Version:  version.GetShortVersion(),
	}

	templ.Handler(previewPage(data)).ServeHTTP(w, r)
}

func (s *PreviewServer) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, v := s.store.Snapshot()
	etag := fmt.Sprintf(`"v%d"`, v)

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType(contentKind(s.CurrentURI())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *PreviewServer) handleRendered(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text := s.store.Content()
	if contentKind(s.CurrentURI()) != preview.KindHTML {
		text = wrapPlainText(text)
	}

	rendered, err := injectReloadScript(text)
	if err != nil {
		s.logger.Warn(r.Context(), err, "Failed to inject reload script")
		http.Error(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(rendered)
}

func (s *PreviewServer) handleSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind := contentKind(s.CurrentURI())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := highlight(w, s.store.Content(), kind, s.opts.Style); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to highlight source", "kind", kind)
		http.Error(w, "Failed to highlight source", http.StatusInternalServerError)
	}
}

func (s *PreviewServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var status preview.Status
	if p := s.getPreviewer(); p != nil {
		status = p.Status()
	} else {
		status = preview.Status{URI: s.CurrentURI(), Version: s.store.Version()}
	}

	s.writeJSON(w, r, http.StatusOK, StatusResponse{
		Status:   status,
		ReadOnly: s.ReadOnly(),
		Clients:  s.ClientCount(),
		Error:    s.LastError(),
	})
}

func (s *PreviewServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := s.getPreviewer()
	if p == nil {
		s.writeJSON(w, r, http.StatusServiceUnavailable, PreviewResponse{Error: "no preview pipeline attached"})
		return
	}

	editor, err := p.PreviewDocument(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		var pe *errors.PreviewError
		if stderrors.As(err, &pe) && pe.Type == errors.ErrorTypeValidation {
			code = http.StatusConflict
		}
		s.writeJSON(w, r, code, PreviewResponse{Error: errors.UserMessage(err)})
		return
	}

	resp := PreviewResponse{Column: editor.Column}
	if editor.Document != nil {
		resp.URI = editor.Document.Path()
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"clients":    s.ClientCount(),
	}

	s.writeJSON(w, r, http.StatusOK, health)
}

func (s *PreviewServer) writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode response", "path", r.URL.Path)
	}
}

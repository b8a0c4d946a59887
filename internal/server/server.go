// Package server serves the converted preview over HTTP.
//
// A PreviewServer shows the Content Store in a browser page that reloads
// over a websocket whenever the store announces new content. It is the
// Presenter behind the filesystem host: presenting the preview focuses the
// page, and errors surface as a banner.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/host"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
	"github.com/conneroisu/slimview/internal/validation"
)

// Message types sent to websocket clients.
const (
	MessageReload = "reload"
	MessageError  = "error"
	MessageFocus  = "focus"
)

// Defaults applied by New.
const (
	DefaultHost  = "localhost"
	DefaultPort  = 8080
	DefaultStyle = "github"

	shutdownTimeout = 5 * time.Second
)

var browserCommands = map[string]bool{
	"xdg-open": true,
	"open":     true,
	"rundll32": true,
}

// Options configures a PreviewServer.
type Options struct {
	Host           string
	Port           int
	Open           bool
	AllowedOrigins []string
	Style          string
}

// Previewer is the part of the preview pipeline the server drives.
type Previewer interface {
	PreviewDocument(ctx context.Context) (host.Editor, error)
	Status() preview.Status
}

// Message is a live-reload notification.
type Message struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PreviewServer serves the preview page and pushes live reloads.
type PreviewServer struct {
	opts   Options
	store  *content.Store
	logger logging.Logger

	previewer      Previewer
	previewerMutex sync.RWMutex

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once

	stateMutex sync.RWMutex
	currentURI string
	lastError  string
	readOnly   atomic.Bool
	opened     atomic.Bool

	openURL func(url string) error
}

// New creates a PreviewServer over store.
func New(opts Options, store *content.Store, logger logging.Logger) *PreviewServer {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Style == "" {
		opts.Style = DefaultStyle
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &PreviewServer{
		opts:       opts,
		store:      store,
		logger:     logger.WithComponent("server"),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		openURL:    openBrowser,
	}
}

// SetPreviewer attaches the pipeline behind POST /api/preview and
// /api/status.
func (s *PreviewServer) SetPreviewer(p Previewer) {
	s.previewerMutex.Lock()
	defer s.previewerMutex.Unlock()
	s.previewer = p
}

func (s *PreviewServer) getPreviewer() Previewer {
	s.previewerMutex.RLock()
	defer s.previewerMutex.RUnlock()
	return s.previewer
}

// Addr returns the listen address.
func (s *PreviewServer) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// URL returns the address a browser should open.
func (s *PreviewServer) URL() string {
	h := s.opts.Host
	if h == "0.0.0.0" || h == "::" {
		h = DefaultHost
	}
	return "http://" + net.JoinHostPort(h, strconv.Itoa(s.opts.Port))
}

// Handler returns the routed and wrapped HTTP handler.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/content", s.handleContent)
	mux.HandleFunc("/rendered", s.handleRendered)
	mux.HandleFunc("/source", s.handleSource)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/", s.handleIndex)

	return s.addMiddleware(mux)
}

func (s *PreviewServer) addMiddleware(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "X-Request-ID"},
		AllowCredentials: false,
	})
	wrapped := c.Handler(handler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")

		start := time.Now()
		wrapped.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *PreviewServer) corsOrigins() []string {
	port := strconv.Itoa(s.opts.Port)
	origins := []string{
		"http://" + net.JoinHostPort(s.opts.Host, port),
		"http://" + net.JoinHostPort("localhost", port),
		"http://" + net.JoinHostPort("127.0.0.1", port),
	}
	return append(origins, s.opts.AllowedOrigins...)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *PreviewServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.run(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Graceful shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Preview server listening", "url", s.URL())

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// run starts the websocket hub and the store forwarder.
func (s *PreviewServer) run(ctx context.Context) {
	go s.runWebSocketHub(ctx)

	sub := s.store.Subscribe()
	go s.forwardReloads(ctx, sub)
}

func (s *PreviewServer) forwardReloads(ctx context.Context, sub *content.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case uri, ok := <-sub.C():
			if !ok {
				return
			}
			s.stateMutex.Lock()
			s.currentURI = uri
			s.lastError = ""
			s.stateMutex.Unlock()

			s.broadcastMessage(Message{Type: MessageReload, Target: uri})
		}
	}
}

// Shutdown closes websocket clients and stops the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down preview server")
		close(s.done)

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *PreviewServer) broadcastMessage(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal message", "type", msg.Type)
		return
	}

	select {
	case s.broadcast <- data:
	case <-s.done:
	default:
		s.logger.Warn(context.Background(), nil, "Broadcast queue full, message dropped", "type", msg.Type)
	}
}

// Present implements fshost.Presenter. The browser is opened the first
// time when the server was configured to open it.
func (s *PreviewServer) Present(ctx context.Context, uri string, column int, preserveFocus bool) error {
	s.stateMutex.Lock()
	s.currentURI = uri
	s.stateMutex.Unlock()

	if !preserveFocus {
		s.broadcastMessage(Message{Type: MessageFocus, Target: uri})
	}

	if s.opts.Open && s.opened.CompareAndSwap(false, true) {
		go func() {
			time.Sleep(100 * time.Millisecond) // Give server time to start
			if err := s.openURL(s.URL()); err != nil {
				s.logger.Warn(ctx, err, "Failed to open browser", "url", s.URL())
			}
		}()
	}

	s.logger.Debug(ctx, "Preview presented", "uri", uri, "column", column)
	return nil
}

// ShowError implements fshost.Presenter.
func (s *PreviewServer) ShowError(ctx context.Context, message string) {
	message = validation.SanitizeInput(message)

	s.stateMutex.Lock()
	s.lastError = message
	s.stateMutex.Unlock()

	s.broadcastMessage(Message{Type: MessageError, Content: message})
}

// SetReadOnly implements fshost.ReadOnlyPresenter.
func (s *PreviewServer) SetReadOnly(readOnly bool) {
	s.readOnly.Store(readOnly)
}

// ReadOnly reports whether the preview is locked.
func (s *PreviewServer) ReadOnly() bool {
	return s.readOnly.Load()
}

// CurrentURI returns the last presented or reloaded preview URI.
func (s *PreviewServer) CurrentURI() string {
	s.stateMutex.RLock()
	uri := s.currentURI
	s.stateMutex.RUnlock()

	if uri == "" {
		if p := s.getPreviewer(); p != nil {
			uri = p.Status().URI
		}
	}
	return uri
}

// LastError returns the error currently shown on the page.
func (s *PreviewServer) LastError() string {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.lastError
}

func openBrowser(url string) error {
	if err := validation.ValidateURL(url); err != nil {
		return err
	}

	var name string
	var args []string
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		name = "xdg-open"
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	case "darwin":
		name = "open"
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err := validation.ValidateCommand(name, browserCommands); err != nil {
		return err
	}

	return exec.Command(name, append(args, url)...).Start()
}

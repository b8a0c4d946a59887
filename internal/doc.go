// Package internal contains the core implementation packages for slimview.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - debounce: Generic trailing-edge debouncer
//   - content: The single-slot virtual document store with change notifications
//   - convert: HTTP client for the Slim and HTML conversion services
//   - preview: Conversion pipeline, preview URIs and document kinds
//   - host: The editor facade the pipeline drives
//   - fshost: Host over a file on disk, presented by the preview server
//   - nvimhost: Host inside Neovim as a remote plugin
//   - server: HTTP preview server with websocket live reload
//   - watcher: File system monitoring with debouncing
//   - config: Configuration loading and validation
//   - errors: Typed errors, user messages and the central error handler
//   - logging: Structured, context-aware logging
//   - validation: URL, origin and path checks
//   - version: Build information
//
// # Inter-Package Communication
//
//   - A host reports document changes; the pipeline debounces them
//   - The pipeline converts through a convert.Converter and writes the store
//   - The store notifies subscribers: the preview server and the Neovim host
//   - Failures reach the user through the host's error message channel
//
// For detailed documentation, see the individual package documentation.
package internal

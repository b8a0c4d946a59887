// Package preview runs the conversion pipeline behind a live preview.
//
// A Pipeline listens for changes to the host's active document, waits for
// typing to settle, converts the document with a remote service and publishes
// the result to a content.Store under a derived preview URI. At most one
// conversion is in flight; changes that arrive meanwhile are dropped.
package preview

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/slimview/internal/convert"
)

// Document kinds understood by the pipeline.
const (
	KindSlim = "slim"
	KindHTML = "html"
)

// DefaultKinds is the watched set used when none is configured.
var DefaultKinds = []string{KindSlim, KindHTML}

var titleCaser = cases.Title(language.English)

// DirectionFor returns the conversion direction for a source document kind.
func DirectionFor(kind string) (convert.Direction, bool) {
	switch strings.ToLower(kind) {
	case KindSlim:
		return convert.ToHTML, true
	case KindHTML:
		return convert.ToSlim, true
	default:
		return 0, false
	}
}

// TargetKind returns the kind produced by converting a document of kind.
func TargetKind(kind string) string {
	if strings.EqualFold(kind, KindHTML) {
		return KindSlim
	}
	return KindHTML
}

// DisplayName returns a human readable name for a kind.
func DisplayName(kind string) string {
	switch strings.ToLower(kind) {
	case KindHTML:
		return "HTML"
	case "":
		return ""
	default:
		return titleCaser.String(kind)
	}
}

// IsKnownKind reports whether kind has a conversion direction.
func IsKnownKind(kind string) bool {
	_, ok := DirectionFor(kind)
	return ok
}

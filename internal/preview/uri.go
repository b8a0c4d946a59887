package preview

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/errors"
)

// DefaultScheme routes preview URIs to the content store.
const DefaultScheme = "slim-to-html"

const htmlExtension = ".html"

// URI identifies a virtual preview document.
type URI struct {
	Scheme string
	Path   string
}

// String renders the URI as scheme://path.
func (u URI) String() string {
	return (&url.URL{Scheme: u.Scheme, Path: u.Path}).String()
}

// IsZero reports whether u is unset.
func (u URI) IsZero() bool {
	return u.Scheme == "" && u.Path == ""
}

// DeriveURI maps a source path to its preview URI for direction.
//
// ToHTML appends ".html". ToSlim strips a trailing ".html" or ".htm".
// Backslashes become forward slashes and the path always starts with "/".
func DeriveURI(scheme, sourcePath string, direction convert.Direction) URI {
	if scheme == "" {
		scheme = DefaultScheme
	}

	p := strings.ReplaceAll(sourcePath, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	switch direction {
	case convert.ToHTML:
		p += htmlExtension
	case convert.ToSlim:
		p = stripHTMLExtension(p)
	}

	return URI{Scheme: scheme, Path: p}
}

// PreviewURI derives the preview URI for a source document of kind.
func PreviewURI(scheme, sourcePath, kind string) (URI, error) {
	direction, ok := DirectionFor(kind)
	if !ok {
		return URI{}, errors.ErrUnsupportedKind(kind).WithPath(sourcePath)
	}
	return DeriveURI(scheme, sourcePath, direction), nil
}

// ParseURI parses the string form produced by URI.String.
func ParseURI(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, errors.ErrInvalidURL(raw, err)
	}
	if u.Scheme == "" {
		return URI{}, errors.ErrInvalidURL(raw, fmt.Errorf("missing scheme"))
	}

	p := u.Path
	if u.Host != "" {
		p = "/" + u.Host + p
	}
	if p == "" {
		return URI{}, errors.ErrInvalidURL(raw, fmt.Errorf("missing path"))
	}

	return URI{Scheme: u.Scheme, Path: p}, nil
}

func stripHTMLExtension(p string) string {
	lower := strings.ToLower(p)
	for _, ext := range []string{".html", ".htm"} {
		if strings.HasSuffix(lower, ext) {
			return p[:len(p)-len(ext)]
		}
	}
	return p
}

// DisplayColumn returns the column the preview opens in, to the right of
// the source column and wrapping from the third back to the second.
func DisplayColumn(column int) int {
	switch {
	case column < 1:
		return 2
	case column >= 3:
		return 2
	default:
		return column + 1
	}
}

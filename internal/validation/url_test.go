package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/slimview/internal/errors"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expectErr bool
	}{
		{name: "valid http URL", url: "http://localhost:8080", expectErr: false},
		{name: "valid https URL", url: "https://example.com", expectErr: false},
		{name: "valid URL with path", url: "http://127.0.0.1:3000/preview", expectErr: false},
		{name: "javascript scheme", url: "javascript:alert('xss')", expectErr: true},
		{name: "file scheme", url: "file:///etc/passwd", expectErr: true},
		{name: "semicolon injection", url: "http://localhost:8080;rm -rf /", expectErr: true},
		{name: "backtick injection", url: "http://localhost:8080/`whoami`", expectErr: true},
		{name: "newline", url: "http://localhost:8080\nopen", expectErr: true},
		{name: "space", url: "http://localhost 8080", expectErr: true},
		{name: "missing host", url: "http:///path", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	assert.NoError(t, ValidateEndpoint("http://preprocessor.codepen.io"))
	assert.NoError(t, ValidateEndpoint("http://www.html2slim.net/convert.json"))
	assert.NoError(t, ValidateEndpoint("https://example.com/convert?format=json&v=2"))

	assert.Error(t, ValidateEndpoint(""))
	assert.Error(t, ValidateEndpoint("ftp://example.com"))
	assert.Error(t, ValidateEndpoint("http://"))
	assert.Error(t, ValidateEndpoint("http://example.com/a b"))
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"localhost:8080", "http://127.0.0.1:8080"}

	assert.NoError(t, ValidateOrigin("http://localhost:8080", allowed))
	assert.NoError(t, ValidateOrigin("http://127.0.0.1:8080", allowed))
	assert.NoError(t, ValidateOrigin("https://anything.example", []string{"*"}))

	assert.Error(t, ValidateOrigin("", allowed))
	assert.Error(t, ValidateOrigin("http://evil.example", allowed))
	assert.Error(t, ValidateOrigin("file://localhost:8080", allowed))
}

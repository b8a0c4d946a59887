package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	slimvalidation "github.com/conneroisu/slimview/internal/validation"
)

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Validate validates configuration values for security and correctness.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Conversion),
		validation.Field(&c.Preview),
		validation.Field(&c.Logging),
	)
}

// Validate implements validation.Validatable.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.Host, validation.By(noDangerousChars)),
		validation.Field(&s.AllowedOrigins, validation.Each(validation.Required, validation.By(noDangerousChars))),
	)
}

// Validate implements validation.Validatable.
func (c ConversionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HTMLEndpoint, validation.Required, is.URL, validation.By(endpoint)),
		validation.Field(&c.SlimEndpoint, validation.Required, is.URL, validation.By(endpoint)),
		validation.Field(&c.PreProcessor, validation.Required, is.Alphanumeric),
		validation.Field(&c.Timeout, validation.Min(100*time.Millisecond), validation.Max(10*time.Minute)),
		validation.Field(&c.MaxResponseBytes, validation.Min(int64(1024))),
	)
}

// Validate implements validation.Validatable.
func (p PreviewConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Scheme, validation.Required, validation.Match(schemePattern)),
		validation.Field(&p.Debounce, validation.Min(time.Duration(0)), validation.Max(time.Minute)),
		validation.Field(&p.Kinds, validation.Required, validation.Each(validation.In("slim", "html"))),
		validation.Field(&p.Style, validation.Length(0, 64)),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func endpoint(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if err := slimvalidation.ValidateEndpoint(s); err != nil {
		return fmt.Errorf("must be an http or https URL")
	}
	return nil
}

func noDangerousChars(value interface{}) error {
	s, _ := value.(string)
	for _, char := range []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"} {
		if strings.Contains(s, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}
	return nil
}

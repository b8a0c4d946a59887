package convert

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Result is the decoded outcome of a conversion call. It is one of Success,
// ServiceError or MalformedResponse.
type Result interface {
	isResult()
}

// Success carries the converted text.
type Success struct {
	Text string
}

// ServiceError carries the message the service reported for the input.
type ServiceError struct {
	Message string
}

// MalformedResponse is any body that matches neither envelope.
type MalformedResponse struct {
	Reason string
}

func (Success) isResult()           {}
func (ServiceError) isResult()      {}
func (MalformedResponse) isResult() {}

// Error envelope paths shared by both services. The "error" spelling is an
// older variant of the preprocessor API.
var errorMessagePaths = []string{
	"errors.html.message",
	"error.html.message",
}

// Decode classifies body according to the wire contract of direction.
func Decode(direction Direction, body []byte) Result {
	if len(strings.TrimSpace(string(body))) == 0 {
		return MalformedResponse{Reason: "empty response body"}
	}
	if !gjson.ValidBytes(body) {
		return MalformedResponse{Reason: "response is not valid JSON"}
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return MalformedResponse{Reason: "response is not a JSON object"}
	}

	for _, path := range errorMessagePaths {
		if msg := parsed.Get(path); msg.Exists() && msg.String() != "" {
			return ServiceError{Message: msg.String()}
		}
	}

	var text gjson.Result
	switch direction {
	case ToHTML:
		text = parsed.Get("results.html")
	case ToSlim:
		text = parsed.Get("data.slim")
	default:
		return MalformedResponse{Reason: "unknown direction " + direction.String()}
	}

	if text.Type != gjson.String || text.String() == "" {
		return MalformedResponse{Reason: "unexpected response envelope"}
	}

	return Success{Text: text.String()}
}

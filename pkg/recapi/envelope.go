package recapi

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// ParseEnvelope decodes a response body as an envelope. It fails for bodies
// that are not JSON objects.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope

	err := json.Unmarshal(body, &env)
	if err != nil {
		return nil, err
	}

	return &env, nil
}

// PayloadFromEnvelope unwraps a 2xx envelope. A missing envelope or one that
// reports success=false is a ValidationError.
func PayloadFromEnvelope(env *Envelope) (*Payload, error) {
	if env == nil {
		return nil, NewValidationError(Violation{
			Field:   "",
			Rule:    "envelope",
			Message: "response is not a valid envelope",
		})
	}

	if !env.Success {
		msg := "envelope reports success=false"
		if env.Message != "" {
			msg += ": " + env.Message
		}

		return nil, NewValidationError(Violation{Field: "success", Rule: "envelope", Message: msg})
	}

	return &Payload{
		Data:       env.Data,
		Pagination: env.Pagination,
		Message:    env.Message,
	}, nil
}

// ErrorMessage extracts a human readable message from a failed response:
// the envelope message if there is one, else the leading part of the body.
func ErrorMessage(env *Envelope, body []byte, limit int) string {
	if env != nil && env.Message != "" {
		return env.Message
	}

	text := strings.TrimSpace(string(body))
	if limit > 0 && len(text) > limit {
		text = text[:limit]
		for !utf8.ValidString(text) && len(text) > 0 {
			text = text[:len(text)-1]
		}
	}

	return text
}

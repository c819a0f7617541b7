package featureservice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ServiceError is the error object returned inside a feature-service response
// body. Raw holds the object exactly as the service sent it.
type ServiceError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Details []string        `json:"details,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("featureservice: service error")
	if e.Code != 0 {
		fmt.Fprintf(&b, " %d", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Details, "; "))
	}
	if e.Code == 0 && e.Message == "" && len(e.Raw) > 0 {
		b.WriteString(": ")
		b.Write(e.Raw)
	}
	return b.String()
}

// MarshalJSON writes the verbatim service error object.
func (e *ServiceError) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type plain ServiceError
	return json.Marshal((*plain)(e))
}

// TransportError reports that the request itself failed: connection, status
// or cancellation.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return "featureservice: request " + redactToken(e.URL) + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not valid JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return "featureservice: decode response from " + redactToken(e.URL) + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeServiceError parses the error member. Objects that do not match the
// usual {code, message, details} layout still produce a ServiceError with Raw set.
func decodeServiceError(raw json.RawMessage) *ServiceError {
	se := &ServiceError{Raw: append(json.RawMessage(nil), raw...)}
	var parsed struct {
		Code    json.Number `json:"code"`
		Message string      `json:"message"`
		Details []string    `json:"details"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		var msg string
		if json.Unmarshal(raw, &msg) == nil {
			se.Message = msg
		}
		return se
	}
	if n, err := parsed.Code.Int64(); err == nil {
		se.Code = int(n)
	}
	se.Message = parsed.Message
	se.Details = parsed.Details
	return se
}

// isTruthy reports whether a raw JSON value would be truthy in the service's
// client libraries: not null, false, "" or a number equal to zero.
func isTruthy(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return true
}

func redactToken(rawURL string) string {
	i := strings.Index(rawURL, "token=")
	if i < 0 {
		return rawURL
	}
	end := strings.IndexByte(rawURL[i:], '&')
	if end < 0 {
		return rawURL[:i] + "token=REDACTED"
	}
	return rawURL[:i] + "token=REDACTED" + rawURL[i+end:]
}

package apierr

import "time"

// Descriptor is the immutable classification of one failed exchange.
type Descriptor struct {
	Kind        Kind      `json:"kind"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	UserMessage string    `json:"user_message"`
	Code        string    `json:"code,omitempty"`
	StatusCode  int       `json:"status_code,omitempty"`
	URL         string    `json:"url,omitempty"`
	Method      string    `json:"method,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Retryable   bool      `json:"retryable"`
}

// HasStatus reports whether the failure carried an HTTP response.
func (d Descriptor) HasStatus() bool {
	return d.StatusCode > 0
}

// IsUnauthorized reports whether d is the 401 that ends a session.
func (d Descriptor) IsUnauthorized() bool {
	return d.Kind == KindAuthentication && d.StatusCode == 401
}

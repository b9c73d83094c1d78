// Package ingest holds what the history importers share.
package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int   `json:"sessions_received"`
	SessionsInserted int64 `json:"sessions_inserted"`
	// SessionsSkipped counts sessions already stored by an earlier import.
	SessionsSkipped int64 `json:"sessions_skipped"`
	SetsReceived    int   `json:"sets_received"`

	Message string `json:"message,omitempty"`
}

// ParseError reports an export that could not be read. Failures to store a
// parsed export are returned unwrapped.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parsing export: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

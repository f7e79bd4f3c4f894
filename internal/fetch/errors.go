package fetch

import "fmt"

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindParse       ErrorKind = "parse"
	KindUnsupported ErrorKind = "unsupported-type"
)

// FetchError is returned when a single source cannot be read. It is recorded
// against that source and never aborts the rest of a sync cycle.
type FetchError struct {
	Kind     ErrorKind
	SourceID string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s error fetching %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

package processor

import "fmt"

// MalformedQueryError reports a query that did not tokenize into
// TYPE START END with integer timestamps.
type MalformedQueryError struct {
	Raw    string
	Reason string
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("malformed query %q: %s", e.Raw, e.Reason)
}

// UnknownTypeError reports a query type outside {B, S, C, V}.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown query type %q", e.Type)
}

// FetchError wraps a fill source failure for one hour window. The failing
// hour is never cached, so a later retry of the same query fetches again.
type FetchError struct {
	HourStart int64
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch fills for hour %d: %v", e.HourStart, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

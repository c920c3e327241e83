package media

import "fmt"

// ErrorTag classifies an ingestion problem.
type ErrorTag string

const (
	// TagUnsupported marks a file whose format could not be determined.
	TagUnsupported ErrorTag = "unsupported-type"
	// TagTruncated marks a file that decoded only after repair. It is still indexed.
	TagTruncated ErrorTag = "truncated"
	// TagDecodeFailed marks a recognized file that could not be decoded.
	TagDecodeFailed ErrorTag = "decode-failed"
	// TagIOError marks a file that could not be read.
	TagIOError ErrorTag = "io-error"
	// TagHashChanged marks an indexed file whose checksum no longer matches.
	TagHashChanged ErrorTag = "hash-changed"
)

// ExtractError is returned by an Extractor when a file cannot be indexed.
type ExtractError struct {
	Path string
	Tag  ErrorTag
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Tag, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

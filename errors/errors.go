package errors

import "errors"

var (
	ErrBadConfig          = errors.New("config: invalid config")
	ErrUnsupportedProduct = errors.New("config: unsupported product")
	ErrUnsupportedChannel = errors.New("config: unsupported channel")
	ErrUnsupportedFormat  = errors.New("config: unsupported format")
	ErrRepoNotFound       = errors.New("repository: not found")
	ErrMissingField       = errors.New("control block: missing required field")
	ErrMalformedVersion   = errors.New("control block: malformed version")
	ErrBadHTTPStatusCode  = errors.New("http: bad status code")
	ErrIteratorDone       = errors.New("iterator: done")
	ErrBatchTooLarge      = errors.New("delete: batch size exceeds API limit")
	ErrBatchFailed        = errors.New("delete: one or more batches failed")
)

package model

// ErrorKind names a failure class. Kinds are used as log fields and as the
// prefix of FusedResult.TextError so callers can tell degraded paths apart.
type ErrorKind string

const (
	// KindInvalidInput: the URL could not be parsed. Recovered with a
	// neutral score.
	KindInvalidInput ErrorKind = "invalid_input"

	// KindNetwork: the remote model was unreachable or answered non-2xx.
	KindNetwork ErrorKind = "network_failure"

	// KindTimeout: the remote model did not answer within its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindResponseShape: the remote model answered with nothing parseable.
	KindResponseShape ErrorKind = "unexpected_response_shape"

	// KindStorage: the state store failed. Not recoverable locally.
	KindStorage ErrorKind = "storage_failure"
)

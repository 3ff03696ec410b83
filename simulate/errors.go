package simulate

import "errors"

var (
	// ErrMalformedTrace is returned when a trace lacks its root entry or an
	// entry the root declares as a subtrace.
	ErrMalformedTrace = errors.New("malformed trace")
	ErrNoClient       = errors.New("simulator has no rpc client")
	ErrNoIdentity     = errors.New("simulator has no signer identity")
)

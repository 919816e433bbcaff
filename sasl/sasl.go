// Package sasl declares the interfaces implemented by the SASL mechanisms that
// trim.Client can authenticate with.
package sasl

import "context"

// Mechanism implements the SASL state machine of one mode of authentication.
//
// A Mechanism is used for every connection opened by a client, it must be
// reusable and safe for concurrent use by multiple goroutines.
type Mechanism interface {
	// Name returns the identifier of the mechanism, as sent in the
	// SaslHandshake request. It must match one of the mechanisms enabled on
	// the broker.
	Name() string

	// Start begins authentication and returns the state machine of the
	// exchange along with the initial response sent to the broker.
	//
	// A nil ir means the mechanism has no initial response, an empty non-nil
	// ir is sent as an empty payload.
	Start(ctx context.Context) (sess StateMachine, ir []byte, err error)
}

// NeedsHost is implemented by mechanisms which need to know the host name of
// the broker they authenticate with.
type NeedsHost interface {
	// WithHost returns a Mechanism bound to address, which is the host the
	// connection was made to, without the port number.
	WithHost(address string) Mechanism
}

// StateMachine drives the challenge/response flow of a single
// authentication. It is created per connection and is not used concurrently.
//
// The caller passes each challenge received from the broker to Next and sends
// back the returned response, until Next reports that it is done or returns an
// error.
type StateMachine interface {
	Next(ctx context.Context, challenge []byte) (done bool, response []byte, err error)
}

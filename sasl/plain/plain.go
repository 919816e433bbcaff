// Package plain implements the PLAIN SASL mechanism, which sends credentials
// in clear text and should only be used over encrypted connections.
package plain

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-trim/sasl"
)

// Mechanism implements sasl.Mechanism for PLAIN.
type Mechanism struct {
	Username string
	Password string
}

func (Mechanism) Name() string { return "PLAIN" }

func (m Mechanism) Start(ctx context.Context) (sasl.StateMachine, []byte, error) {
	return m, []byte(fmt.Sprintf("\x00%s\x00%s", m.Username, m.Password)), nil
}

func (m Mechanism) Next(ctx context.Context, challenge []byte) (bool, []byte, error) {
	// The broker fails the SaslAuthenticate request when the credentials are
	// rejected, reaching this point means they were accepted.
	return true, nil, nil
}

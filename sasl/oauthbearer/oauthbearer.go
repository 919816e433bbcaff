// Package oauthbearer implements the OAUTHBEARER SASL mechanism described in
// RFC 7628.
package oauthbearer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/segmentio/kafka-trim/sasl"
)

// ErrOAuthBearerAuth is matched by the errors returned when the broker rejects
// the token.
var ErrOAuthBearerAuth = errors.New("oauthbearer: authentication failed")

// Mechanism implements the OAUTHBEARER mechanism, the token is obtained from
// TokenFunc at the start of every exchange.
type Mechanism struct {
	// TokenFunc returns the bearer token sent to the broker. Required.
	TokenFunc func(ctx context.Context) (string, error)

	// Extensions are sent as key=value pairs after the token, sorted by key.
	Extensions map[string]string
}

// StaticToken returns a Mechanism which always sends token.
func StaticToken(token string) *Mechanism {
	return &Mechanism{
		TokenFunc: func(context.Context) (string, error) { return token, nil },
	}
}

func (*Mechanism) Name() string { return "OAUTHBEARER" }

func (m *Mechanism) Start(ctx context.Context) (sasl.StateMachine, []byte, error) {
	if m.TokenFunc == nil {
		return nil, nil, errors.New("oauthbearer: TokenFunc is required")
	}

	token, err := m.TokenFunc(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("oauthbearer: failed to get token: %w", err)
	}
	if token == "" {
		return nil, nil, errors.New("oauthbearer: token cannot be empty")
	}

	return m, initialResponse(token, m.Extensions), nil
}

// Next completes the exchange when the broker accepted the token. A non-empty
// challenge carries the error status of the broker, which expects a single
// 0x01 byte in reply before failing the authentication.
func (m *Mechanism) Next(ctx context.Context, challenge []byte) (bool, []byte, error) {
	if len(challenge) == 0 {
		return true, nil, nil
	}
	return false, []byte{0x01}, parseError(challenge)
}

func initialResponse(token string, extensions map[string]string) []byte {
	b := new(strings.Builder)
	b.WriteString("n,,\x01auth=Bearer ")
	b.WriteString(token)
	b.WriteByte(0x01)

	keys := make([]string, 0, len(extensions))
	for k := range extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(extensions[k])
		b.WriteByte(0x01)
	}

	b.WriteByte(0x01)
	return []byte(b.String())
}

// Error is the error status returned by the broker when it rejects a token.
type Error struct {
	Status              string `json:"status"`
	Scope               string `json:"scope,omitempty"`
	OpenIDConfiguration string `json:"openid-configuration,omitempty"`

	// Raw is the challenge the error was parsed from.
	Raw []byte `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Status != "" && e.Scope != "":
		return fmt.Sprintf("oauthbearer: status=%s scope=%s", e.Status, e.Scope)
	case e.Status != "":
		return fmt.Sprintf("oauthbearer: status=%s", e.Status)
	case len(e.Raw) != 0:
		return "oauthbearer: " + string(e.Raw)
	default:
		return ErrOAuthBearerAuth.Error()
	}
}

func (e *Error) Is(target error) bool { return target == ErrOAuthBearerAuth }

func (e *Error) IsInvalidToken() bool { return e.Status == "invalid_token" }

func (e *Error) IsInsufficientScope() bool { return e.Status == "insufficient_scope" }

// parseError never fails, challenges which are not JSON objects are kept in
// Raw only.
func parseError(challenge []byte) *Error {
	e := &Error{}
	if json.Unmarshal(challenge, e) != nil {
		*e = Error{}
	}
	e.Raw = challenge
	return e
}

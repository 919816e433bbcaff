// Package gssapi authenticates with Kerberos v5 through the GSSAPI SASL
// mechanism, using tickets from github.com/jcmturner/gokrb5/v8.
package gssapi

import (
	"context"
	"encoding/asn1"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/gssapi"
	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"

	"github.com/segmentio/kafka-trim/sasl"
)

// ErrMissingHost is returned by Start on a mechanism that was not bound to a
// broker with WithHost.
var ErrMissingHost = errors.New("gssapi: no broker host to request a service ticket for")

// krbAPReqTokenID precedes the AP-REQ in the initial context token, RFC 4121
// section 4.1.
const krbAPReqTokenID = "\x01\x00"

type mechanism struct {
	client      *client.Client
	serviceName string
	host        string
}

// Mechanism authenticates as the principal of cl against the
// serviceName/host principal of each broker, serviceName is usually "kafka".
// trim.Client binds the host through sasl.NeedsHost.
func Mechanism(cl *client.Client, serviceName string) sasl.Mechanism {
	return mechanism{client: cl, serviceName: serviceName}
}

func (mechanism) Name() string { return "GSSAPI" }

func (m mechanism) WithHost(host string) sasl.Mechanism {
	m.host = host
	return m
}

func (m mechanism) Start(ctx context.Context) (sasl.StateMachine, []byte, error) {
	if m.host == "" {
		return nil, nil, ErrMissingHost
	}
	spn := m.serviceName + "/" + m.host

	req, subKey, err := m.apRequest(spn)
	if err != nil {
		return nil, nil, fmt.Errorf("gssapi: building AP-REQ for %s: %w", spn, err)
	}

	token, err := initialContextToken(append([]byte(krbAPReqTokenID), req...))
	if err != nil {
		return nil, nil, fmt.Errorf("gssapi: encoding context token: %w", err)
	}
	return &session{key: subKey}, token, nil
}

// apRequest returns the marshaled AP-REQ for spn and the session subkey the
// broker wraps its security layer token with.
func (m mechanism) apRequest(spn string) ([]byte, types.EncryptionKey, error) {
	var subKey types.EncryptionKey

	ticket, sessionKey, err := m.client.GetServiceTicket(spn)
	if err != nil {
		return nil, subKey, err
	}
	auth, err := types.NewAuthenticator(m.client.Credentials.Realm(), m.client.Credentials.CName())
	if err != nil {
		return nil, subKey, err
	}
	et, err := crypto.GetEtype(sessionKey.KeyType)
	if err != nil {
		return nil, subKey, err
	}
	if err := auth.GenerateSeqNumberAndSubKey(sessionKey.KeyType, et.GetKeyByteSize()); err != nil {
		return nil, subKey, err
	}
	auth.Cksum = types.Checksum{CksumType: chksumtype.GSSAPI, Checksum: pseudoChecksum()}

	ap, err := messages.NewAPReq(ticket, sessionKey, auth)
	if err != nil {
		return nil, subKey, err
	}
	b, err := ap.Marshal()
	return b, auth.SubKey, err
}

// pseudoChecksum is the authenticator checksum carrying the GSS context
// flags, RFC 4121 section 4.1.1. Only integrity is requested.
func pseudoChecksum() []byte {
	var b [24]byte
	binary.LittleEndian.PutUint32(b[:4], 16) // length of the channel binding
	binary.LittleEndian.PutUint32(b[20:], uint32(gssapi.ContextFlagInteg))
	return b[:]
}

// initialContextToken frames payload as RFC 2743 section 3.1 describes, an
// [APPLICATION 0] sequence of the mechanism OID and the inner token.
func initialContextToken(payload []byte) ([]byte, error) {
	return asn1.MarshalWithParams(struct {
		Mech  asn1.ObjectIdentifier
		Token asn1.RawValue
	}{
		Mech:  asn1.ObjectIdentifier(gssapi.OIDKRB5.OID()),
		Token: asn1.RawValue{FullBytes: payload},
	}, "application")
}

// session answers the security layer negotiation: the broker sends a wrap
// token which is echoed back signed with the subkey.
type session struct {
	key  types.EncryptionKey
	sent bool
}

func (s *session) Next(ctx context.Context, challenge []byte) (bool, []byte, error) {
	if s.sent {
		return true, nil, nil
	}

	var in gssapi.WrapToken
	if err := in.Unmarshal(challenge, true); err != nil {
		return false, nil, fmt.Errorf("gssapi: decoding broker wrap token: %w", err)
	}
	if ok, err := in.Verify(s.key, keyusage.GSSAPI_ACCEPTOR_SEAL); !ok {
		return false, nil, fmt.Errorf("gssapi: broker wrap token rejected: %w", err)
	}

	out, err := gssapi.NewInitiatorWrapToken(in.Payload, s.key)
	if err != nil {
		return false, nil, fmt.Errorf("gssapi: building wrap token: %w", err)
	}
	b, err := out.Marshal()
	if err != nil {
		return false, nil, fmt.Errorf("gssapi: encoding wrap token: %w", err)
	}
	s.sent = true
	return false, b, nil
}

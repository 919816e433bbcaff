package trim

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/segmentio/kafka-trim/protocol"
	"github.com/segmentio/kafka-trim/protocol/deleterecords"
	"github.com/segmentio/kafka-trim/protocol/saslauthenticate"
	"github.com/segmentio/kafka-trim/protocol/saslhandshake"
	"github.com/segmentio/kafka-trim/sasl"
)

const (
	// DefaultClientID is the client id sent by clients which do not set one.
	DefaultClientID = "kafka-trim"

	saslHandshakeVersion    = 1
	saslAuthenticateVersion = 0
)

// Client sends DeleteRecords requests to a kafka broker.
//
// The broker must be the leader of the partitions listed in the requests,
// partitions led by other brokers are reported with NOT_LEADER_OR_FOLLOWER.
//
// Client values are safe to use concurrently from multiple goroutines, each
// call opens its own connection.
type Client struct {
	// Address of the kafka broker to send requests to.
	Addr net.Addr

	// Client id sent in the request headers, DefaultClientID when empty.
	ClientID string

	// Upper bound on the duration of each call, on top of the deadline of
	// the context. Zero means no limit other than the context.
	Timeout time.Duration

	// Dialer used to open connections, a zero net.Dialer when nil.
	Dialer *net.Dialer

	// TLS configuration of the connections, plain TCP is used when nil. The
	// server name defaults to the host of Addr.
	TLS *tls.Config

	// SASL mechanism used to authenticate connections, none when nil.
	SASL sasl.Mechanism

	// Collectors updated by the client, nothing is recorded when nil.
	Metrics *Metrics

	// Logger and ErrorLogger receive informational and error messages, they
	// are silent when nil.
	Logger      Logger
	ErrorLogger Logger
}

// DeleteRecords sends req to the broker and returns its response.
//
// The request is sent at its own version. An error matching
// ErrUnsupportedVersion is returned before any connection is made if the
// version is not defined for the DeleteRecords api. Errors reported by the
// broker for individual partitions are carried by the response, not by the
// returned error.
func (c *Client) DeleteRecords(ctx context.Context, req *DeleteRecordsRequest) (*DeleteRecordsResponse, error) {
	if req == nil {
		return nil, errors.New("trim.(*Client).DeleteRecords: nil request")
	}

	start := time.Now()
	res, err := c.deleteRecords(ctx, req)
	c.Metrics.observeRequest(sideClient, req.Version(), err, time.Since(start))

	if err != nil {
		logf(c.ErrorLogger, "deleting records of %d partitions on %s: %v", req.Len(), c.Addr, err)
		return nil, fmt.Errorf("trim.(*Client).DeleteRecords: %w", err)
	}

	c.Metrics.observeResponse(sideClient, res)
	logf(c.Logger, "deleted records of %d partitions on %s (%d errors)", res.Len(), c.Addr, len(res.Errors()))
	return res, nil
}

func (c *Client) deleteRecords(ctx context.Context, req *DeleteRecordsRequest) (*DeleteRecordsResponse, error) {
	m, err := req.Encode()
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	conn.SetVersions(map[protocol.ApiKey]int16{
		protocol.SaslHandshake:    saslHandshakeVersion,
		protocol.SaslAuthenticate: saslAuthenticateVersion,
		protocol.DeleteRecords:    req.Version(),
	})

	if c.SASL != nil {
		if err := c.authenticate(ctx, conn); err != nil {
			return nil, contextError(ctx, err)
		}
	}

	r, err := conn.RoundTrip(m)
	if err != nil {
		return nil, contextError(ctx, err)
	}

	return DecodeDeleteRecordsResponse(r.(*deleterecords.Response), req.Version())
}

func (c *Client) dial(ctx context.Context) (*protocol.Conn, error) {
	if c.Addr == nil {
		return nil, errors.New("missing broker address")
	}

	d := c.Dialer
	if d == nil {
		d = &net.Dialer{}
	}

	nc, err := d.DialContext(ctx, c.Addr.Network(), c.Addr.String())
	if err != nil {
		return nil, err
	}

	if c.TLS != nil {
		if nc, err = c.dialTLS(ctx, nc); err != nil {
			return nil, err
		}
	}

	clientID := c.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	return protocol.NewConn(nc, clientID), nil
}

func (c *Client) dialTLS(ctx context.Context, nc net.Conn) (net.Conn, error) {
	config := c.TLS
	if config.ServerName == "" {
		config = config.Clone()
		config.ServerName = c.host()
	}

	tc := tls.Client(nc, config)
	if err := tc.HandshakeContext(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return tc, nil
}

func (c *Client) host() string {
	host, _, err := net.SplitHostPort(c.Addr.String())
	if err != nil {
		return c.Addr.String()
	}
	return host
}

// authenticate runs the SASL exchange on conn. The connection is not closed
// on failure.
func (c *Client) authenticate(ctx context.Context, conn *protocol.Conn) error {
	mechanism := c.SASL
	if m, ok := mechanism.(sasl.NeedsHost); ok {
		mechanism = m.WithHost(c.host())
	}

	r, err := conn.RoundTrip(&saslhandshake.Request{Mechanism: mechanism.Name()})
	if err != nil {
		return err
	}
	if res := r.(*saslhandshake.Response); res.ErrorCode != 0 {
		return fmt.Errorf("sasl mechanism %s not enabled on the broker (enabled: %v): %w",
			mechanism.Name(), res.Mechanisms, Error(res.ErrorCode))
	}

	sess, state, err := mechanism.Start(ctx)
	if err != nil {
		return err
	}

	for completed := false; !completed; {
		challenge, err := c.saslAuthenticate(conn, state)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			// brokers may report a failed exchange by closing the connection
			return kerr.SaslAuthenticationFailed
		default:
			return err
		}

		completed, state, err = sess.Next(ctx, challenge)
		if err != nil {
			return err
		}
	}

	logf(c.Logger, "authenticated with %s on %s", mechanism.Name(), c.Addr)
	return nil
}

func (c *Client) saslAuthenticate(conn *protocol.Conn, data []byte) ([]byte, error) {
	r, err := conn.RoundTrip(&saslauthenticate.Request{AuthBytes: data})
	if err != nil {
		return nil, err
	}
	res := r.(*saslauthenticate.Response)
	if res.ErrorCode != 0 {
		if res.ErrorMessage != "" {
			return nil, fmt.Errorf("%s: %w", res.ErrorMessage, Error(res.ErrorCode))
		}
		return nil, Error(res.ErrorCode)
	}
	return res.AuthBytes, nil
}

// contextError reports the context error instead of the I/O error caused by
// the connection deadline when the context expired.
func contextError(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil && errors.Is(err, os.ErrDeadlineExceeded) {
		if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
			ctxErr = context.DeadlineExceeded
		}
	}
	if ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}

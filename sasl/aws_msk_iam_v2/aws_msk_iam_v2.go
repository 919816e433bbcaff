// Package aws_msk_iam_v2 implements the AWS_MSK_IAM SASL mechanism used by
// Amazon MSK clusters with IAM access control, signing with aws-sdk-go-v2.
package aws_msk_iam_v2

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	signer "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/segmentio/kafka-trim/sasl"
)

const (
	signAction       = "kafka-cluster:Connect"
	signService      = "kafka-cluster"
	signVersion      = "2020_10_22"
	signUserAgent    = "kafka-trim/aws_msk_iam_v2"
	signActionKey    = "action"
	signHostKey      = "host"
	signUserAgentKey = "user-agent"
	signVersionKey   = "version"
	queryActionKey   = "Action"
	queryExpiryKey   = "X-Amz-Expires"

	// sha256 of the empty payload
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	defaultExpiry = 5 * time.Minute
)

// ErrMissingHost is returned when the mechanism is started before being bound
// to the host of a broker.
var ErrMissingHost = errors.New("aws_msk_iam_v2: the broker host is part of the signed payload")

// Mechanism implements sasl.Mechanism for AWS_MSK_IAM.
type Mechanism struct {
	Signer      *signer.Signer
	Credentials aws.CredentialsProvider
	Region      string

	// Time at which requests are signed, the current time when zero.
	SignTime time.Time

	// Validity of the signature, 5 minutes when zero.
	Expiry time.Duration

	host string
}

// NewMechanism returns a mechanism signing with the credentials and region of
// cfg.
func NewMechanism(cfg aws.Config) *Mechanism {
	return &Mechanism{
		Signer:      signer.NewSigner(),
		Credentials: cfg.Credentials,
		Region:      cfg.Region,
	}
}

func (*Mechanism) Name() string { return "AWS_MSK_IAM" }

// WithHost implements sasl.NeedsHost.
func (m *Mechanism) WithHost(host string) sasl.Mechanism {
	c := *m
	c.host = host
	return &c
}

func (m *Mechanism) Start(ctx context.Context) (sasl.StateMachine, []byte, error) {
	if m.host == "" {
		return nil, nil, ErrMissingHost
	}
	if m.Credentials == nil {
		return nil, nil, errors.New("aws_msk_iam_v2: missing credentials provider")
	}

	creds, err := m.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, nil, err
	}

	expiry := m.Expiry
	if expiry == 0 {
		expiry = defaultExpiry
	}

	query := url.Values{
		queryActionKey: {signAction},
		queryExpiryKey: {strconv.Itoa(int(expiry / time.Second))},
	}
	target := url.URL{
		Scheme:   "kafka",
		Host:     m.host,
		Path:     "/",
		RawQuery: query.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	signTime := m.SignTime
	if signTime.IsZero() {
		signTime = time.Now()
	}

	s := m.Signer
	if s == nil {
		s = signer.NewSigner()
	}

	signedURL, _, err := s.PresignHTTP(ctx, creds, req, emptyPayloadHash, signService, m.Region, signTime)
	if err != nil {
		return nil, nil, err
	}

	u, err := url.Parse(signedURL)
	if err != nil {
		return nil, nil, err
	}

	payload := map[string]string{
		signVersionKey:   signVersion,
		signHostKey:      u.Host,
		signUserAgentKey: signUserAgent,
		signActionKey:    signAction,
	}
	for key, values := range u.Query() {
		payload[strings.ToLower(key)] = values[0]
	}

	b, err := json.Marshal(payload)
	return m, b, err
}

// Next completes the exchange, the broker replies once with the id of the
// authenticated session.
func (m *Mechanism) Next(ctx context.Context, challenge []byte) (bool, []byte, error) {
	return true, nil, nil
}

// Package azure_event_hubs_entra authenticates with the Kafka endpoint of
// Azure Event Hubs using Microsoft Entra ID tokens over OAUTHBEARER.
package azure_event_hubs_entra

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/segmentio/kafka-trim/sasl"
	"github.com/segmentio/kafka-trim/sasl/oauthbearer"
)

// ErrMissingHost is returned when the mechanism is started before being bound
// to the host of an Event Hubs namespace.
var ErrMissingHost = errors.New("azure_event_hubs_entra: the namespace host is needed to request a token")

type mechanism struct {
	credential azcore.TokenCredential
	host       string
}

// NewMechanism returns a mechanism requesting tokens for the namespace the
// client connects to. The returned value implements sasl.NeedsHost.
func NewMechanism(credential azcore.TokenCredential) sasl.Mechanism {
	return mechanism{credential: credential}
}

func (mechanism) Name() string { return "OAUTHBEARER" }

func (m mechanism) WithHost(host string) sasl.Mechanism {
	m.host = host
	return m
}

func (m mechanism) Start(ctx context.Context) (sasl.StateMachine, []byte, error) {
	if m.host == "" {
		return nil, nil, ErrMissingHost
	}
	bearer := &oauthbearer.Mechanism{TokenFunc: m.token}
	return bearer.Start(ctx)
}

func (m mechanism) token(ctx context.Context) (string, error) {
	t, err := m.credential.GetToken(ctx, tokenRequestOptions(m.host))
	if err != nil {
		return "", fmt.Errorf("failed to request an Azure Entra token: %w", err)
	}
	return t.Token, nil
}

func tokenRequestOptions(host string) policy.TokenRequestOptions {
	return policy.TokenRequestOptions{
		Scopes: []string{"https://" + host + "/.default"},
	}
}

package main

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/pkg/errors"

	"github.com/segmentio/kafka-trim/sasl"
	"github.com/segmentio/kafka-trim/sasl/aws_msk_iam_v2"
	"github.com/segmentio/kafka-trim/sasl/azure_event_hubs_entra"
	"github.com/segmentio/kafka-trim/sasl/gssapi"
	"github.com/segmentio/kafka-trim/sasl/oauthbearer"
	"github.com/segmentio/kafka-trim/sasl/plain"
	"github.com/segmentio/kafka-trim/sasl/scram"
)

type saslConfig struct {
	Mechanism   string `conf:"mechanism"    help:"SASL mechanism: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, GSSAPI, OAUTHBEARER, AWS_MSK_IAM or AZURE_ENTRA, none when empty"`
	Username    string `conf:"username"     help:"SASL username, or kerberos principal for GSSAPI"`
	Password    string `conf:"password"     help:"SASL password, unused for GSSAPI when a keytab is set"`
	Realm       string `conf:"realm"        help:"Kerberos realm"`
	Keytab      string `conf:"keytab"       help:"Path to a kerberos keytab"`
	Krb5Config  string `conf:"krb5-config"  help:"Path to the kerberos configuration"`
	ServiceName string `conf:"service-name" help:"Kerberos service name of the brokers"`
	Token       string `conf:"token"        help:"Bearer token for OAUTHBEARER"`
	AWSRegion   string `conf:"aws-region"   help:"AWS region of the MSK cluster, the default of the AWS configuration when empty"`
}

func (c saslConfig) mechanism() (sasl.Mechanism, error) {
	switch strings.ToUpper(c.Mechanism) {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	case "OAUTHBEARER":
		if c.Token == "" {
			return nil, errors.New("OAUTHBEARER needs a token")
		}
		return oauthbearer.StaticToken(c.Token), nil
	case "AWS_MSK_IAM":
		var opts []func(*awsconfig.LoadOptions) error
		if c.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(c.AWSRegion))
		}
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS configuration")
		}
		return aws_msk_iam_v2.NewMechanism(cfg), nil
	case "AZURE_ENTRA":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load Azure credentials")
		}
		return azure_event_hubs_entra.NewMechanism(cred), nil
	case "GSSAPI":
		cl, err := c.kerberosClient()
		if err != nil {
			return nil, err
		}
		return gssapi.Mechanism(cl, c.ServiceName), nil
	default:
		return nil, errors.Errorf("unsupported SASL mechanism: %q", c.Mechanism)
	}
}

func (c saslConfig) kerberosClient() (*client.Client, error) {
	krb5conf, err := config.Load(c.Krb5Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load kerberos configuration")
	}

	realm := c.Realm
	if realm == "" {
		realm = krb5conf.LibDefaults.DefaultRealm
	}

	var cl *client.Client
	if c.Keytab != "" {
		kt, err := keytab.Load(c.Keytab)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load kerberos keytab")
		}
		cl = client.NewWithKeytab(c.Username, realm, kt, krb5conf, client.DisablePAFXFAST(true))
	} else {
		cl = client.NewWithPassword(c.Username, realm, c.Password, krb5conf, client.DisablePAFXFAST(true))
	}

	if err := cl.Login(); err != nil {
		return nil, errors.Wrap(err, "kerberos login failed")
	}
	return cl, nil
}

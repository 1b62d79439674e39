package secrets

import (
	"context"
	"fmt"
	"time"

	"quantviz/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterAPI is the part of the SSM client the loader needs.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMLoader reads decrypted values from Parameter Store.
type SSMLoader struct {
	client  ParameterAPI
	timeout time.Duration
}

// NewSSMLoader builds a loader from the default AWS credential chain.
func NewSSMLoader(ctx context.Context, timeout time.Duration) (*SSMLoader, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSSMLoaderWithClient(ssm.NewFromConfig(awsCfg), timeout), nil
}

func NewSSMLoaderWithClient(client ParameterAPI, timeout time.Duration) *SSMLoader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SSMLoader{client: client, timeout: timeout}
}

// Parameter returns the decrypted value of name.
func (l *SSMLoader) Parameter(ctx context.Context, name string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	result, err := l.client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *result.Parameter.Value, nil
}

// Credentials reads the key pair from the configured parameter names.
func (l *SSMLoader) Credentials(ctx context.Context, cfg config.SSMConfig) (Credentials, error) {
	key, err := l.Parameter(ctx, cfg.KeyParam)
	if err != nil {
		return Credentials{}, err
	}
	secret, err := l.Parameter(ctx, cfg.SecretParam)
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{APIKey: key, APISecret: secret}
	if err := creds.validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// ResolvePostgres replaces host, user and password in pg with their Parameter Store
// values for every *_param that is set.
func (l *SSMLoader) ResolvePostgres(ctx context.Context, pg *config.PostgresConfig) error {
	fields := []struct {
		param string
		dst   *string
	}{
		{pg.HostParam, &pg.Host},
		{pg.UserParam, &pg.User},
		{pg.PasswordParam, &pg.Password},
	}
	for _, f := range fields {
		if f.param == "" {
			continue
		}
		v, err := l.Parameter(ctx, f.param)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

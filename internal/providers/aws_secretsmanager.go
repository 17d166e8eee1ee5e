package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

// DefaultRegion is used when the options name none
const DefaultRegion = "us-east-1"

// SecretsManagerClientAPI is the subset of the AWS Secrets Manager client
// used here. This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSOptions configures the real Secrets Manager client
type AWSOptions struct {
	Region string
	// Endpoint is an optional custom endpoint for LocalStack or testing
	Endpoint string
	// Static credentials, only honoured when both are set
	AccessKeyID     string
	SecretAccessKey string
}

// AWSSecretsManagerProvider fetches raw secret payloads from AWS Secrets Manager
type AWSSecretsManagerProvider struct {
	name   string
	client SecretsManagerClientAPI
	region string
}

// ProviderOption is a functional option for configuring providers
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// NewAWSSecretsManagerProvider creates a new AWS Secrets Manager provider.
// The default AWS credential chain is used unless static credentials are given.
func NewAWSSecretsManagerProvider(ctx context.Context, name string, awsOpts AWSOptions, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	region := awsOpts.Region
	if region == "" {
		region = DefaultRegion
	}

	p := &AWSSecretsManagerProvider{
		name:   name,
		region: region,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client != nil {
		return p, nil
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(region))

	if awsOpts.AccessKeyID != "" && awsOpts.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsOpts.AccessKeyID, awsOpts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if awsOpts.Endpoint != "" {
		endpoint := awsOpts.Endpoint
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)

	return p, nil
}

// Name returns the provider name
func (p *AWSSecretsManagerProvider) Name() string {
	return p.name
}

// Region returns the region the client talks to
func (p *AWSSecretsManagerProvider) Region() string {
	return p.region
}

// GetSecretValue returns the raw payload of the current version of secretID.
// SecretString wins over SecretBinary when both are present.
func (p *AWSSecretsManagerProvider) GetSecretValue(ctx context.Context, secretID string) ([]byte, error) {
	result, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, p.handleError(err, secretID)
	}

	switch {
	case result.SecretString != nil:
		return []byte(*result.SecretString), nil
	case result.SecretBinary != nil:
		return result.SecretBinary, nil
	}
	return nil, &ClientError{
		Provider: p.name,
		Key:      secretID,
		Err:      errors.New("secret has no value"),
	}
}

// handleError converts AWS errors to provider errors
func (p *AWSSecretsManagerProvider) handleError(err error, secretID string) error {
	if isNotFoundError(err) {
		return &NotFoundError{
			Provider: p.name,
			Key:      secretID,
			Err:      err,
		}
	}

	ce := &ClientError{
		Provider: p.name,
		Key:      secretID,
		Err:      err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ce.Code = apiErr.ErrorCode()
	}
	return ce
}

func isNotFoundError(err error) bool {
	var resourceNotFound *types.ResourceNotFoundException
	return errors.As(err, &resourceNotFound)
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"golang.org/x/oauth2"
)

// SecretsManagerAPI is the subset of the Secrets Manager client the store uses.
type SecretsManagerAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// SecretsManagerStore keeps the token in an AWS Secrets Manager secret.
type SecretsManagerStore struct {
	client     SecretsManagerAPI
	secretName string
}

var _ TokenStore = (*SecretsManagerStore)(nil)

// NewSecretsManagerStore creates a store using the default AWS credential
// chain. An empty region defers to the environment.
func NewSecretsManagerStore(ctx context.Context, region, secretName string) (*SecretsManagerStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSecretsManagerStoreWithClient(secretsmanager.NewFromConfig(cfg), secretName), nil
}

func NewSecretsManagerStoreWithClient(client SecretsManagerAPI, secretName string) *SecretsManagerStore {
	return &SecretsManagerStore{client: client, secretName: secretName}
}

func (s *SecretsManagerStore) Load(ctx context.Context) (*oauth2.Token, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret string is nil")
	}
	return decodeToken([]byte(*result.SecretString))
}

// Save creates the secret, or updates it when it already exists.
func (s *SecretsManagerStore) Save(ctx context.Context, tok *oauth2.Token) error {
	tokenJSON, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth token: %w", err)
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.secretName),
		SecretString: aws.String(string(tokenJSON)),
		Description:  aws.String("Google OAuth token for adstats"),
	})
	if err != nil {
		_, updateErr := s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
			SecretId:     aws.String(s.secretName),
			SecretString: aws.String(string(tokenJSON)),
		})
		if updateErr != nil {
			return fmt.Errorf("failed to create or update secret: create error: %w, update error: %v", err, updateErr)
		}
	}
	return nil
}

func (s *SecretsManagerStore) Delete(ctx context.Context) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(s.secretName),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

package secretstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// secretsManagerAPI is the subset of *secretsmanager.Client used here.
type secretsManagerAPI interface {
	DescribeSecret(ctx context.Context, in *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DeleteSecret(ctx context.Context, in *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// AWSStore keeps secrets in AWS Secrets Manager.
type AWSStore struct {
	client secretsManagerAPI
}

// NewAWSStore wraps an existing Secrets Manager client.
func NewAWSStore(client secretsManagerAPI) *AWSStore {
	return &AWSStore{client: client}
}

// openAWS requires "region"; "endpoint" points the client at a local emulator.
func openAWS(ctx context.Context, cfg cloud.Config) (Store, error) {
	region, err := cfg.Required("region")
	if err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, kerrors.Provider("aws", "load config", err)
	}
	endpoint, hasEndpoint := cfg.Get("endpoint")
	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if hasEndpoint {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSStore(client), nil
}

// Put describes the secret, then either writes a new value or creates it.
// The two calls are not atomic: a concurrent creator can win between them,
// in which case CreateSecret fails with ResourceExistsException.
func (s *AWSStore) Put(ctx context.Context, name string, data []byte, metadata map[string]string) error {
	body, err := Encode(data, metadata)
	if err != nil {
		return err
	}

	_, err = s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(name)})
	switch {
	case err == nil:
		_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
			SecretId:     aws.String(name),
			SecretString: aws.String(string(body)),
		})
		return kerrors.Provider("aws", "put secret value", err)
	case !isAWSNotFound(err):
		return kerrors.Provider("aws", "describe secret", err)
	}

	out, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(body)),
		Tags:         awsTags(metadata),
	})
	if err != nil {
		return kerrors.Provider("aws", "create secret", err)
	}
	if aws.ToString(out.ARN) == "" {
		return kerrors.Provider("aws", "create secret", fmt.Errorf("no ARN returned for %s", name))
	}
	return nil
}

func (s *AWSStore) Get(ctx context.Context, name string) (Record, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if isAWSNotFound(err) {
		return Record{}, notFound(name)
	}
	if err != nil {
		return Record{}, kerrors.Provider("aws", "get secret value", err)
	}
	switch {
	case out.SecretString != nil:
		return Decode([]byte(*out.SecretString))
	case out.SecretBinary != nil:
		return Decode(out.SecretBinary)
	default:
		return NewRecord(nil, nil), nil
	}
}

// Delete removes the secret immediately, skipping the recovery window.
func (s *AWSStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(name),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil && !isAWSNotFound(err) {
		return kerrors.Provider("aws", "delete secret", err)
	}
	return nil
}

func (s *AWSStore) Close() error { return nil }

func isAWSNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}

func awsTags(metadata map[string]string) []types.Tag {
	if len(metadata) == 0 {
		return nil
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tags := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(metadata[k])})
	}
	return tags
}

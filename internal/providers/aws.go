package providers

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

const (
	AWSName          = "aws"
	defaultAWSRegion = "us-west-2"
)

// awsKMSAPI is the subset of *kms.Client used here.
type awsKMSAPI interface {
	Encrypt(ctx context.Context, in *awskms.EncryptInput, optFns ...func(*awskms.Options)) (*awskms.EncryptOutput, error)
	Decrypt(ctx context.Context, in *awskms.DecryptInput, optFns ...func(*awskms.Options)) (*awskms.DecryptOutput, error)
}

// AWS encrypts with an AWS KMS key. The ciphertext is the base64 of the
// returned CiphertextBlob.
type AWS struct {
	client awsKMSAPI
	keyID  string
}

// NewAWS wraps an existing KMS client. keyID may be empty for decryption.
func NewAWS(client awsKMSAPI, keyID string) *AWS {
	return &AWS{client: client, keyID: keyID}
}

func newAWSEncryptor(ctx context.Context, cfg cloud.Config) (kms.Encryptor, error) {
	if _, err := cfg.Required("keyId"); err != nil {
		return nil, err
	}
	return newAWS(ctx, cfg)
}

func newAWSDecryptor(ctx context.Context, cfg cloud.Config) (kms.Decryptor, error) {
	return newAWS(ctx, cfg)
}

// newAWS loads credentials from the default chain. "region" defaults to
// us-west-2 and "endpoint" overrides the service URL.
func newAWS(ctx context.Context, cfg cloud.Config) (*AWS, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.GetOr("region", defaultAWSRegion)))
	if err != nil {
		return nil, kerrors.Provider(AWSName, "load config", err)
	}
	endpoint, hasEndpoint := cfg.Get("endpoint")
	client := awskms.NewFromConfig(awsCfg, func(o *awskms.Options) {
		if hasEndpoint {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWS(client, cfg.GetOr("keyId", "")), nil
}

func (a *AWS) Encrypt(ctx context.Context, plaintext string) (string, error) {
	out, err := a.client.Encrypt(ctx, &awskms.EncryptInput{
		KeyId:     aws.String(a.keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", kerrors.Provider(AWSName, "encrypt", err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

func (a *AWS) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	blob, err := decodeCiphertext(AWSName, ciphertext)
	if err != nil {
		return "", err
	}
	in := &awskms.DecryptInput{CiphertextBlob: blob}
	if a.keyID != "" {
		in.KeyId = aws.String(a.keyID)
	}
	out, err := a.client.Decrypt(ctx, in)
	if err != nil {
		return "", kerrors.Provider(AWSName, "decrypt", err)
	}
	return string(out.Plaintext), nil
}
